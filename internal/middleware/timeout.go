// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"
)

// TimeoutMessage is the body sent when a request exceeds its deadline.
const TimeoutMessage = "The request took too long. Please try again."

// Timeout runs the rest of the chain on its own goroutine under a deadline.
// When the deadline passes before the handler has sent a status, the client
// gets a 504 JSON error; anything the handler writes afterwards is dropped.
// The handler's context carries the same deadline, so classification and
// database calls give up at the same moment.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := newDeadlineWriter(w)
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if dw.expire() {
					WriteJSONError(w, http.StatusGatewayTimeout, TimeoutMessage)
				}
			}
		})
	}
}

// deadlineWriter gives the handler goroutine a private header map so the
// timeout path never shares state with it, and refuses writes once expired.
type deadlineWriter struct {
	w      http.ResponseWriter
	header http.Header

	mu      sync.Mutex
	code    int
	expired bool
}

func newDeadlineWriter(w http.ResponseWriter) *deadlineWriter {
	return &deadlineWriter{w: w, header: make(http.Header)}
}

func (dw *deadlineWriter) Header() http.Header { return dw.header }

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	dw.writeHeaderLocked(code)
}

func (dw *deadlineWriter) writeHeaderLocked(code int) {
	if dw.expired || dw.code != 0 {
		return
	}
	dw.code = code
	maps.Copy(dw.w.Header(), dw.header)
	dw.w.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.expired {
		return 0, http.ErrHandlerTimeout
	}
	dw.writeHeaderLocked(http.StatusOK)
	return dw.w.Write(b)
}

// expire stops further writes. It reports true when no status had been
// sent, meaning the caller owns the response.
func (dw *deadlineWriter) expire() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	dw.expired = true
	return dw.code == 0
}
