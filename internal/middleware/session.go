// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for session state, access
// gating, rate limiting and request context handling.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/soilstation/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyState       ContextKey = "session_state"
	ContextKeyRequestPath ContextKey = "request_path"
)

// LoadState creates middleware that reads the workflow state from the
// session into the request context. Requests without a session start from
// the defaults. Must run inside sm.LoadAndSave.
func LoadState(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := session.Load(r.Context(), sm)
			ctx := context.WithValue(r.Context(), ContextKeyState, st)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetState returns the state loaded by LoadState, or fresh defaults when the
// middleware did not run.
func GetState(r *http.Request) *session.State {
	st, ok := r.Context().Value(ContextKeyState).(*session.State)
	if !ok || st == nil {
		return session.Defaults()
	}
	return st
}

// GetUserID returns the signed-in user's ID, or 0 if there is none.
func GetUserID(r *http.Request) int64 {
	if st := GetState(r); st.IsAuthenticated() {
		return st.UserID
	}
	return 0
}

// RequireAuth creates middleware that rejects requests without an
// authenticated session with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetState(r).IsAuthenticated() {
			slog.Debug("unauthenticated request rejected", "method", r.Method, "path", r.URL.Path)
			WriteJSONError(w, http.StatusUnauthorized, "Please log in to continue.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestPath creates middleware that stores the request path in the context.
// This is used by the logging handler to include the URL in persisted events.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}
