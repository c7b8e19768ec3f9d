// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/soilstation/internal/auth"
)

// Workflow errors. Every entry point returns one of these (possibly wrapped)
// so callers can map failures with errors.Is.
var (
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrModelInference       = errors.New("model inference failed")
	ErrPersistence          = errors.New("persistence failed")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrWeakPassword         = errors.New("password does not meet policy")
	ErrInvalidUsername      = errors.New("invalid username")
	ErrNoRecommendations    = errors.New("no recommendations available")
	ErrTimeout              = errors.New("operation timed out")

	// ErrNotAuthenticated is returned by gated operations called without an
	// authenticated session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoPrediction is returned when recommendations are requested before
	// any category has been activated in the session.
	ErrNoPrediction = errors.New("no prediction in session")
)

// WeakPasswordError lists the policy rules a password failed.
type WeakPasswordError struct {
	Violations []auth.PasswordViolation
}

func (e *WeakPasswordError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = string(v)
	}
	return ErrWeakPassword.Error() + ": " + strings.Join(parts, ", ")
}

// Unwrap makes errors.Is(err, ErrWeakPassword) hold.
func (e *WeakPasswordError) Unwrap() error {
	return ErrWeakPassword
}

// persistenceError wraps a store failure. Deadline expiry additionally
// matches ErrTimeout.
func persistenceError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %s: %w", ErrPersistence, ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// boundedContext applies d to ctx. A non-positive d leaves ctx unbounded.
func boundedContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// isTimeout reports whether err carries ErrTimeout or an expired deadline.
func isTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
