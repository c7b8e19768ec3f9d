// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/olegiv/soilstation/internal/auth"
	"github.com/olegiv/soilstation/internal/model"
	"github.com/olegiv/soilstation/internal/session"
	"github.com/olegiv/soilstation/internal/store"
)

// MaxUsernameLength bounds usernames in characters.
const MaxUsernameLength = 64

// AccountService creates accounts and verifies credentials.
type AccountService struct {
	db      *store.DB
	timeout time.Duration
	logger  *slog.Logger
}

// NewAccountService creates an AccountService. timeout bounds each store
// round-trip.
func NewAccountService(db *store.DB, timeout time.Duration, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{db: db, timeout: timeout, logger: logger}
}

// validateUsername rejects empty, overlong and whitespace-bearing names.
// Usernames are otherwise stored exactly as given and compared
// case-sensitively.
func validateUsername(username string) error {
	if username == "" || len([]rune(username)) > MaxUsernameLength {
		return ErrInvalidUsername
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return ErrInvalidUsername
	}
	return nil
}

// CreateAccount registers a new user. It returns *WeakPasswordError,
// ErrUsernameTaken, ErrInvalidUsername or ErrPersistence on failure.
func (s *AccountService) CreateAccount(ctx context.Context, username, password string) (model.Identity, error) {
	if err := validateUsername(username); err != nil {
		return model.Identity{}, err
	}
	if v := auth.CheckPasswordPolicy(password); len(v) > 0 {
		return model.Identity{}, &WeakPasswordError{Violations: v}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return model.Identity{}, fmt.Errorf("hashing password: %w", err)
	}

	ctx, cancel := boundedContext(ctx, s.timeout)
	defer cancel()

	u, err := s.db.Queries().CreateUser(ctx, store.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Identity{}, ErrUsernameTaken
		}
		return model.Identity{}, persistenceError("create user", err)
	}

	return model.Identity{UserID: u.ID, Username: u.Username}, nil
}

// Verify checks a username and password. Unknown usernames and wrong
// passwords both yield ErrInvalidCredentials after comparable work.
func (s *AccountService) Verify(ctx context.Context, username, password string) (model.Identity, error) {
	ctx, cancel := boundedContext(ctx, s.timeout)
	defer cancel()

	queries := s.db.Queries()
	u, err := queries.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			auth.DummyCheck(password)
			return model.Identity{}, ErrInvalidCredentials
		}
		return model.Identity{}, persistenceError("load user", err)
	}

	ok, err := auth.CheckPassword(password, u.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unreadable", "user_id", u.ID, "error", err)
		return model.Identity{}, ErrInvalidCredentials
	}
	if !ok {
		return model.Identity{}, ErrInvalidCredentials
	}

	if auth.NeedsRehash(u.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{ID: u.ID, PasswordHash: newHash}); err != nil {
				s.logger.Warn("password rehash failed", "user_id", u.ID, "error", err)
			}
		}
	}

	return model.Identity{UserID: u.ID, Username: u.Username}, nil
}

// Login verifies credentials and, on success, signs st in. Workflow flags
// from any previous identity are cleared.
func (s *AccountService) Login(ctx context.Context, st *session.State, username, password string) (model.Identity, error) {
	id, err := s.Verify(ctx, username, password)
	if err != nil {
		return model.Identity{}, err
	}
	st.SignIn(id)
	return id, nil
}

// Logout resets st to defaults.
func (s *AccountService) Logout(st *session.State) {
	st.SignOut()
}
