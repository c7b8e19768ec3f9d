// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/soilstation/internal/middleware"
	"github.com/olegiv/soilstation/internal/model"
	"github.com/olegiv/soilstation/internal/service"
	"github.com/olegiv/soilstation/internal/session"
)

// maxCredentialsBody bounds signup and login request bodies.
const maxCredentialsBody = 16 << 10

// AuthHandler handles account creation and sign-in.
type AuthHandler struct {
	accounts        *service.AccountService
	sessionManager  *scs.SessionManager
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
	logger          *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. events and lp may be nil.
func NewAuthHandler(accounts *service.AccountService, sm *scs.SessionManager, events *service.EventService, lp *middleware.LoginProtection, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		accounts:        accounts,
		sessionManager:  sm,
		eventService:    events,
		loginProtection: lp,
		logger:          logger,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// readCredentials accepts a JSON body or a regular form post.
func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCredentialsBody)

	var c credentials
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			return c, fmt.Errorf("decode credentials: %w", err)
		}
		return c, nil
	}

	if err := r.ParseForm(); err != nil {
		return c, fmt.Errorf("parse form: %w", err)
	}
	c.Username = r.PostFormValue(FieldUsername)
	c.Password = r.PostFormValue(FieldPassword)
	return c, nil
}

func identityResponse(id model.Identity) map[string]any {
	return map[string]any{
		"user_id":  id.UserID,
		"username": id.Username,
	}
}

// Signup handles POST /signup. The new account is not signed in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, msgMissingCredentials)
		return
	}

	id, err := h.accounts.CreateAccount(r.Context(), c.Username, c.Password)
	if err != nil {
		var weak *service.WeakPasswordError
		if errors.As(err, &weak) {
			h.logger.Debug("signup rejected by password policy", "violations", weak.Violations)
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logAuthEvent(r, model.EventLevelInfo, "Account created", id.UserID, nil)
	writeJSONStatus(w, http.StatusCreated, identityResponse(id))
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(w, r)
	if err != nil || c.Username == "" || c.Password == "" {
		writeJSONError(w, http.StatusBadRequest, msgMissingCredentials)
		return
	}

	if h.loginProtection != nil {
		if remaining := h.loginProtection.LockedFor(c.Username); remaining > 0 {
			h.logAuthEvent(r, model.EventLevelWarning, "Login attempt on locked account", 0, map[string]any{
				"username":  c.Username,
				"remaining": remaining.Round(time.Second).String(),
			})
			writeJSONError(w, http.StatusTooManyRequests,
				fmt.Sprintf("Too many failed attempts. Try again in %s.", remaining.Round(time.Second)))
			return
		}
	}

	st := middleware.GetState(r)
	id, err := h.accounts.Login(r.Context(), st, c.Username, c.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.recordFailure(r, c.Username)
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.Clear(c.Username)
	}

	// New identity, new token.
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		h.logger.Error("failed to renew session token", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	session.Save(r.Context(), h.sessionManager, st)

	h.logAuthEvent(r, model.EventLevelInfo, "User logged in", id.UserID, service.ClientMetadata(r.UserAgent()))
	writeJSONSuccess(w, identityResponse(id))
}

func (h *AuthHandler) recordFailure(r *http.Request, username string) {
	meta := map[string]any{"username": username}
	if h.loginProtection != nil {
		f := h.loginProtection.Fail(username)
		if f.Locked() {
			meta["lockout"] = f.LockedFor.String()
			h.logAuthEvent(r, model.EventLevelWarning, "Account locked after failed logins", 0, meta)
			return
		}
		meta["remaining_attempts"] = f.Remaining
	}
	h.logAuthEvent(r, model.EventLevelWarning, "Failed login attempt", 0, meta)
}

// Logout handles POST /logout. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	st := middleware.GetState(r)
	userID := st.UserID
	wasSignedIn := st.IsAuthenticated()

	h.accounts.Logout(st)
	session.Save(r.Context(), h.sessionManager, st)
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		h.logger.Error("failed to renew session token", "error", err)
	}

	if wasSignedIn {
		h.logAuthEvent(r, model.EventLevelInfo, "User logged out", userID, nil)
	}
	writeJSONSuccess(w, nil)
}

func (h *AuthHandler) logAuthEvent(r *http.Request, level, message string, userID int64, meta map[string]any) {
	if h.eventService == nil {
		return
	}
	_ = h.eventService.LogAuthEvent(r.Context(), level, message, userID, middleware.ClientIP(r), meta)
}
