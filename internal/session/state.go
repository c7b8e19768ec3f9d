// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/soilstation/internal/model"
)

// Session keys. Every reader and writer goes through Load and Save, so each
// flag has exactly one name.
const (
	KeyAuthenticated = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyPredicted     = "predicted"
	KeySoilID        = "soil_id"
)

// State is the per-request workflow state. It is loaded from the session at
// the start of a request, passed explicitly to every workflow call, and
// written back before the response is sent. A State is never shared between
// requests.
type State struct {
	Authenticated bool
	UserID        int64
	Username      string
	Predicted     bool
	SoilID        model.SoilCategory
}

// Defaults returns the safe starting state: anonymous, nothing predicted.
func Defaults() *State {
	return &State{}
}

// SignIn marks the state as belonging to an authenticated user and clears
// any workflow flags left over from a previous identity.
func (s *State) SignIn(id model.Identity) {
	*s = State{
		Authenticated: true,
		UserID:        id.UserID,
		Username:      id.Username,
	}
}

// SignOut resets the state to defaults.
func (s *State) SignOut() {
	*s = State{}
}

// Activate records a category as active for recommendations.
func (s *State) Activate(c model.SoilCategory) {
	s.SoilID = c
	s.Predicted = true
}

// IsAuthenticated reports whether the state carries a usable identity.
func (s *State) IsAuthenticated() bool {
	return s != nil && s.Authenticated && s.UserID > 0
}

// CanRecommend reports whether recommendation retrieval is allowed.
func (s *State) CanRecommend() bool {
	return s.IsAuthenticated() && s.Predicted && s.SoilID.Valid()
}

// Load reads the state for the current request. Missing keys yield defaults.
func Load(ctx context.Context, sm *scs.SessionManager) *State {
	st := Defaults()
	st.Authenticated = sm.GetBool(ctx, KeyAuthenticated)
	st.UserID = sm.GetInt64(ctx, KeyUserID)
	st.Username = sm.GetString(ctx, KeyUsername)
	st.Predicted = sm.GetBool(ctx, KeyPredicted)
	st.SoilID = model.SoilCategory(sm.GetInt64(ctx, KeySoilID))

	if !st.IsAuthenticated() {
		return Defaults()
	}
	return st
}

// Save writes the state back to the session.
func Save(ctx context.Context, sm *scs.SessionManager, st *State) {
	if !st.IsAuthenticated() {
		for _, k := range []string{KeyAuthenticated, KeyUserID, KeyUsername, KeyPredicted, KeySoilID} {
			sm.Remove(ctx, k)
		}
		return
	}
	sm.Put(ctx, KeyAuthenticated, true)
	sm.Put(ctx, KeyUserID, st.UserID)
	sm.Put(ctx, KeyUsername, st.Username)
	sm.Put(ctx, KeyPredicted, st.Predicted)
	sm.Put(ctx, KeySoilID, st.SoilID.ID())
}
