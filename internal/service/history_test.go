// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/soilstation/internal/model"
	"github.com/olegiv/soilstation/internal/session"
)

func TestHistory_EmptyForNewUser(t *testing.T) {
	env := newTestEnv(t)
	st := env.signedIn(t, "newbie")

	entries, err := env.history.ListForSession(context.Background(), st)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestHistory_RecordAndList(t *testing.T) {
	env := newTestEnv(t)
	st := env.signedIn(t, "farmer")
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, env.history.Record(ctx, st.UserID, model.SoilPeat, day2))
	require.NoError(t, env.history.Record(ctx, st.UserID, model.SoilBlack, day1))
	require.NoError(t, env.history.Record(ctx, st.UserID, model.SoilBlack, day1))

	entries, err := env.history.List(ctx, st.UserID)
	require.NoError(t, err)
	require.Len(t, entries, 3, "duplicates are kept")

	assert.Equal(t, model.HistoryEntry{SoilID: model.SoilBlack, SoilLabel: "Black Soil", Date: "2026-03-01"}, entries[0])
	assert.Equal(t, entries[0], entries[1])
	assert.Equal(t, model.SoilPeat, entries[2].SoilID)
	assert.Equal(t, "Peat Soil", entries[2].SoilLabel)
	assert.Equal(t, "2026-03-02", entries[2].Date)
}

func TestHistory_IsolatedPerUser(t *testing.T) {
	env := newTestEnv(t)
	a := env.signedIn(t, "alice")
	b := env.signedIn(t, "bob")
	ctx := context.Background()

	require.NoError(t, env.history.Record(ctx, a.UserID, model.SoilYellow, time.Now()))

	entries, err := env.history.List(ctx, b.UserID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistory_RecordRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	st := env.signedIn(t, "farmer")
	ctx := context.Background()

	assert.ErrorIs(t, env.history.Record(ctx, 0, model.SoilBlack, time.Now()), ErrNotAuthenticated)
	assert.ErrorIs(t, env.history.Record(ctx, st.UserID, model.SoilCategory(9), time.Now()), ErrPersistence)
	assert.Zero(t, env.historyCount(t, st.UserID))
}

func TestHistory_ListForSessionRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.history.ListForSession(context.Background(), session.Defaults())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-03-01", "2026-03-01"},
		{"2026-03-01T00:00:00Z", "2026-03-01"},
		{"2026-03-01 00:00:00+00:00", "2026-03-01"},
		{"garbage", "garbage"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeDate(tt.in))
		})
	}
}
