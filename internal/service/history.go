// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/soilstation/internal/model"
	"github.com/olegiv/soilstation/internal/session"
	"github.com/olegiv/soilstation/internal/store"
)

// HistoryService appends and lists classification events. Events are never
// updated or deleted.
type HistoryService struct {
	db      *store.DB
	timeout time.Duration
}

// NewHistoryService creates a HistoryService. timeout bounds each store
// round-trip.
func NewHistoryService(db *store.DB, timeout time.Duration) *HistoryService {
	return &HistoryService{db: db, timeout: timeout}
}

// Record appends one classification event. Repeated calls for the same user,
// category and day produce separate rows.
func (s *HistoryService) Record(ctx context.Context, userID int64, category model.SoilCategory, date time.Time) error {
	if userID <= 0 {
		return ErrNotAuthenticated
	}
	if !category.Valid() {
		return fmt.Errorf("%w: unknown soil category %d", ErrPersistence, category)
	}

	ctx, cancel := boundedContext(ctx, s.timeout)
	defer cancel()

	err := s.db.Queries().CreateLoginHistory(ctx, store.CreateLoginHistoryParams{
		UserID:      userID,
		SoilID:      category.ID(),
		HistoryDate: date.Format(model.DateLayout),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return persistenceError("record history", err)
	}
	return nil
}

// List returns the user's events ordered by date, then insertion. A user
// with no events gets an empty, non-nil slice.
func (s *HistoryService) List(ctx context.Context, userID int64) ([]model.HistoryEntry, error) {
	ctx, cancel := boundedContext(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.Queries().ListLoginHistoryByUser(ctx, userID)
	if err != nil {
		return nil, persistenceError("list history", err)
	}

	entries := make([]model.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.HistoryEntry{
			SoilID:    model.SoilCategory(r.SoilID),
			SoilLabel: r.SoilName,
			Date:      normalizeDate(r.HistoryDate),
		})
	}
	return entries, nil
}

// ListForSession lists history for the signed-in user of st.
func (s *HistoryService) ListForSession(ctx context.Context, st *session.State) ([]model.HistoryEntry, error) {
	if !st.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	return s.List(ctx, st.UserID)
}

// normalizeDate trims a driver-rendered date or timestamp to YYYY-MM-DD.
func normalizeDate(v string) string {
	if len(v) >= len(model.DateLayout) {
		if _, err := time.Parse(model.DateLayout, v[:len(model.DateLayout)]); err == nil {
			return v[:len(model.DateLayout)]
		}
	}
	return v
}
