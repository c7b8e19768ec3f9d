// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/olegiv/soilstation/internal/metrics"
	"github.com/olegiv/soilstation/internal/storage"
)

// RetentionService deletes uploads and audit events past their retention age.
type RetentionService struct {
	store        storage.Store
	events       *EventService
	uploadMaxAge time.Duration
	eventMaxAge  time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewRetentionService creates a RetentionService. A non-positive age
// disables the corresponding cleanup.
func NewRetentionService(store storage.Store, events *EventService, uploadMaxAge, eventMaxAge time.Duration, logger *slog.Logger) *RetentionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionService{
		store:        store,
		events:       events,
		uploadMaxAge: uploadMaxAge,
		eventMaxAge:  eventMaxAge,
		logger:       logger,
		now:          time.Now,
	}
}

// CleanupUploads removes uploads older than the upload retention age.
func (s *RetentionService) CleanupUploads(ctx context.Context) (int, error) {
	if s.uploadMaxAge <= 0 {
		return 0, nil
	}
	removed, err := s.store.DeleteOlderThan(ctx, s.now().Add(-s.uploadMaxAge))
	metrics.ObserveCleanup("uploads", removed)
	if err != nil {
		s.logger.Error("upload cleanup failed", "backend", s.store.Name(), "removed", removed, "error", err)
		return removed, err
	}
	if removed > 0 {
		s.logger.Info("upload cleanup", "backend", s.store.Name(), "removed", removed)
	}
	return removed, nil
}

// PruneEvents removes audit events older than the event retention age.
func (s *RetentionService) PruneEvents(ctx context.Context) error {
	if s.eventMaxAge <= 0 || s.events == nil {
		return nil
	}
	if err := s.events.DeleteOldEvents(ctx, s.eventMaxAge); err != nil {
		s.logger.Error("event pruning failed", "error", err)
		return err
	}
	return nil
}
