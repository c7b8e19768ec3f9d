// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the session-gated soil workflow: accounts,
// image intake, classification, history, recommendations and category
// shortcuts, plus audit events and retention jobs. Every entry point takes
// plain data and an explicit *session.State and returns plain data or one of
// the errors in errors.go.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/soilstation/internal/model"
	"github.com/olegiv/soilstation/internal/store"
)

// EventService writes audit events to the events table.
type EventService struct {
	db     *store.DB
	logger *slog.Logger
}

// NewEventService creates a new EventService.
func NewEventService(db *store.DB, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{db: db, logger: logger}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID int64, ipAddress string, metadata map[string]any) error {
	var nullUserID sql.NullInt64
	if userID > 0 {
		nullUserID = sql.NullInt64{Int64: userID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	err := s.db.Queries().CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		Metadata:  metadataJSON,
		IpAddress: ipAddress,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to log event", "category", category, "error", err)
		return err
	}
	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, ipAddress, metadata)
}

// LogPredictEvent logs a classification-related event.
func (s *EventService) LogPredictEvent(ctx context.Context, level, message string, userID int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryPredict, message, userID, ipAddress, metadata)
}

// LogSystemEvent logs a system-related event.
func (s *EventService) LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySystem, message, 0, "", metadata)
}

// Recent returns the newest events, newest first.
func (s *EventService) Recent(ctx context.Context, limit int64) ([]model.Event, error) {
	rows, err := s.db.Queries().ListRecentEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, model.Event{
			ID:        r.ID,
			Level:     r.Level,
			Category:  r.Category,
			Message:   r.Message,
			UserID:    r.UserID,
			Metadata:  r.Metadata,
			IPAddress: r.IpAddress,
			CreatedAt: r.CreatedAt,
		})
	}
	return events, nil
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) error {
	return s.db.Queries().DeleteOldEvents(ctx, time.Now().UTC().Add(-olderThan))
}

// ClientMetadata describes the client of a request for audit events.
func ClientMetadata(userAgent string) map[string]any {
	ua := useragent.Parse(userAgent)

	browser, osName := ua.Name, ua.OS
	if browser == "" {
		browser = "Unknown"
	}
	if osName == "" {
		osName = "Unknown"
	}

	device := "desktop"
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Mobile:
		device = "mobile"
	case ua.Tablet:
		device = "tablet"
	}

	return map[string]any{
		"browser": browser,
		"os":      osName,
		"device":  device,
	}
}
