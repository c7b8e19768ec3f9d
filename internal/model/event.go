// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"slices"
	"time"
)

// Levels stored in the events table.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Audit categories. Events outside this set are filed under system.
const (
	EventCategoryAuth      = "auth"
	EventCategoryPredict   = "predict"
	EventCategoryStorage   = "storage"
	EventCategorySystem    = "system"
	EventCategoryCache     = "cache"
	EventCategoryCatalogue = "catalogue"
)

var eventCategories = []string{
	EventCategoryAuth,
	EventCategoryPredict,
	EventCategoryStorage,
	EventCategorySystem,
	EventCategoryCache,
	EventCategoryCatalogue,
}

// KnownEventCategory reports whether c is one of the audit categories.
func KnownEventCategory(c string) bool {
	return slices.Contains(eventCategories, c)
}

// Event is one row of the audit trail written by the event service and the
// slog bridge.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string // JSON object, "{}" when empty
	IPAddress string
	CreatedAt time.Time
}
