// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type SoilType struct {
	ID   int64
	Name string
}

type LoginHistory struct {
	ID          int64
	UserID      int64
	SoilID      int64
	HistoryDate string
	CreatedAt   time.Time
}

type Plant struct {
	ID          int64
	SoilID      int64
	Name        string
	Image       []byte
	Description string
	Treatment   string
}

type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string
	IpAddress string
	CreatedAt time.Time
}
