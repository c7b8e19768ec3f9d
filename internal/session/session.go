// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the HTTP session manager and maps the
// workflow State onto session storage.
package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/olegiv/soilstation/internal/store"
)

// Lifetime is the absolute session lifetime.
const Lifetime = 24 * time.Hour

// New creates a session manager. SQLite databases keep sessions in the
// sessions table; other dialects fall back to an in-process store.
func New(db *store.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	if db != nil && db.Dialect == store.DialectSQLite {
		sm.Store = sqlite3store.New(db.DB)
	} else {
		slog.Warn("session store is in-memory; sessions will not survive restarts")
		sm.Store = memstore.New()
	}

	sm.Lifetime = Lifetime
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	if !isDev {
		sm.Cookie.Name = "__Host-session"
		sm.Cookie.Path = "/"
	}

	return sm
}
