// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/soilstation/internal/cache"
	"github.com/olegiv/soilstation/internal/model"
	"github.com/olegiv/soilstation/internal/session"
	"github.com/olegiv/soilstation/internal/storage"
	"github.com/olegiv/soilstation/internal/store"
	"github.com/olegiv/soilstation/internal/testutil"
)

// classifierFunc adapts a function to the Classifier interface.
type classifierFunc func(ctx context.Context, data []byte) (model.Prediction, error)

func (f classifierFunc) Classify(ctx context.Context, data []byte) (model.Prediction, error) {
	return f(ctx, data)
}

// predictAs returns a classifier that always yields category c.
func predictAs(c model.SoilCategory) Classifier {
	return classifierFunc(func(context.Context, []byte) (model.Prediction, error) {
		var p model.Prediction
		p.Category = c
		p.Label = c.Label()
		p.Probabilities[c.Index()] = 1
		p.Percentages[c.Index()] = 100
		return p, nil
	})
}

type testEnv struct {
	db         *store.DB
	uploadsDir string
	store      *storage.LocalStore
	accounts   *AccountService
	intake     *IntakeService
	history    *HistoryService
	events     *EventService
	recs       *RecommendationService
	mem        *cache.MemoryCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.TestDB(t)
	dir := t.TempDir()
	ls, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	logger := testutil.TestLoggerSilent()
	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = mem.Close() })

	return &testEnv{
		db:         db,
		uploadsDir: dir,
		store:      ls,
		accounts:   NewAccountService(db, 5*time.Second, logger),
		intake:     NewIntakeService(ls, 5*time.Second, logger),
		history:    NewHistoryService(db, 5*time.Second),
		events:     NewEventService(db, logger),
		recs:       NewRecommendationService(db, mem, time.Hour, 5*time.Second, logger),
		mem:        mem,
	}
}

func (e *testEnv) predictions(c Classifier) *PredictionService {
	return NewPredictionService(e.intake, c, e.history, e.events, testutil.TestLoggerSilent())
}

// signedIn creates a user and returns an authenticated session state.
func (e *testEnv) signedIn(t *testing.T, username string) *session.State {
	t.Helper()
	id := testutil.CreateUser(t, e.db, username)
	st := session.Defaults()
	st.SignIn(model.Identity{UserID: id, Username: username})
	return st
}

func (e *testEnv) historyCount(t *testing.T, userID int64) int64 {
	t.Helper()
	n, err := e.db.Queries().CountLoginHistoryByUser(context.Background(), userID)
	require.NoError(t, err)
	return n
}

// storedFiles counts regular files below the uploads directory.
func (e *testEnv) storedFiles(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.Walk(e.uploadsDir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}
