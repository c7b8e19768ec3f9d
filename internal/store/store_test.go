// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDB creates a temporary migrated SQLite database.
func testDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(string(DialectSQLite), filepath.Join(t.TempDir(), "store-test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, q *Queries, username string) User {
	t.Helper()
	user, err := q.CreateUser(context.Background(), CreateUserParams{
		Username:     username,
		PasswordHash: "hashed-password",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestCreateUser(t *testing.T) {
	db := testDB(t)
	q := db.Queries()

	user := createTestUser(t, q, "alice")
	if user.ID == 0 {
		t.Error("user.ID should not be 0")
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q, want %q", user.Username, "alice")
	}

	got, err := q.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hashed-password", got.PasswordHash)

	byID, err := q.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := testDB(t)
	q := db.Queries()

	createTestUser(t, q, "bob")
	_, err := q.CreateUser(context.Background(), CreateUserParams{
		Username:     "bob",
		PasswordHash: "other",
		CreatedAt:    time.Now(),
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "expected unique violation, got %v", err)
}

func TestGetUserByUsername_CaseSensitive(t *testing.T) {
	db := testDB(t)
	q := db.Queries()

	createTestUser(t, q, "Carol")
	_, err := q.GetUserByUsername(context.Background(), "carol")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestUpdateUserPassword(t *testing.T) {
	db := testDB(t)
	q := db.Queries()
	ctx := context.Background()

	user := createTestUser(t, q, "dave")
	require.NoError(t, q.UpdateUserPassword(ctx, UpdateUserPasswordParams{PasswordHash: "new-hash", ID: user.ID}))

	got, err := q.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
}

func TestSoilTypes_Seeded(t *testing.T) {
	db := testDB(t)
	types, err := db.Queries().ListSoilTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 4)

	want := []string{"Black Soil", "Laterite Soil", "Peat Soil", "Yellow Soil"}
	for i, st := range types {
		assert.Equal(t, int64(i+1), st.ID)
		assert.Equal(t, want[i], st.Name)
	}

	_, err = db.Queries().GetSoilType(context.Background(), 9)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestLoginHistory_AppendOnly(t *testing.T) {
	db := testDB(t)
	q := db.Queries()
	ctx := context.Background()

	user := createTestUser(t, q, "erin")

	rows, err := q.ListLoginHistoryByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	for _, soil := range []int64{2, 2, 4} {
		require.NoError(t, q.CreateLoginHistory(ctx, CreateLoginHistoryParams{
			UserID:      user.ID,
			SoilID:      soil,
			HistoryDate: "2026-10-16",
			CreatedAt:   time.Now(),
		}))
	}

	rows, err = q.ListLoginHistoryByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(2), rows[0].SoilID)
	assert.Equal(t, "Laterite Soil", rows[0].SoilName)
	assert.Equal(t, "2026-10-16", rows[0].HistoryDate)
	assert.Equal(t, int64(4), rows[2].SoilID)

	count, err := q.CountLoginHistoryByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestLoginHistory_OrderedByDate(t *testing.T) {
	db := testDB(t)
	q := db.Queries()
	ctx := context.Background()

	user := createTestUser(t, q, "frank")
	for _, d := range []string{"2026-10-16", "2026-01-02"} {
		require.NoError(t, q.CreateLoginHistory(ctx, CreateLoginHistoryParams{
			UserID: user.ID, SoilID: 1, HistoryDate: d, CreatedAt: time.Now(),
		}))
	}

	rows, err := q.ListLoginHistoryByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-01-02", rows[0].HistoryDate)
	assert.Equal(t, "2026-10-16", rows[1].HistoryDate)
}

func TestLoginHistory_UnknownSoilRejected(t *testing.T) {
	db := testDB(t)
	q := db.Queries()

	user := createTestUser(t, q, "gina")
	err := q.CreateLoginHistory(context.Background(), CreateLoginHistoryParams{
		UserID: user.ID, SoilID: 7, HistoryDate: "2026-10-16", CreatedAt: time.Now(),
	})
	assert.Error(t, err, "foreign key should reject unknown soil id")
}

func TestPlants_InsertionOrder(t *testing.T) {
	db := testDB(t)
	q := db.Queries()
	ctx := context.Background()

	for _, name := range []string{"Zinnia", "Aster", "Marigold"} {
		require.NoError(t, q.CreatePlant(ctx, CreatePlantParams{
			SoilID: 3, Name: name, Image: []byte{1, 2, 3},
		}))
	}
	require.NoError(t, q.CreatePlant(ctx, CreatePlantParams{SoilID: 1, Name: "Cotton", Image: []byte{4}}))

	plants, err := q.ListPlantsBySoil(ctx, 3)
	require.NoError(t, err)
	require.Len(t, plants, 3)
	assert.Equal(t, "Zinnia", plants[0].Name)
	assert.Equal(t, "Aster", plants[1].Name)
	assert.Equal(t, "Marigold", plants[2].Name)
	assert.Equal(t, []byte{1, 2, 3}, plants[0].Image)

	none, err := q.ListPlantsBySoil(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEvents_CreateAndPrune(t *testing.T) {
	db := testDB(t)
	q := db.Queries()
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, q.CreateEvent(ctx, CreateEventParams{
		Level: "info", Category: "auth", Message: "old", Metadata: "{}", CreatedAt: old,
	}))
	require.NoError(t, q.CreateEvent(ctx, CreateEventParams{
		Level: "warning", Category: "auth", Message: "new", Metadata: "{}", CreatedAt: time.Now(),
	}))

	require.NoError(t, q.DeleteOldEvents(ctx, time.Now().Add(-24*time.Hour)))

	events, err := q.ListRecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].Message)
}

func TestWithTx_Rollback(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	user := createTestUser(t, db.Queries(), "hank")
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(q *Queries) error {
		if err := q.CreateLoginHistory(ctx, CreateLoginHistoryParams{
			UserID: user.ID, SoilID: 1, HistoryDate: "2026-10-16", CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := db.Queries().CountLoginHistoryByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRebind(t *testing.T) {
	pg := New(nil, DialectPostgres)
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := New(nil, DialectSQLite)
	assert.Equal(t, "SELECT ? ", lite.rebind("SELECT ? "))

	assert.Equal(t, DialectSQLite, New(nil, "").dialect)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.Error(t, err)
}

func TestSeedDemo(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, SeedDemo(ctx, db, false))
	count, err := db.Queries().CountPlants(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, SeedDemo(ctx, db, true))
	count, err = db.Queries().CountPlants(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(demoPlants)), count)

	// Second run is a no-op.
	require.NoError(t, SeedDemo(ctx, db, true))
	count, err = db.Queries().CountPlants(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(demoPlants)), count)

	for _, soil := range []int64{1, 2, 3, 4} {
		plants, err := db.Queries().ListPlantsBySoil(ctx, soil)
		require.NoError(t, err)
		assert.NotEmpty(t, plants, "soil %d", soil)
	}
}
