// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createLoginHistory = `
INSERT INTO login_history (user_id, soil_id, history_date, created_at)
VALUES (?, ?, ?, ?)
`

type CreateLoginHistoryParams struct {
	UserID      int64
	SoilID      int64
	HistoryDate string
	CreatedAt   time.Time
}

func (q *Queries) CreateLoginHistory(ctx context.Context, arg CreateLoginHistoryParams) error {
	_, err := q.exec(ctx, createLoginHistory, arg.UserID, arg.SoilID, arg.HistoryDate, arg.CreatedAt)
	return err
}

const listLoginHistoryByUser = `
SELECT soil_types.id, soil_types.name, CAST(login_history.history_date AS TEXT)
FROM login_history
JOIN soil_types ON login_history.soil_id = soil_types.id
WHERE login_history.user_id = ?
ORDER BY login_history.history_date, login_history.id
`

type ListLoginHistoryByUserRow struct {
	SoilID      int64
	SoilName    string
	HistoryDate string
}

func (q *Queries) ListLoginHistoryByUser(ctx context.Context, userID int64) ([]ListLoginHistoryByUserRow, error) {
	rows, err := q.query(ctx, listLoginHistoryByUser, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []ListLoginHistoryByUserRow
	for rows.Next() {
		var i ListLoginHistoryByUserRow
		if err := rows.Scan(&i.SoilID, &i.SoilName, &i.HistoryDate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countLoginHistoryByUser = `
SELECT COUNT(*) FROM login_history WHERE user_id = ?
`

func (q *Queries) CountLoginHistoryByUser(ctx context.Context, userID int64) (int64, error) {
	row := q.queryRow(ctx, countLoginHistoryByUser, userID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
