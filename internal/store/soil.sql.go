// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
)

const getSoilType = `
SELECT id, name FROM soil_types WHERE id = ?
`

func (q *Queries) GetSoilType(ctx context.Context, id int64) (SoilType, error) {
	row := q.queryRow(ctx, getSoilType, id)
	var i SoilType
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const listSoilTypes = `
SELECT id, name FROM soil_types ORDER BY id
`

func (q *Queries) ListSoilTypes(ctx context.Context) ([]SoilType, error) {
	rows, err := q.query(ctx, listSoilTypes)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []SoilType
	for rows.Next() {
		var i SoilType
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
