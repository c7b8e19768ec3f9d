// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
)

const listPlantsBySoil = `
SELECT id, soil_id, name, image, description, treatment
FROM plants
WHERE soil_id = ?
ORDER BY id
`

func (q *Queries) ListPlantsBySoil(ctx context.Context, soilID int64) ([]Plant, error) {
	rows, err := q.query(ctx, listPlantsBySoil, soilID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []Plant
	for rows.Next() {
		var i Plant
		if err := rows.Scan(&i.ID, &i.SoilID, &i.Name, &i.Image, &i.Description, &i.Treatment); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createPlant = `
INSERT INTO plants (soil_id, name, image, description, treatment)
VALUES (?, ?, ?, ?, ?)
`

type CreatePlantParams struct {
	SoilID      int64
	Name        string
	Image       []byte
	Description string
	Treatment   string
}

func (q *Queries) CreatePlant(ctx context.Context, arg CreatePlantParams) error {
	_, err := q.exec(ctx, createPlant, arg.SoilID, arg.Name, arg.Image, arg.Description, arg.Treatment)
	return err
}

const countPlants = `
SELECT COUNT(*) FROM plants
`

func (q *Queries) CountPlants(ctx context.Context) (int64, error) {
	row := q.queryRow(ctx, countPlants)
	var count int64
	err := row.Scan(&count)
	return count, err
}
