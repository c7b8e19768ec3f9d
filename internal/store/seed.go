// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
)

// demoPlant is a catalogue entry created by SeedDemo.
type demoPlant struct {
	soilID      int64
	name        string
	swatch      color.RGBA
	description string
	treatment   string
}

var demoPlants = []demoPlant{
	{1, "Cotton", color.RGBA{R: 240, G: 240, B: 235, A: 255},
		"Deep-rooted fibre crop that thrives in moisture-retentive black soil.",
		"- Sow after the first monsoon rains\n- Apply **gypsum** where the soil cracks badly\n- Avoid waterlogging during boll formation"},
	{1, "Sugarcane", color.RGBA{R: 120, G: 170, B: 70, A: 255},
		"Long-duration cash crop suited to the high clay content of black soil.",
		"- Plant setts in furrows\n- Earth up at 90 days\n- Irrigate every 7 to 10 days in summer"},
	{2, "Cashew", color.RGBA{R: 200, G: 90, B: 60, A: 255},
		"Hardy tree crop tolerant of the acidic, leached laterite profile.",
		"- Add **lime** to correct acidity\n- Mulch basins to conserve moisture\n- Prune dead wood after harvest"},
	{2, "Tea", color.RGBA{R: 60, G: 110, B: 50, A: 255},
		"Shrub grown on well-drained laterite slopes in high-rainfall areas.",
		"- Maintain soil pH between 4.5 and 5.5\n- Provide shade trees\n- Apply nitrogen in split doses"},
	{3, "Rice", color.RGBA{R: 210, G: 200, B: 140, A: 255},
		"Paddy tolerates the waterlogged, organic-rich conditions of peat soil.",
		"- Puddle fields before transplanting\n- Add **potash** and phosphate\n- Drain briefly before harvest"},
	{3, "Jute", color.RGBA{R: 170, G: 140, B: 90, A: 255},
		"Fibre crop that benefits from the high humus content of peat.",
		"- Broadcast seed in spring\n- Thin seedlings to 7 cm spacing\n- Ret stems in slow-moving water"},
	{4, "Groundnut", color.RGBA{R: 190, G: 150, B: 100, A: 255},
		"Legume suited to the light, well-drained texture of yellow soil.",
		"- Apply **gypsum** at flowering\n- Keep the pegging zone loose\n- Rotate with cereals"},
	{4, "Maize", color.RGBA{R: 235, G: 200, B: 60, A: 255},
		"Cereal that responds well to fertilised yellow soil.",
		"- Apply farmyard manure before sowing\n- Side-dress nitrogen at knee height\n- Control weeds for the first 45 days"},
}

// SeedDemo creates a demo plant catalogue when enabled and the catalogue is empty.
func SeedDemo(ctx context.Context, db *DB, enabled bool) error {
	if !enabled {
		return nil
	}

	queries := db.Queries()

	count, err := queries.CountPlants(ctx)
	if err != nil {
		return fmt.Errorf("counting plants: %w", err)
	}
	if count > 0 {
		slog.Info("plant catalogue already populated, skipping seed", "plants", count)
		return nil
	}

	for _, p := range demoPlants {
		img, err := swatchJPEG(p.swatch)
		if err != nil {
			return fmt.Errorf("rendering image for %s: %w", p.name, err)
		}
		if err := queries.CreatePlant(ctx, CreatePlantParams{
			SoilID:      p.soilID,
			Name:        p.name,
			Image:       img,
			Description: p.description,
			Treatment:   p.treatment,
		}); err != nil {
			return fmt.Errorf("creating plant %s: %w", p.name, err)
		}
	}

	slog.Info("seeded demo plant catalogue", "plants", len(demoPlants))
	return nil
}

// swatchJPEG renders a small solid-colour JPEG used as a placeholder plant image.
func swatchJPEG(c color.RGBA) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
