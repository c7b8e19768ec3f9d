// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSoilCategory_Labels(t *testing.T) {
	tests := []struct {
		cat   SoilCategory
		id    int64
		label string
		slug  string
	}{
		{SoilBlack, 1, "Black Soil", "black"},
		{SoilLaterite, 2, "Laterite Soil", "laterite"},
		{SoilPeat, 3, "Peat Soil", "peat"},
		{SoilYellow, 4, "Yellow Soil", "yellow"},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			assert.True(t, tt.cat.Valid())
			assert.Equal(t, tt.id, tt.cat.ID())
			assert.Equal(t, tt.label, tt.cat.Label())
			assert.Equal(t, tt.slug, tt.cat.Slug())
			assert.Equal(t, int(tt.id-1), tt.cat.Index())
		})
	}
}

func TestSoilCategory_Invalid(t *testing.T) {
	for _, c := range []SoilCategory{0, 5, -1} {
		assert.False(t, c.Valid(), "category %d", c)
	}
	assert.Equal(t, "SoilCategory(9)", SoilCategory(9).Label())
}

func TestSoilCategoryFromIndex(t *testing.T) {
	c, ok := SoilCategoryFromIndex(0)
	assert.True(t, ok)
	assert.Equal(t, SoilBlack, c)

	c, ok = SoilCategoryFromIndex(3)
	assert.True(t, ok)
	assert.Equal(t, SoilYellow, c)

	_, ok = SoilCategoryFromIndex(4)
	assert.False(t, ok)
}

func TestParseSoilCategory(t *testing.T) {
	tests := []struct {
		in   string
		want SoilCategory
		ok   bool
	}{
		{"1", SoilBlack, true},
		{"laterite", SoilLaterite, true},
		{" Peat ", SoilPeat, true},
		{"4", SoilYellow, true},
		{"0", 0, false},
		{"clay", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSoilCategory(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrediction_PercentageStrings(t *testing.T) {
	p := Prediction{Percentages: [NumSoilCategories]float64{81.25, 10.5, 8.25, 0}}
	got := p.PercentageStrings()

	assert.Equal(t, "81.25 %", got["black"])
	assert.Equal(t, "10.50 %", got["laterite"])
	assert.Equal(t, "8.25 %", got["peat"])
	assert.Equal(t, "0.00 %", got["yellow"])
}
