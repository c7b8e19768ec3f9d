// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// SoilCategory identifies one of the four fixed classification outcomes.
// The numeric value is the stable reference id stored in soil_types.
type SoilCategory int64

// Soil categories in model output order. The classifier's probability
// vector index i corresponds to category i+1.
const (
	SoilBlack    SoilCategory = 1
	SoilLaterite SoilCategory = 2
	SoilPeat     SoilCategory = 3
	SoilYellow   SoilCategory = 4
)

// NumSoilCategories is the width of the classifier's probability vector.
const NumSoilCategories = 4

// SoilCategories lists every category in id order.
var SoilCategories = []SoilCategory{SoilBlack, SoilLaterite, SoilPeat, SoilYellow}

var soilLabels = map[SoilCategory]string{
	SoilBlack:    "Black Soil",
	SoilLaterite: "Laterite Soil",
	SoilPeat:     "Peat Soil",
	SoilYellow:   "Yellow Soil",
}

var soilSlugs = map[SoilCategory]string{
	SoilBlack:    "black",
	SoilLaterite: "laterite",
	SoilPeat:     "peat",
	SoilYellow:   "yellow",
}

// Valid reports whether c is one of the four known categories.
func (c SoilCategory) Valid() bool {
	_, ok := soilLabels[c]
	return ok
}

// ID returns the reference id of the category.
func (c SoilCategory) ID() int64 {
	return int64(c)
}

// Label returns the display label, e.g. "Black Soil".
func (c SoilCategory) Label() string {
	if l, ok := soilLabels[c]; ok {
		return l
	}
	return fmt.Sprintf("SoilCategory(%d)", int64(c))
}

// Slug returns the short lowercase name used in shortcut routes.
func (c SoilCategory) Slug() string {
	return soilSlugs[c]
}

// String implements fmt.Stringer.
func (c SoilCategory) String() string {
	return c.Label()
}

// SoilCategoryFromIndex maps a zero-based probability index to its category.
func SoilCategoryFromIndex(i int) (SoilCategory, bool) {
	c := SoilCategory(i + 1)
	return c, c.Valid()
}

// Index returns the zero-based position of the category in the probability vector.
func (c SoilCategory) Index() int {
	return int(c) - 1
}

// ParseSoilCategory accepts either a numeric id ("2") or a slug ("laterite").
func ParseSoilCategory(s string) (SoilCategory, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, slug := range soilSlugs {
		if s == slug || s == fmt.Sprintf("%d", int64(c)) {
			return c, true
		}
	}
	return 0, false
}
