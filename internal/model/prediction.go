// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "fmt"

// Prediction is the outcome of classifying one image.
type Prediction struct {
	Category      SoilCategory               `json:"category"`
	Label         string                     `json:"label"`
	Probabilities [NumSoilCategories]float64 `json:"probabilities"`
	Percentages   [NumSoilCategories]float64 `json:"percentages"`
}

// PercentageStrings formats each percentage as "12.34 %", keyed by category slug.
func (p Prediction) PercentageStrings() map[string]string {
	out := make(map[string]string, NumSoilCategories)
	for i, v := range p.Percentages {
		c, _ := SoilCategoryFromIndex(i)
		out[c.Slug()] = fmt.Sprintf("%.2f %%", v)
	}
	return out
}
