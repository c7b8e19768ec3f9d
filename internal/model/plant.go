// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "html/template"

// Plant is a catalogue entry recommended for a soil category.
type Plant struct {
	ID          int64
	SoilID      SoilCategory
	Name        string
	Image       []byte
	Description string
	Treatment   string
}

// Recommendation is a plant prepared for inline display: the stored image is
// re-encoded as PNG and embedded in a data URI.
type Recommendation struct {
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	ImageDataURI  string        `json:"image_data_uri"`
	Description   string        `json:"description"`
	Treatment     string        `json:"treatment"`
	TreatmentHTML template.HTML `json:"treatment_html"`
}
