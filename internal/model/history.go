// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// DateLayout is the storage and display layout of classification dates.
const DateLayout = "2006-01-02"

// HistoryEntry is one classification event joined with its category label.
type HistoryEntry struct {
	SoilID    SoilCategory `json:"soil_id"`
	SoilLabel string       `json:"soil_label"`
	Date      string       `json:"date"`
}
