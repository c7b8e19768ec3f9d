// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/soilstation/internal/metrics"
	"github.com/olegiv/soilstation/internal/middleware"
	"github.com/olegiv/soilstation/internal/model"
	"github.com/olegiv/soilstation/internal/service"
	"github.com/olegiv/soilstation/internal/session"
)

// DefaultMaxUploadSize is used when no upload limit is configured.
const DefaultMaxUploadSize = 10 << 20

// multipartMemory is the in-memory part of a parsed upload; the rest spills
// to temporary files.
const multipartMemory = 1 << 20

// SoilHandler serves classification, history and recommendations.
type SoilHandler struct {
	predictions     *service.PredictionService
	history         *service.HistoryService
	recommendations *service.RecommendationService
	sessionManager  *scs.SessionManager
	maxUploadSize   int64
	logger          *slog.Logger
}

// NewSoilHandler creates a new SoilHandler. maxUploadSize <= 0 selects
// DefaultMaxUploadSize.
func NewSoilHandler(
	predictions *service.PredictionService,
	history *service.HistoryService,
	recommendations *service.RecommendationService,
	sm *scs.SessionManager,
	maxUploadSize int64,
	logger *slog.Logger,
) *SoilHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SoilHandler{
		predictions:     predictions,
		history:         history,
		recommendations: recommendations,
		sessionManager:  sm,
		maxUploadSize:   maxUploadSize,
		logger:          logger,
	}
}

func predictionResponse(p model.Prediction) map[string]any {
	return map[string]any{
		"soil_id":            p.Category.ID(),
		"soil_label":         p.Label,
		"soil_slug":          p.Category.Slug(),
		"probabilities":      p.Probabilities,
		"percentages":        p.Percentages,
		"percentage_strings": p.PercentageStrings(),
	}
}

// Predict handles POST /predict with a multipart image in FieldImage.
func (h *SoilHandler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.ObserveRejectedUpload()
			writeJSONError(w, http.StatusRequestEntityTooLarge, msgImageTooLarge)
			return
		}
		writeJSONError(w, http.StatusBadRequest, msgMissingImage)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(FieldImage)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, msgMissingImage)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read upload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgMissingImage)
		return
	}
	if len(data) == 0 {
		writeJSONError(w, http.StatusBadRequest, msgMissingImage)
		return
	}

	st := middleware.GetState(r)
	res, err := h.predictions.Classify(r.Context(), st, data, header.Filename)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedImageType) {
			metrics.ObserveRejectedUpload()
		}
		// The classification itself succeeded; only the history write failed
		// or timed out. The session was left untouched.
		if errors.Is(err, service.ErrPersistence) && res.Prediction.Category.Valid() {
			writeJSONSuccess(w, map[string]any{
				"prediction": predictionResponse(res.Prediction),
				"upload":     res.Upload,
				"recorded":   false,
				"warning":    msgHistoryNotSaved,
			})
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	session.Save(r.Context(), h.sessionManager, st)

	writeJSONSuccess(w, map[string]any{
		"prediction": predictionResponse(res.Prediction),
		"upload":     res.Upload,
		"recorded":   true,
	})
}

// History handles GET /history.
func (h *SoilHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.ListForSession(r.Context(), middleware.GetState(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, map[string]any{
		"history": entries,
		"empty":   len(entries) == 0,
	})
}

// Plants handles GET /plants for the session's active category.
func (h *SoilHandler) Plants(w http.ResponseWriter, r *http.Request) {
	category, recs, err := h.recommendations.ForSession(r.Context(), middleware.GetState(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeRecommendations(w, category, recs)
}

// Shortcut handles /soil/{category}: it activates the category without a
// classification and returns its recommendations. No history is written.
func (h *SoilHandler) Shortcut(w http.ResponseWriter, r *http.Request) {
	h.activate(w, r, chi.URLParam(r, "category"))
}

// ShortcutFor returns a handler bound to a fixed category, used for the
// /black, /laterite, /peat and /yellow routes.
func (h *SoilHandler) ShortcutFor(c model.SoilCategory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.activate(w, r, c.Slug())
	}
}

func (h *SoilHandler) activate(w http.ResponseWriter, r *http.Request, raw string) {
	st := middleware.GetState(r)
	if !st.IsAuthenticated() {
		writeServiceError(w, r, h.logger, service.ErrNotAuthenticated)
		return
	}

	category, ok := model.ParseSoilCategory(raw)
	if !ok {
		writeServiceError(w, r, h.logger, service.ErrNoRecommendations)
		return
	}

	if err := service.ActivateCategory(st, category); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	session.Save(r.Context(), h.sessionManager, st)

	recs, err := h.recommendations.For(r.Context(), category)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeRecommendations(w, category, recs)
}

func writeRecommendations(w http.ResponseWriter, category model.SoilCategory, recs []model.Recommendation) {
	if recs == nil {
		recs = []model.Recommendation{}
	}
	writeJSONSuccess(w, map[string]any{
		"soil_id":    category.ID(),
		"soil_label": category.Label(),
		"soil_slug":  category.Slug(),
		"plants":     recs,
	})
}
