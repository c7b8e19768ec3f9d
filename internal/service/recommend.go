// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strconv"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/olegiv/soilstation/internal/cache"
	"github.com/olegiv/soilstation/internal/imaging"
	"github.com/olegiv/soilstation/internal/metrics"
	"github.com/olegiv/soilstation/internal/model"
	"github.com/olegiv/soilstation/internal/session"
	"github.com/olegiv/soilstation/internal/store"
	"github.com/olegiv/soilstation/internal/util"
)

// recommendationKeyPrefix prefixes every cached recommendation list.
const recommendationKeyPrefix = "recommendations:"

// treatmentSanitizer strips anything unsafe from rendered treatment markdown.
var treatmentSanitizer = bluemonday.UGCPolicy()

// RecommendationService returns plant recommendations for a soil category
// with images re-encoded as inline PNG data URIs.
type RecommendationService struct {
	db      *store.DB
	cache   *cache.TypedCache[[]model.Recommendation]
	backing cache.Cacher
	md      goldmark.Markdown
	timeout time.Duration
	logger  *slog.Logger
}

// NewRecommendationService creates a RecommendationService. c may be nil to
// disable caching.
func NewRecommendationService(db *store.DB, c cache.Cacher, ttl, timeout time.Duration, logger *slog.Logger) *RecommendationService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RecommendationService{
		db:      db,
		backing: c,
		md:      goldmark.New(),
		timeout: timeout,
		logger:  logger,
	}
	if c != nil {
		s.cache = cache.NewTypedCache[[]model.Recommendation](c, ttl)
	}
	return s
}

// For returns the recommendations for category in plant insertion order.
// An invalid category yields ErrNoRecommendations; a valid category without
// plants yields an empty, non-nil slice.
func (s *RecommendationService) For(ctx context.Context, category model.SoilCategory) ([]model.Recommendation, error) {
	if !category.Valid() {
		return nil, ErrNoRecommendations
	}

	if s.cache == nil {
		return s.load(ctx, category)
	}

	recs, hit, err := s.cache.GetOrSet(ctx, recommendationKey(category), func() ([]model.Recommendation, error) {
		return s.load(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveCacheLookup(hit)
	return recs, nil
}

// ForSession returns recommendations for the active category of st. The
// session must be authenticated and must have a prediction, either from a
// classification or from a category shortcut.
func (s *RecommendationService) ForSession(ctx context.Context, st *session.State) (model.SoilCategory, []model.Recommendation, error) {
	if !st.IsAuthenticated() {
		return 0, nil, ErrNotAuthenticated
	}
	if !st.CanRecommend() {
		return 0, nil, ErrNoPrediction
	}
	recs, err := s.For(ctx, st.SoilID)
	return st.SoilID, recs, err
}

// Invalidate drops every cached recommendation list.
func (s *RecommendationService) Invalidate(ctx context.Context) error {
	if s.backing == nil {
		return nil
	}
	return s.backing.DeleteByPrefix(ctx, recommendationKeyPrefix)
}

func (s *RecommendationService) load(ctx context.Context, category model.SoilCategory) ([]model.Recommendation, error) {
	ctx, cancel := boundedContext(ctx, s.timeout)
	defer cancel()

	queries := s.db.Queries()

	// The category must also exist in reference data.
	if _, err := queries.GetSoilType(ctx, category.ID()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRecommendations
		}
		return nil, persistenceError("load soil type", err)
	}

	plants, err := queries.ListPlantsBySoil(ctx, category.ID())
	if err != nil {
		return nil, persistenceError("list plants", err)
	}

	recs := make([]model.Recommendation, 0, len(plants))
	for _, p := range plants {
		uri, err := imaging.PNGDataURI(p.Image)
		if err != nil {
			s.logger.Warn("plant image could not be re-encoded", "plant_id", p.ID, "error", err)
		}
		recs = append(recs, model.Recommendation{
			Name:          p.Name,
			Slug:          util.Slugify(p.Name),
			ImageDataURI:  uri,
			Description:   p.Description,
			Treatment:     p.Treatment,
			TreatmentHTML: s.renderTreatment(p.Treatment),
		})
	}
	return recs, nil
}

// renderTreatment converts markdown treatment text to sanitized HTML.
func (s *RecommendationService) renderTreatment(src string) template.HTML {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(treatmentSanitizer.SanitizeBytes(buf.Bytes())) //nolint:gosec // sanitized above
}

func recommendationKey(c model.SoilCategory) string {
	return recommendationKeyPrefix + strconv.FormatInt(c.ID(), 10)
}

// ActivateCategory makes category the active one for st without running the
// classifier. No history row is written: shortcut activations are browsing,
// not classification.
func ActivateCategory(st *session.State, category model.SoilCategory) error {
	if !st.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if !category.Valid() {
		return fmt.Errorf("%w: unknown soil category %d", ErrNoRecommendations, category)
	}
	st.Activate(category)
	return nil
}
