// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/soilstation/internal/metrics"
	"github.com/olegiv/soilstation/internal/model"
	"github.com/olegiv/soilstation/internal/session"
)

// Classifier is the frozen-model capability used by PredictionService.
type Classifier interface {
	Classify(ctx context.Context, data []byte) (model.Prediction, error)
}

// ClassifyResult is the outcome of one classification request.
type ClassifyResult struct {
	Prediction model.Prediction `json:"prediction"`
	Upload     model.Upload     `json:"upload"`
}

// PredictionService runs the upload, classify, record sequence.
type PredictionService struct {
	intake     *IntakeService
	classifier Classifier
	history    *HistoryService
	events     *EventService
	logger     *slog.Logger
	now        func() time.Time
}

// NewPredictionService wires the classification workflow. events may be nil.
func NewPredictionService(intake *IntakeService, c Classifier, history *HistoryService, events *EventService, logger *slog.Logger) *PredictionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictionService{
		intake:     intake,
		classifier: c,
		history:    history,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// Classify validates and stores data, then classifies the stored upload.
// See ClassifyUpload for the side effects.
func (s *PredictionService) Classify(ctx context.Context, st *session.State, data []byte, originalName string) (ClassifyResult, error) {
	if !st.IsAuthenticated() {
		return ClassifyResult{}, ErrNotAuthenticated
	}

	up, err := s.intake.Accept(ctx, data, originalName)
	if err != nil {
		return ClassifyResult{}, err
	}
	return s.ClassifyUpload(ctx, st, up)
}

// ClassifyUpload classifies a previously accepted upload.
//
// On success one history row is appended for st.UserID and then st is
// marked predicted with the resulting category. The row is written first, so
// a failed write never leaves the session pointing at an unrecorded result:
// the prediction is returned together with an ErrPersistence error and st is
// left unchanged.
func (s *PredictionService) ClassifyUpload(ctx context.Context, st *session.State, up model.Upload) (ClassifyResult, error) {
	if !st.IsAuthenticated() {
		return ClassifyResult{}, ErrNotAuthenticated
	}

	data, err := s.intake.Load(ctx, up.Key)
	if err != nil {
		return ClassifyResult{}, err
	}

	pred, err := s.classifier.Classify(ctx, data)
	if err != nil {
		s.logger.Error("classification failed", "user_id", st.UserID, "upload", up.Key, "error", err)
		if isTimeout(err) {
			return ClassifyResult{}, fmt.Errorf("%w: %w: %w", ErrModelInference, ErrTimeout, err)
		}
		return ClassifyResult{}, fmt.Errorf("%w: %w", ErrModelInference, err)
	}

	res := ClassifyResult{Prediction: pred, Upload: up}

	if err := s.history.Record(ctx, st.UserID, pred.Category, s.now()); err != nil {
		s.logger.Error("classification succeeded but history write failed",
			"user_id", st.UserID, "category", pred.Category.Slug(), "error", err)
		if !errors.Is(err, ErrPersistence) {
			err = fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return res, err
	}

	st.Activate(pred.Category)
	metrics.ObserveClassification(pred.Category.Slug())

	if s.events != nil {
		_ = s.events.LogPredictEvent(ctx, model.EventLevelInfo, "Soil classified", st.UserID, "", map[string]any{
			"category": pred.Category.Slug(),
			"upload":   up.Key,
		})
	}

	return res, nil
}
