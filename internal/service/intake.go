// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/olegiv/soilstation/internal/imaging"
	"github.com/olegiv/soilstation/internal/metrics"
	"github.com/olegiv/soilstation/internal/model"
	"github.com/olegiv/soilstation/internal/storage"
	"github.com/olegiv/soilstation/internal/util"
)

// IntakeService validates uploads by content and writes accepted images to
// storage under random keys.
type IntakeService struct {
	store   storage.Store
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewIntakeService creates an IntakeService. timeout bounds the storage write.
func NewIntakeService(store storage.Store, timeout time.Duration, logger *slog.Logger) *IntakeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntakeService{store: store, timeout: timeout, logger: logger, now: time.Now}
}

// Validate sniffs data and returns its format. Only PNG and JPEG content
// (including .jpg and .jfif files) is accepted. The file name plays no part.
func (s *IntakeService) Validate(data []byte) (string, error) {
	format := imaging.DetectFormat(data)
	if !imaging.IsUploadFormat(format) {
		metrics.ObserveRejectedUpload()
		return "", ErrUnsupportedImageType
	}
	return format, nil
}

// Accept validates data and writes it to storage. Nothing is written when
// validation fails.
func (s *IntakeService) Accept(ctx context.Context, data []byte, originalName string) (model.Upload, error) {
	format, err := s.Validate(data)
	if err != nil {
		return model.Upload{}, err
	}

	up := model.Upload{
		Key:          storage.NewKey(s.now().UTC(), imaging.FormatExtension(format)),
		OriginalName: util.CleanFilename(originalName),
		Format:       format,
		MimeType:     imaging.FormatMimeType(format),
		Size:         int64(len(data)),
	}

	ctx, cancel := boundedContext(ctx, s.timeout)
	defer cancel()

	if err := s.store.Put(ctx, up.Key, data, up.MimeType); err != nil {
		s.logger.Error("failed to store upload", "key", up.Key, "backend", s.store.Name(), "error", err)
		return model.Upload{}, persistenceError("store upload", err)
	}

	return up, nil
}

// Load reads a previously accepted upload back from storage.
func (s *IntakeService) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := boundedContext(ctx, s.timeout)
	defer cancel()

	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, persistenceError("load upload", err)
	}
	return data, nil
}
