// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/soilstation/internal/auth"
	"github.com/olegiv/soilstation/internal/middleware"
	"github.com/olegiv/soilstation/internal/service"
)

// User-facing messages. They never carry internal detail.
const (
	msgUnsupportedImage   = "Invalid file type. Please upload a PNG, JPEG, JPG or JFIF image."
	msgNotAuthenticated   = "Please log in to continue."
	msgNoPrediction       = "Upload a soil image or choose a soil type first."
	msgInvalidCredentials = "Invalid username or password."
	msgUsernameTaken      = "That username is already taken."
	msgInvalidUsername    = "Username must be 1 to 64 characters with no spaces."
	msgNoRecommendations  = "Unknown soil type."
	msgModelInference     = "The soil image could not be classified. Please try again."
	msgInternal           = "Something went wrong. Please try again later."
	msgMissingImage       = "Please choose an image to upload."
	msgImageTooLarge      = "The image is too large."
	msgMissingCredentials = "Username and password are required."
	msgHistoryNotSaved    = "Your result could not be saved to your history."
)

// errorResponse maps a workflow error to a status code and message.
// Timeouts are checked first since they also wrap inference and
// persistence failures.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout, middleware.TimeoutMessage
	case errors.Is(err, service.ErrUnsupportedImageType):
		return http.StatusUnsupportedMediaType, msgUnsupportedImage
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized, msgNotAuthenticated
	case errors.Is(err, service.ErrNoPrediction):
		return http.StatusConflict, msgNoPrediction
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict, msgUsernameTaken
	case errors.Is(err, service.ErrWeakPassword):
		return http.StatusUnprocessableEntity, auth.PasswordPolicyMessage
	case errors.Is(err, service.ErrInvalidUsername):
		return http.StatusUnprocessableEntity, msgInvalidUsername
	case errors.Is(err, service.ErrNoRecommendations):
		return http.StatusNotFound, msgNoRecommendations
	case errors.Is(err, service.ErrModelInference):
		return http.StatusBadGateway, msgModelInference
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeServiceError logs err and writes the mapped JSON error.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code, msg := errorResponse(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", code, "error", err)
	} else {
		logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", code, "error", err)
	}
	writeJSONError(w, code, msg)
}
