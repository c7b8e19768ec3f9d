// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseSize caps the body read from the model server.
const maxResponseSize = 1 << 20

// TFServingModel calls a TensorFlow Serving REST endpoint.
type TFServingModel struct {
	baseURL string
	name    string
	client  *http.Client
}

// NewTFServingModel creates a client for the model served at baseURL under name.
func NewTFServingModel(baseURL, name string, timeout time.Duration) (*TFServingModel, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid model url %q", baseURL)
	}
	if name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &TFServingModel{
		baseURL: strings.TrimRight(baseURL, "/"),
		name:    name,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type predictRequest struct {
	Instances []Tensor `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

type statusResponse struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
	} `json:"model_version_status"`
}

// Predict implements Model.
func (m *TFServingModel) Predict(ctx context.Context, input Tensor) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Instances: []Tensor{input}})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/models/%s:predict", m.baseURL, url.PathEscape(m.name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server returned %d: %s", resp.StatusCode, out.Error)
	}
	if len(out.Predictions) != 1 {
		return nil, fmt.Errorf("%w: got %d predictions for one instance", ErrInvalidOutput, len(out.Predictions))
	}
	return out.Predictions[0], nil
}

// Ready reports whether at least one model version is AVAILABLE.
func (m *TFServingModel) Ready(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/v1/models/%s", m.baseURL, url.PathEscape(m.name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("model status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model status returned %d", resp.StatusCode)
	}

	var st statusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&st); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	for _, v := range st.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			return nil
		}
	}
	return fmt.Errorf("model %q has no available version", m.name)
}
