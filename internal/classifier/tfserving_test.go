// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *TFServingModel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m, err := NewTFServingModel(srv.URL, "soil_type", 5*time.Second)
	require.NoError(t, err)
	return m
}

func TestTFServingModel_Predict(t *testing.T) {
	m := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/models/soil_type:predict", r.URL.Path)

		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Instances, 1)

		_, _ = w.Write([]byte(`{"predictions":[[0.1,0.2,0.3,0.4]]}`))
	})

	probs, err := m.Predict(context.Background(), Tensor{{{0, 0, 0}}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, probs)
}

func TestTFServingModel_PredictServerError(t *testing.T) {
	m := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"input shape mismatch"}`))
	})

	_, err := m.Predict(context.Background(), Tensor{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input shape mismatch")
}

func TestTFServingModel_PredictWrongCardinality(t *testing.T) {
	m := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[]}`))
	})

	_, err := m.Predict(context.Background(), Tensor{})
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestTFServingModel_Ready(t *testing.T) {
	var available atomic.Bool
	m := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models/soil_type", r.URL.Path)
		state := "LOADING"
		if available.Load() {
			state = "AVAILABLE"
		}
		_, _ = w.Write([]byte(`{"model_version_status":[{"version":"1","state":"` + state + `"}]}`))
	})

	assert.Error(t, m.Ready(context.Background()))

	available.Store(true)
	assert.NoError(t, m.Ready(context.Background()))
}

func TestNewTFServingModel_Validation(t *testing.T) {
	_, err := NewTFServingModel("ftp://host", "soil", time.Second)
	assert.Error(t, err)

	_, err = NewTFServingModel("http://localhost:8501", "", time.Second)
	assert.Error(t, err)
}
