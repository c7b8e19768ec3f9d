// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/soilstation/internal/testutil"
)

func TestHealth_Public(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	resp := c.get(RouteHealth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]any{"status": "healthy"}, resp.Body)
}

const testHealthToken = "ops-secret"

func TestHealth_Detailed(t *testing.T) {
	app := newTestApp(t, withHealthToken(testHealthToken))
	c := app.newClient(t)

	resp := c.getWithToken(RouteHealth+"?verbose=true", testHealthToken)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "healthy", resp.Body["status"])
	assert.Equal(t, "local", resp.Body["storage"])
	assert.Equal(t, "test", resp.Body["version"].(map[string]any)["version"])

	checks := resp.Body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"].(map[string]any)["status"])
	assert.Equal(t, "healthy", checks["model"].(map[string]any)["status"])
	assert.NotNil(t, resp.Body["system"])
}

func TestHealth_SignedInUserGetsStatusOnly(t *testing.T) {
	app := newTestApp(t, withHealthToken(testHealthToken))
	app.model.failWith.Store(errBackendDown)
	c := app.newClient(t)
	c.signUpAndLogin("mallory")

	resp := c.get(RouteHealth + "?verbose=true")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, map[string]any{"status": "degraded"}, resp.Body)
	assert.NotContains(t, string(resp.Raw), errBackendDown.Error())

	resp = c.getWithToken(RouteHealth, "wrong-token")
	assert.Equal(t, map[string]any{"status": "degraded"}, resp.Body)
}

func TestHealth_NoTokenConfiguredHidesDetails(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	resp := c.getWithToken(RouteHealth, "")
	assert.Equal(t, map[string]any{"status": "healthy"}, resp.Body)
}

func TestHealth_OperatorSeesFixedMessages(t *testing.T) {
	app := newTestApp(t, withHealthToken(testHealthToken))
	app.model.failWith.Store(errBackendDown)
	c := app.newClient(t)

	resp := c.getWithToken(RouteHealth, testHealthToken)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	modelCheck := resp.Body["checks"].(map[string]any)["model"].(map[string]any)
	assert.Equal(t, "unhealthy", modelCheck["status"])
	assert.Equal(t, "Unavailable", modelCheck["message"])
	assert.NotContains(t, string(resp.Raw), errBackendDown.Error())
}

func TestHealth_ModelDown(t *testing.T) {
	app := newTestApp(t)
	app.model.failWith.Store(errBackendDown)
	c := app.newClient(t)

	resp := c.get(RouteHealth)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "degraded", resp.Body["status"])

	// Readiness depends on the database only.
	assert.Equal(t, http.StatusOK, c.get(RouteHealthReady).Code)
}

func TestHealth_DatabaseDown(t *testing.T) {
	db := testutil.TestDB(t)
	require.NoError(t, db.Close())
	h := NewHealthHandler(db, HealthOptions{Token: testHealthToken})

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, RouteHealthReady, nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")
	assert.NotContains(t, w.Body.String(), "message")

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, RouteHealthReady, nil)
	req.Header.Set("Authorization", "Bearer "+testHealthToken)
	h.Readiness(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"Unreachable"`)
	assert.NotContains(t, w.Body.String(), "closed")

	w = httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, RouteHealth, nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestHealth_Liveness(t *testing.T) {
	app := newTestApp(t)
	resp := app.newClient(t).get(RouteHealthLive)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "alive", resp.Body["status"])
}

func TestHealth_DiskCheck(t *testing.T) {
	db := testutil.TestDB(t)
	dir := t.TempDir()

	h := NewHealthHandler(db, HealthOptions{UploadsDir: dir})
	check := h.checkDiskSpace()
	assert.Contains(t, []string{statusHealthy, statusDegraded}, check.Status)
	assert.True(t, strings.HasSuffix(check.Message, "available"), check.Message)

	missing := NewHealthHandler(db, HealthOptions{UploadsDir: filepath.Join(dir, "nope")})
	assert.Equal(t, statusHealthy, missing.checkDiskSpace().Status)

	_, err := os.Stat(dir)
	require.NoError(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)
	c.signUpAndLogin("alice")
	require.Equal(t, http.StatusOK, c.upload(FieldImage, "a.png", testutil.PNGBytes(t, 8, 8)).Code)

	resp := c.get(RouteMetrics)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, string(resp.Raw), "soilstation_classifications_total")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}
