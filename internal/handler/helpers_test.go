// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/soilstation/internal/classifier"
	"github.com/olegiv/soilstation/internal/middleware"
	"github.com/olegiv/soilstation/internal/service"
	"github.com/olegiv/soilstation/internal/session"
	"github.com/olegiv/soilstation/internal/storage"
	"github.com/olegiv/soilstation/internal/store"
	"github.com/olegiv/soilstation/internal/testutil"
	"github.com/olegiv/soilstation/internal/version"
)

// strongPassword satisfies the password policy.
const strongPassword = "Abc12345!"

// fixedModel returns the configured probability vector, or failWith.
type fixedModel struct {
	probs    atomic.Value // []float64
	failWith atomic.Value // error
	calls    atomic.Int64
}

func newFixedModel(probs ...float64) *fixedModel {
	m := &fixedModel{}
	m.probs.Store(probs)
	return m
}

func (m *fixedModel) Predict(context.Context, classifier.Tensor) ([]float64, error) {
	m.calls.Add(1)
	if err, ok := m.failWith.Load().(error); ok && err != nil {
		return nil, err
	}
	return m.probs.Load().([]float64), nil
}

func (m *fixedModel) Ready(context.Context) error {
	if err, ok := m.failWith.Load().(error); ok && err != nil {
		return err
	}
	return nil
}

type testApp struct {
	db     *store.DB
	model  *fixedModel
	lp     *middleware.LoginProtection
	server *httptest.Server
}

type appOption func(*RouterConfig)

func withMaxUploadSize(n int64) appOption {
	return func(cfg *RouterConfig) {
		cfg.Soil.maxUploadSize = n
	}
}

// newTestApp wires the full router over a migrated SQLite database, local
// upload storage and a fixed model returning Black Soil.
func withHealthToken(token string) appOption {
	return func(cfg *RouterConfig) {
		cfg.Health.token = token
	}
}

func withRateLimit(rps float64, burst int, trustProxy bool) appOption {
	return func(cfg *RouterConfig) {
		cfg.RateLimiter = middleware.NewIPRateLimiter(rps, burst)
		cfg.TrustProxy = trustProxy
	}
}

func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()

	db := testutil.TestDB(t)
	require.NoError(t, store.SeedDemo(context.Background(), db, true))

	ls, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	logger := testutil.TestLoggerSilent()
	m := newFixedModel(0.7, 0.1, 0.1, 0.1)
	sm := session.New(db, true)

	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       1000,
		IPBurst:           1000,
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})
	t.Cleanup(lp.Stop)

	events := service.NewEventService(db, logger)
	accounts := service.NewAccountService(db, 5*time.Second, logger)
	intake := service.NewIntakeService(ls, 5*time.Second, logger)
	history := service.NewHistoryService(db, 5*time.Second)
	recs := service.NewRecommendationService(db, nil, time.Hour, 5*time.Second, logger)
	predictions := service.NewPredictionService(intake, classifier.New(m, 5*time.Second), history, events, logger)

	cfg := RouterConfig{
		Sessions:        sm,
		Auth:            NewAuthHandler(accounts, sm, events, lp, logger),
		Soil:            NewSoilHandler(predictions, history, recs, sm, 0, logger),
		Health:          NewHealthHandler(db, HealthOptions{Model: m, Storage: ls.Name(), Version: version.Info{Version: "test"}}),
		LoginProtection: lp,
		RequestTimeout:  10 * time.Second,
		IsDevelopment:   true,
		ExposeMetrics:   true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(srv.Close)

	return &testApp{db: db, model: m, lp: lp, server: srv}
}

// client is a browser-like client with its own cookie jar.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (a *testApp) newClient(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: a.server.URL, http: &http.Client{Jar: jar}}
}

type response struct {
	Code int
	Body map[string]any
	Raw  []byte
}

func (c *client) do(req *http.Request) response {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	out := response{Code: resp.StatusCode, Raw: raw}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(raw, &out.Body), "body: %s", raw)
	}
	return out
}

func (c *client) get(path string) response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

func (c *client) getWithToken(path, token string) response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req)
}

func (c *client) postForm(path string, form url.Values) response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) postJSON(path string, body any) response {
	c.t.Helper()
	b, err := json.Marshal(body)
	require.NoError(c.t, err)
	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(b))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(field, filename string, data []byte) response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(c.t, err)
	_, err = fw.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+RoutePredict, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func credentialsForm(username, password string) url.Values {
	return url.Values{FieldUsername: {username}, FieldPassword: {password}}
}

// signUpAndLogin creates username and signs the client in.
func (c *client) signUpAndLogin(username string) {
	c.t.Helper()
	resp := c.postForm(RouteSignup, credentialsForm(username, strongPassword))
	require.Equal(c.t, http.StatusCreated, resp.Code, "signup: %s", resp.Raw)
	resp = c.postForm(RouteLogin, credentialsForm(username, strongPassword))
	require.Equal(c.t, http.StatusOK, resp.Code, "login: %s", resp.Raw)
}

var errBackendDown = errors.New("backend down")
