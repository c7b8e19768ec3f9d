// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/olegiv/soilstation/internal/scheduler"
	"github.com/olegiv/soilstation/internal/store"
	"github.com/olegiv/soilstation/internal/version"
)

// Check status values.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// checkTimeout bounds each dependency check.
const checkTimeout = 3 * time.Second

// ModelChecker reports whether the inference backend can serve requests.
type ModelChecker interface {
	Ready(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db         *store.DB
	model      ModelChecker
	storage    string
	uploadsDir string
	jobs       *scheduler.Registry
	version    version.Info
	token      string
	logger     *slog.Logger
	startTime  time.Time
}

// HealthOptions configures the optional checks of a HealthHandler.
type HealthOptions struct {
	// Model is checked when set.
	Model ModelChecker
	// Storage names the upload backend.
	Storage string
	// UploadsDir enables the disk space check for local storage.
	UploadsDir string
	// Jobs lists scheduled jobs in the detailed view.
	Jobs    *scheduler.Registry
	Version version.Info
	// Token unlocks the detailed view when sent as a bearer credential.
	// Without it every caller gets the overall status only.
	Token  string
	Logger *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *store.DB, opts HealthOptions) *HealthHandler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &HealthHandler{
		db:         db,
		model:      opts.Model,
		storage:    opts.Storage,
		uploadsDir: opts.UploadsDir,
		jobs:       opts.Jobs,
		version:    opts.Version,
		token:      opts.Token,
		logger:     opts.Logger,
		startTime:  time.Now(),
	}
}

// HealthStatusPublic is the minimal health response for callers without the
// operator token.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus is the detailed response for operators.
type HealthStatus struct {
	Status    string              `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	Uptime    string              `json:"uptime"`
	Version   version.Info        `json:"version"`
	Storage   string              `json:"storage,omitempty"`
	Checks    map[string]Check    `json:"checks"`
	Jobs      []scheduler.JobInfo `json:"jobs,omitempty"`
	System    *SystemInfo         `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health. Store or model failures report 503.
// Callers without the operator token get the overall status only.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{
		"database": h.checkDatabase(r.Context()),
	}
	if h.model != nil {
		checks["model"] = h.checkModel(r.Context())
	}
	if h.uploadsDir != "" {
		checks["disk"] = h.checkDiskSpace()
	}

	overall := statusHealthy
	for name, c := range checks {
		if c.Status == statusHealthy {
			continue
		}
		if name == "disk" && c.Status == statusDegraded {
			continue
		}
		overall = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	if overall != statusHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if !h.isOperator(r) {
		_ = json.NewEncoder(w).Encode(HealthStatusPublic{Status: overall})
		return
	}

	status := HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Storage:   h.storage,
		Checks:    checks,
	}
	if h.jobs != nil {
		status.Jobs = h.jobs.List()
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = getSystemInfo()
	}

	_ = json.NewEncoder(w).Encode(status)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	})
}

// Readiness handles GET /health/ready. Only the database gates readiness;
// a model outage degrades classification but not the rest of the service.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())

	w.Header().Set("Content-Type", "application/json")

	if dbCheck.Status == statusHealthy {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
		})
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	resp := map[string]string{
		"status": "not_ready",
	}
	if h.isOperator(r) {
		resp["message"] = dbCheck.Message
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		h.logger.Warn("health check: database unreachable", "error", err)
		return Check{Status: statusUnhealthy, Message: "Unreachable", Latency: latency.String()}
	}
	return Check{Status: statusHealthy, Message: "Connected", Latency: latency.String()}
}

func (h *HealthHandler) checkModel(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := h.model.Ready(ctx)
	latency := time.Since(start)

	if err != nil {
		h.logger.Warn("health check: model unavailable", "error", err)
		return Check{Status: statusUnhealthy, Message: "Unavailable", Latency: latency.String()}
	}
	return Check{Status: statusHealthy, Message: "Available", Latency: latency.String()}
}

// isOperator reports whether r carries the configured bearer token.
func (h *HealthHandler) isOperator(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(h.token)) == 1
}

// checkDiskSpace checks available disk space in the uploads directory.
func (h *HealthHandler) checkDiskSpace() Check {
	if _, err := os.Stat(h.uploadsDir); os.IsNotExist(err) {
		return Check{Status: statusHealthy, Message: "Uploads directory does not exist yet"}
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(h.uploadsDir, &stat); err != nil {
		h.logger.Warn("health check: disk space", "dir", h.uploadsDir, "error", err)
		return Check{Status: statusUnhealthy, Message: "Failed to check disk space"}
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)
	available := formatBytes(availableBytes)

	const minSpace = 100 * 1024 * 1024
	if availableBytes < minSpace {
		return Check{Status: statusDegraded, Message: "Low disk space: " + available + " available"}
	}
	return Check{Status: statusHealthy, Message: available + " available"}
}

func getSystemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
