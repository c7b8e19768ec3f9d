// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics exposes Prometheus collectors for the HTTP surface and the
// classification workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soilstation_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "soilstation_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	inferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "soilstation_inference_duration_seconds",
		Help:    "Duration of model inference calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"result"})

	classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soilstation_classifications_total",
		Help: "Successful classifications by soil category",
	}, []string{"category"})

	uploadsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soilstation_uploads_rejected_total",
		Help: "Uploads rejected by content sniffing",
	})

	cleanupRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soilstation_cleanup_removed_total",
		Help: "Objects removed by retention jobs",
	}, []string{"job"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soilstation_recommendation_cache_total",
		Help: "Recommendation cache lookups by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveInference records the duration of one model call.
func ObserveInference(result string, duration time.Duration) {
	inferenceDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveClassification counts a successful classification.
func ObserveClassification(category string) {
	classifications.WithLabelValues(category).Inc()
}

// ObserveRejectedUpload counts an upload rejected by intake.
func ObserveRejectedUpload() {
	uploadsRejected.Inc()
}

// ObserveCleanup adds removed objects for a retention job.
func ObserveCleanup(job string, removed int) {
	if removed > 0 {
		cleanupRemoved.WithLabelValues(job).Add(float64(removed))
	}
}

// ObserveCacheLookup counts a recommendation cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency labelled by route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ObserveHTTPRequest(r.Method, path, strconv.Itoa(status), time.Since(start))
	})
}
