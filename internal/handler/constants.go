// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"

	// RouteSignup creates an account.
	RouteSignup = "/signup"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"

	// RoutePredict accepts a soil image upload.
	RoutePredict = "/predict"
	// RouteHistory lists the caller's classifications.
	RouteHistory = "/history"
	// RoutePlants lists recommendations for the active category.
	RoutePlants = "/plants"
	// RouteSoilCategory activates a category by id or slug.
	RouteSoilCategory = "/soil/{category}"

	// RouteHealth is the health check route.
	RouteHealth = "/health"
	// RouteHealthLive reports liveness.
	RouteHealthLive = "/health/live"
	// RouteHealthReady reports readiness.
	RouteHealthReady = "/health/ready"
	// RouteMetrics exposes Prometheus metrics.
	RouteMetrics = "/metrics"
)

// Form field names.
const (
	// FieldImage is the multipart field carrying the soil photograph.
	FieldImage    = "my_image"
	FieldUsername = "username"
	FieldPassword = "password"
)
