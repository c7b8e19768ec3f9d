// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// apiCSP forbids every fetch except inline data: images, which is how
// upload previews and plant pictures are delivered.
const apiCSP = "default-src 'none'; img-src 'self' data:; base-uri 'none'; form-action 'self'; frame-ancestors 'none'"

// apiPermissionsPolicy disables browser features the API never needs.
const apiPermissionsPolicy = "browsing-topics=(), camera=(), geolocation=(), microphone=(), payment=(), usb=()"

// SecurityHeadersConfig holds configuration for security headers.
type SecurityHeadersConfig struct {
	// HSTSMaxAge is the Strict-Transport-Security max-age in seconds;
	// zero disables the header.
	HSTSMaxAge            int
	HSTSIncludeSubDomains bool

	ContentSecurityPolicy string
	PermissionsPolicy     string
	ReferrerPolicy        string

	// NoStore marks every response uncacheable. Responses carry
	// per-session data such as history and predictions.
	NoStore bool

	// ExcludePaths are path prefixes served without these headers.
	ExcludePaths []string
}

// DefaultSecurityHeadersConfig returns the headers for the JSON API.
// Development mode omits HSTS so plain-HTTP localhost keeps working.
func DefaultSecurityHeadersConfig(isDev bool) SecurityHeadersConfig {
	cfg := SecurityHeadersConfig{
		ContentSecurityPolicy: apiCSP,
		PermissionsPolicy:     apiPermissionsPolicy,
		ReferrerPolicy:        "no-referrer",
		NoStore:               true,
	}
	if !isDev {
		cfg.HSTSMaxAge = 31536000
		cfg.HSTSIncludeSubDomains = true
	}
	return cfg
}

func (c SecurityHeadersConfig) hsts() string {
	if c.HSTSMaxAge <= 0 {
		return ""
	}
	v := "max-age=" + strconv.Itoa(c.HSTSMaxAge)
	if c.HSTSIncludeSubDomains {
		v += "; includeSubDomains"
	}
	return v
}

// SecurityHeaders sets the configured headers before the handler runs.
func SecurityHeaders(cfg SecurityHeadersConfig) func(http.Handler) http.Handler {
	static := http.Header{}
	static.Set("X-Content-Type-Options", "nosniff")
	static.Set("X-Frame-Options", "DENY")
	if v := cfg.hsts(); v != "" {
		static.Set("Strict-Transport-Security", v)
	}
	if cfg.ContentSecurityPolicy != "" {
		static.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
	}
	if cfg.PermissionsPolicy != "" {
		static.Set("Permissions-Policy", cfg.PermissionsPolicy)
	}
	if cfg.ReferrerPolicy != "" {
		static.Set("Referrer-Policy", cfg.ReferrerPolicy)
	}
	if cfg.NoStore {
		static.Set("Cache-Control", "no-store")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range cfg.ExcludePaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			h := w.Header()
			for k, v := range static {
				h.Set(k, v[0])
			}
			next.ServeHTTP(w, r)
		})
	}
}
