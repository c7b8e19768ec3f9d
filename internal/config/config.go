// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/olegiv/soilstation/internal/scheduler"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Upload storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBDriver    string `env:"SOIL_DB_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"SOIL_DB_PATH" envDefault:"./data/soilstation.db"`
	DatabaseURL string `env:"SOIL_DATABASE_URL"`

	ServerHost string `env:"SOIL_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"SOIL_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"SOIL_ENV" envDefault:"development"`
	LogLevel   string `env:"SOIL_LOG_LEVEL" envDefault:"info"`

	// Upload storage
	Storage     string `env:"SOIL_STORAGE" envDefault:"local"`
	UploadsDir  string `env:"SOIL_UPLOADS_DIR" envDefault:"./uploads"`
	S3Endpoint  string `env:"SOIL_S3_ENDPOINT"` // Empty for AWS, set for MinIO and friends
	S3Region    string `env:"SOIL_S3_REGION" envDefault:"us-east-1"`
	S3Bucket    string `env:"SOIL_S3_BUCKET"`
	S3AccessKey string `env:"SOIL_S3_ACCESS_KEY"`
	S3SecretKey string `env:"SOIL_S3_SECRET_KEY"`

	MaxUploadSize   int64         `env:"SOIL_MAX_UPLOAD_SIZE" envDefault:"10485760"` // Bytes
	UploadRetention time.Duration `env:"SOIL_UPLOAD_RETENTION" envDefault:"24h"`
	CleanupSchedule string        `env:"SOIL_CLEANUP_SCHEDULE" envDefault:"*/15 * * * *"`
	EventRetention  time.Duration `env:"SOIL_EVENT_RETENTION" envDefault:"720h"`

	// Frozen model served over the TensorFlow Serving REST API
	ModelURL         string        `env:"SOIL_MODEL_URL" envDefault:"http://localhost:8501"`
	ModelName        string        `env:"SOIL_MODEL_NAME" envDefault:"soil_type"`
	InferenceTimeout time.Duration `env:"SOIL_INFERENCE_TIMEOUT" envDefault:"30s"`

	StoreTimeout   time.Duration `env:"SOIL_STORE_TIMEOUT" envDefault:"5s"`
	RequestTimeout time.Duration `env:"SOIL_REQUEST_TIMEOUT" envDefault:"60s"`

	// Cache configuration
	RedisURL     string        `env:"SOIL_REDIS_URL"` // Optional Redis URL for distributed caching
	CachePrefix  string        `env:"SOIL_CACHE_PREFIX" envDefault:"soil:"`
	CacheTTL     time.Duration `env:"SOIL_CACHE_TTL" envDefault:"1h"`
	CacheMaxSize int           `env:"SOIL_CACHE_MAX_SIZE" envDefault:"1000"`

	// Per-IP limits for the public API
	RateLimit float64 `env:"SOIL_RATE_LIMIT" envDefault:"10"`
	RateBurst int     `env:"SOIL_RATE_BURST" envDefault:"20"`

	MetricsEnabled bool   `env:"SOIL_METRICS_ENABLED" envDefault:"true"`
	HealthToken    string `env:"SOIL_HEALTH_TOKEN"`               // Unlocks the detailed health view
	TrustProxy     bool   `env:"SOIL_TRUST_PROXY"`                // Honour X-Forwarded-For and X-Real-IP
	DoSeed         bool   `env:"SOIL_DO_SEED" envDefault:"false"` // Seed the demo plant catalogue
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// SchedulerEnabled reports whether any retention job has work to do.
func (c Config) SchedulerEnabled() bool {
	return c.UploadRetention > 0 || c.EventRetention > 0
}

// UploadCleanupSchedule returns the cron schedule for upload cleanup, or ""
// when upload retention is disabled.
func (c Config) UploadCleanupSchedule() string {
	if c.UploadRetention <= 0 {
		return ""
	}
	return c.CleanupSchedule
}

// DBSource returns the driver-specific data source.
func (c Config) DBSource() string {
	if c.DBDriver == DriverPostgres {
		return c.DatabaseURL
	}
	return c.DBPath
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. All problems are reported together.
func (c Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("SOIL_DB_PATH must not be empty"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("SOIL_DATABASE_URL is required when SOIL_DB_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("SOIL_DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DBDriver))
	}

	switch c.Storage {
	case StorageLocal:
		if c.UploadsDir == "" {
			errs = append(errs, errors.New("SOIL_UPLOADS_DIR must not be empty"))
		}
	case StorageS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("SOIL_S3_BUCKET is required when SOIL_STORAGE=s3"))
		}
		if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
			errs = append(errs, errors.New("SOIL_S3_ACCESS_KEY and SOIL_S3_SECRET_KEY must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("SOIL_STORAGE must be %q or %q, got %q", StorageLocal, StorageS3, c.Storage))
	}

	for name, d := range map[string]time.Duration{
		"SOIL_INFERENCE_TIMEOUT": c.InferenceTimeout,
		"SOIL_STORE_TIMEOUT":     c.StoreTimeout,
		"SOIL_REQUEST_TIMEOUT":   c.RequestTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.RequestTimeout > 0 && c.RequestTimeout <= c.InferenceTimeout {
		errs = append(errs, fmt.Errorf("SOIL_REQUEST_TIMEOUT (%s) must exceed SOIL_INFERENCE_TIMEOUT (%s)",
			c.RequestTimeout, c.InferenceTimeout))
	}

	if c.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("SOIL_MAX_UPLOAD_SIZE must be positive, got %d", c.MaxUploadSize))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("SOIL_SERVER_PORT out of range: %d", c.ServerPort))
	}
	if c.ModelURL == "" || c.ModelName == "" {
		errs = append(errs, errors.New("SOIL_MODEL_URL and SOIL_MODEL_NAME must not be empty"))
	}

	if schedule := c.UploadCleanupSchedule(); schedule != "" {
		if err := scheduler.ValidateSchedule(schedule); err != nil {
			errs = append(errs, fmt.Errorf("SOIL_CLEANUP_SCHEDULE: %w", err))
		}
	}

	return errors.Join(errs...)
}
