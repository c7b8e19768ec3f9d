// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/soilstation/internal/cache"
	"github.com/olegiv/soilstation/internal/classifier"
	"github.com/olegiv/soilstation/internal/config"
	"github.com/olegiv/soilstation/internal/handler"
	"github.com/olegiv/soilstation/internal/logging"
	"github.com/olegiv/soilstation/internal/middleware"
	"github.com/olegiv/soilstation/internal/scheduler"
	"github.com/olegiv/soilstation/internal/service"
	"github.com/olegiv/soilstation/internal/session"
	"github.com/olegiv/soilstation/internal/storage"
	"github.com/olegiv/soilstation/internal/store"
	"github.com/olegiv/soilstation/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = ""
	appGitCommit = ""
	appBuildTime = ""
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	runJob := flag.String("run-job", "", "Run one maintenance job ("+scheduler.JobCleanupUploads+" or "+scheduler.JobPruneEvents+") and exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "soilstation - soil image classification and plant recommendations\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SOIL_DB_DRIVER         sqlite|postgres (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SOIL_DB_PATH           SQLite database path (default: ./data/soilstation.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SOIL_DATABASE_URL      Postgres connection URL\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SOIL_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SOIL_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SOIL_STORAGE           Upload storage: local|s3 (default: local)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SOIL_MODEL_URL         TensorFlow Serving REST endpoint (default: http://localhost:8501)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SOIL_REDIS_URL         Redis URL for recommendation caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SOIL_HEALTH_TOKEN      Bearer token for the detailed /health view (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SOIL_TRUST_PROXY       Take client IPs from proxy headers (default: false)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SOIL_DO_SEED           Seed the demo plant catalogue (default: false)\n")
	}

	flag.Parse()

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}.Resolve()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Println(info.String())
		os.Exit(0)
	}

	if err := run(info, *runJob); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.Storage == config.StorageS3 {
		return storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	return storage.NewLocalStore(cfg.UploadsDir)
}

func run(info version.Info, runJob string) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if cfg.DBDriver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0750); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "driver", cfg.DBDriver)
	db, err := store.Open(cfg.DBDriver, cfg.DBSource())
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the events table
	logger = slog.New(logging.NewEventLogHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}), db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if err := store.SeedDemo(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding demo catalogue: %w", err)
	}

	uploads, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing upload storage: %w", err)
	}
	slog.Info("upload storage initialized", "backend", uploads.Name())

	events := service.NewEventService(db, logger)
	retention := service.NewRetentionService(uploads, events, cfg.UploadRetention, cfg.EventRetention, logger)
	sched := scheduler.New(retention, logger)

	if runJob != "" {
		return runMaintenanceJob(sched, cfg, runJob)
	}

	cacher, cacheBackend := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTL,
		MaxSize:    cfg.CacheMaxSize,
	}, logger)
	defer func() { _ = cacher.Close() }()
	slog.Info("cache initialized", "backend", cacheBackend)

	model, err := classifier.NewTFServingModel(cfg.ModelURL, cfg.ModelName, cfg.InferenceTimeout)
	if err != nil {
		return fmt.Errorf("initializing model client: %w", err)
	}
	if err := model.Ready(ctx); err != nil {
		slog.Warn("model backend not ready; classification will fail until it is", "url", cfg.ModelURL, "error", err)
	}

	accounts := service.NewAccountService(db, cfg.StoreTimeout, logger)
	intake := service.NewIntakeService(uploads, cfg.StoreTimeout, logger)
	history := service.NewHistoryService(db, cfg.StoreTimeout)
	recommendations := service.NewRecommendationService(db, cacher, cfg.CacheTTL, cfg.StoreTimeout, logger)
	predictions := service.NewPredictionService(intake, classifier.New(model, cfg.InferenceTimeout), history, events, logger)

	// The catalogue may have changed while we were down.
	if err := recommendations.Invalidate(ctx); err != nil {
		slog.Warn("failed to invalidate recommendation cache", "error", err)
	}

	if cfg.SchedulerEnabled() {
		if err := sched.Start(cfg.UploadCleanupSchedule()); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer sched.Stop()
	} else {
		slog.Info("upload and event retention disabled; scheduler not started")
	}

	sessionManager := session.New(db, cfg.IsDevelopment())

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Stop()

	uploadsDir := ""
	if cfg.Storage == config.StorageLocal {
		uploadsDir = cfg.UploadsDir
	}

	router := handler.NewRouter(handler.RouterConfig{
		Sessions: sessionManager,
		Auth:     handler.NewAuthHandler(accounts, sessionManager, events, loginProtection, logger),
		Soil:     handler.NewSoilHandler(predictions, history, recommendations, sessionManager, cfg.MaxUploadSize, logger),
		Health: handler.NewHealthHandler(db, handler.HealthOptions{
			Model:      model,
			Storage:    uploads.Name(),
			UploadsDir: uploadsDir,
			Jobs:       sched.Registry(),
			Version:    info,
			Token:      cfg.HealthToken,
			Logger:     logger,
		}),
		LoginProtection: loginProtection,
		RateLimiter:     middleware.NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst),
		RequestTimeout:  cfg.RequestTimeout,
		IsDevelopment:   cfg.IsDevelopment(),
		ExposeMetrics:   cfg.MetricsEnabled,
		TrustProxy:      cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	_ = events.LogSystemEvent(ctx, "info", "Server started", map[string]any{
		"version": info.Version,
		"storage": uploads.Name(),
		"cache":   cacheBackend,
	})

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// runMaintenanceJob registers the scheduled jobs without starting the cron
// loop and runs one of them synchronously.
func runMaintenanceJob(sched *scheduler.Scheduler, cfg *config.Config, name string) error {
	if err := sched.Register(cfg.UploadCleanupSchedule()); err != nil {
		return err
	}
	slog.Info("running maintenance job", "job", name)
	if err := sched.Registry().TriggerNow(name); err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	slog.Info("maintenance job finished", "job", name)
	return nil
}
