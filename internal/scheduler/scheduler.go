// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic retention jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job names registered by Start.
const (
	JobCleanupUploads = "cleanup_uploads"
	JobPruneEvents    = "prune_events"
)

// pruneEventsSchedule runs event pruning once a day.
const pruneEventsSchedule = "@daily"

// jobTimeout bounds a single job run.
const jobTimeout = 5 * time.Minute

// Retention is the work the scheduler performs.
type Retention interface {
	CleanupUploads(ctx context.Context) (int, error)
	PruneEvents(ctx context.Context) error
}

// Scheduler handles the retention jobs.
type Scheduler struct {
	cron      *cron.Cron
	registry  *Registry
	retention Retention
	logger    *slog.Logger
}

// New creates a new scheduler instance.
func New(retention Retention, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:      cron.New(),
		registry:  NewRegistry(logger),
		retention: retention,
		logger:    logger,
	}
}

// Registry exposes the registered jobs.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Register adds the upload cleanup job on cleanupSchedule and daily event
// pruning without starting the cron loop. An empty cleanupSchedule leaves
// upload cleanup out. Registered jobs can be run with Registry().TriggerNow.
func (s *Scheduler) Register(cleanupSchedule string) error {
	if cleanupSchedule != "" {
		if err := s.add(JobCleanupUploads, "Delete uploads past their retention age", cleanupSchedule, s.cleanupUploads); err != nil {
			return err
		}
	}
	return s.add(JobPruneEvents, "Delete old audit events", pruneEventsSchedule, s.pruneEvents)
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(cleanupSchedule string) error {
	if err := s.Register(cleanupSchedule); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) add(name, description, schedule string, run func() error) error {
	job := func() {
		if err := run(); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
		}
	}
	id, err := s.cron.AddFunc(schedule, job)
	if err != nil {
		return fmt.Errorf("scheduling %s with %q: %w", name, schedule, err)
	}
	s.registry.Register(name, description, schedule, s.cron, id, job, run)
	return nil
}

func (s *Scheduler) cleanupUploads() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	_, err := s.retention.CleanupUploads(ctx)
	return err
}

func (s *Scheduler) pruneEvents() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	return s.retention.PruneEvents(ctx)
}
