// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// PruneSchedule runs event log retention once a day at 03:00.
const PruneSchedule = "0 3 * * *"

const jobTimeout = time.Minute

// EventPruner deletes old event log rows. *store.Queries satisfies it.
type EventPruner interface {
	DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler handles maintenance tasks like event log retention.
type Scheduler struct {
	events    EventPruner
	retention time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a new scheduler instance. A zero retention disables pruning.
func New(events EventPruner, retention time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		events:    events,
		retention: retention,
		cron:      cron.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the maintenance jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.retention > 0 {
		if _, err := s.cron.AddFunc(PruneSchedule, s.runPrune); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "event_retention", s.retention)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.PruneEvents(ctx); err != nil {
		s.logger.Error("failed to prune event log", "category", "system", "error", err)
	}
}

// PruneEvents deletes event log entries older than the retention period and
// reports how many were removed.
func (s *Scheduler) PruneEvents(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}

	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.events.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned event log", "deleted", n, "before", cutoff.Format(time.RFC3339))
	}
	return n, nil
}
