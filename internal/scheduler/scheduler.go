// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs over the category tree.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/taxonomy"
)

// Job names.
const (
	IntegrityJob    = "integrity_audit"
	EventCleanupJob = "event_cleanup"
)

// ScheduleOff leaves the integrity audit unscheduled.
const ScheduleOff = "off"

const (
	auditTimeout   = 5 * time.Minute
	cleanupTimeout = time.Minute
)

// registeredJob holds metadata about a registered cron job.
type registeredJob struct {
	name        string
	description string
	schedule    string
	entryID     cron.EntryID
	run         func() error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
}

// Scheduler handles scheduled maintenance of the category tree.
type Scheduler struct {
	queries *store.Queries
	cron    *cron.Cron
	logger  *slog.Logger

	mu         sync.RWMutex
	jobs       map[string]*registeredJob
	lastReport *taxonomy.Report
}

// New creates a new scheduler instance. A nil logger uses slog.Default().
func New(queries *store.Queries, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		queries: queries,
		cron:    cron.New(),
		logger:  logger,
		jobs:    make(map[string]*registeredJob),
	}
}

// Start registers the integrity audit on schedule and starts the cron runner.
// An empty schedule or ScheduleOff runs only the jobs registered beforehand.
func (s *Scheduler) Start(schedule string) error {
	if schedule != "" && schedule != ScheduleOff {
		if err := s.register(IntegrityJob, "Audit nested-set bounds, levels and roots", schedule, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
			defer cancel()
			_, err := s.RunIntegrityAudit(ctx)
			return err
		}); err != nil {
			return err
		}
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

// register adds a job to the cron runner and the job table.
func (s *Scheduler) register(name, description, schedule string, run func() error) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		if err := run(); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling %s on %q: %w", name, schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[name] = &registeredJob{
		name:        name,
		description: description,
		schedule:    schedule,
		entryID:     entryID,
		run:         run,
	}
	s.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// List returns all registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := s.cron.Entry(job.entryID)
		result = append(result, JobInfo{
			Name:        job.name,
			Description: job.description,
			Schedule:    job.schedule,
			LastRun:     entry.Prev,
			NextRun:     entry.Next,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// TriggerNow runs a registered job immediately.
func (s *Scheduler) TriggerNow(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("job not found: %s", name)
	}

	s.logger.Info("manually triggering job", "name", name)
	return job.run()
}

// RunIntegrityAudit checks the tree once and logs every finding. Detached
// nodes are logged at debug level, corruption at warn level.
func (s *Scheduler) RunIntegrityAudit(ctx context.Context) (taxonomy.Report, error) {
	started := time.Now()
	report, err := taxonomy.CheckIntegrity(ctx, s.queries)
	if err != nil {
		return report, fmt.Errorf("integrity audit: %w", err)
	}

	for _, p := range report.Problems {
		if p.Kind == taxonomy.ProblemDetached {
			s.logger.Debug("detached category", "category", "taxonomy", "node", p.NodeID, "detail", p.Detail)
			continue
		}
		s.logger.Warn("category tree integrity problem",
			"category", "taxonomy",
			"kind", p.Kind,
			"node", p.NodeID,
			"detail", p.Detail,
		)
	}

	s.mu.Lock()
	s.lastReport = &report
	s.mu.Unlock()

	s.logger.Info("integrity audit finished",
		"nodes", report.Nodes,
		"problems", len(report.Problems),
		"ok", report.OK(),
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return report, nil
}

// ScheduleEventCleanup prunes event log entries older than retention once a day.
func (s *Scheduler) ScheduleEventCleanup(retention time.Duration) error {
	if retention <= 0 {
		return fmt.Errorf("event retention must be positive, got %v", retention)
	}
	return s.register(EventCleanupJob, "Prune old event log entries", "@daily", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		_, err := s.PruneEvents(ctx, retention)
		return err
	})
}

// PruneEvents deletes events older than retention.
func (s *Scheduler) PruneEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC()
	removed, err := s.queries.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	if removed > 0 {
		s.logger.Info("pruned event log", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// LastReport returns the report of the most recent audit, or nil.
func (s *Scheduler) LastReport() *taxonomy.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}
