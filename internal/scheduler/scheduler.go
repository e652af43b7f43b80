// Package scheduler runs the periodic history maintenance jobs.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultFlushSchedule = "@every 30s"
	DefaultTrimSchedule  = "0 3 * * *"
)

// HistoryMaintainer is the part of the monitor the jobs drive.
type HistoryMaintainer interface {
	FlushHistory() error
	PendingHistory() int
	TrimHistory(keep int) (int64, error)
	MaxEntries() int
}

// Scheduler flushes buffered mood history on a schedule and trims persisted
// history to its cap once a night.
type Scheduler struct {
	cron   *cron.Cron
	target HistoryMaintainer
	logger *slog.Logger
}

// New creates a scheduler in loc (UTC when nil).
func New(target HistoryMaintainer, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		target: target,
		logger: slog.Default(),
	}
}

// Start registers the jobs and starts the cron loop. Empty schedules use the
// defaults.
func (s *Scheduler) Start(flushSchedule, trimSchedule string) error {
	if flushSchedule == "" {
		flushSchedule = DefaultFlushSchedule
	}
	if trimSchedule == "" {
		trimSchedule = DefaultTrimSchedule
	}
	if _, err := s.cron.AddFunc(flushSchedule, s.flush); err != nil {
		return fmt.Errorf("scheduling history flush %q: %w", flushSchedule, err)
	}
	if _, err := s.cron.AddFunc(trimSchedule, s.trim); err != nil {
		return fmt.Errorf("scheduling history trim %q: %w", trimSchedule, err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "flush", flushSchedule, "trim", trimSchedule)
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) flush() {
	n := s.target.PendingHistory()
	if n == 0 {
		return
	}
	if err := s.target.FlushHistory(); err != nil {
		s.logger.Warn("scheduled history flush failed", "pending", n, "error", err)
		return
	}
	s.logger.Debug("scheduled history flush", "entries", n)
}

func (s *Scheduler) trim() {
	removed, err := s.target.TrimHistory(s.target.MaxEntries())
	if err != nil {
		s.logger.Warn("scheduled history trim failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("mood history trimmed", "removed", removed)
	}
}
