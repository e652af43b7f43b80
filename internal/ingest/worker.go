// Package ingest watches the utterance log and feeds new lines through the
// scoring and alerting pipeline.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/sentiguard/internal/alert"
	"github.com/kalambet/sentiguard/internal/storage"
)

// LogSizer reports the current size of the utterance log.
type LogSizer interface {
	Size() (int64, error)
}

// SessionMonitor is the part of the monitor the worker drives.
type SessionMonitor interface {
	SessionAnalysis(ctx context.Context) []storage.MoodEntry
	CheckAlerts(ctx context.Context) (alert.Outcome, error)
}

// Worker polls the utterance log and, whenever it changed, refreshes the
// incremental analysis and runs the alert check.
type Worker struct {
	log     LogSizer
	monitor SessionMonitor
	poll    time.Duration
	logger  *slog.Logger

	lastSize int64
	seen     bool
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 5s.
func NewWorker(log LogSizer, monitor SessionMonitor, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{
		log:     log,
		monitor: monitor,
		poll:    pollInterval,
		logger:  slog.Default(),
	}
}

// Run polls the log until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("watcher iteration failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce processes the log if it changed since the previous call.
// Returns true if the log was processed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	size, err := w.log.Size()
	if err != nil {
		return false, fmt.Errorf("checking utterance log: %w", err)
	}
	if w.seen && size == w.lastSize {
		return false, nil
	}

	entries := w.monitor.SessionAnalysis(ctx)
	out, err := w.monitor.CheckAlerts(ctx)
	if err != nil {
		return true, fmt.Errorf("checking alerts: %w", err)
	}
	w.lastSize, w.seen = size, true

	w.logger.Debug("utterance log processed", "bytes", size, "entries", len(entries), "pending_negatives", out.Count.Negatives)
	if out.Triggered {
		w.logger.Info("guardian alert raised by watcher", "negative_count", out.Count.Negatives, "status", out.Record.Status)
	}
	return true, nil
}
