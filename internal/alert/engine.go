package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/sentiguard/internal/notify"
	"github.com/kalambet/sentiguard/internal/sentiment"
	"github.com/kalambet/sentiguard/internal/storage"
)

const (
	DefaultThreshold = -0.3
	DefaultLimit     = 5

	reasonLineLen = 200
)

// Alert record statuses.
const (
	StatusSent      = "Sent"
	StatusThrottled = "Throttled"
	StatusFailed    = "Failed"
	StatusLogged    = "Logged"
)

// States reported by State.
const (
	StateWaiting = "Waiting"
	StateArmed   = "Armed"
)

// LineReader reads the utterance log.
type LineReader interface {
	ReadLines() ([]string, error)
}

// Scorer scores a single utterance.
type Scorer interface {
	Analyze(ctx context.Context, text string) (sentiment.Analysis, error)
}

// Store persists the alert pointer and the alert log.
type Store interface {
	AlertPointer() (int, error)
	SetAlertPointer(line int) error
	AppendAlert(rec storage.AlertRecord) error
	Alerts(limit int) ([]storage.AlertRecord, error)
	ClearAlerts() error
}

// Config holds the alert policy.
type Config struct {
	Threshold float64
	Limit     int
	Guardian  string
}

// Count is the result of scanning the log past the alert pointer.
type Count struct {
	Negatives  int      `json:"negatives"`
	TotalLines int      `json:"total_lines"`
	Pointer    int      `json:"pointer"`
	Excerpts   []string `json:"excerpts,omitempty"`
}

// Status is the guardian-facing view of the engine.
type Status struct {
	State     string  `json:"state"`
	Negatives int     `json:"negatives"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}

// Outcome describes one Check call.
type Outcome struct {
	Triggered bool                 `json:"triggered"`
	Count     Count                `json:"count"`
	Record    *storage.AlertRecord `json:"record,omitempty"`
}

// Engine counts strongly negative utterances since the last alert and
// notifies the guardian once the count exceeds the limit.
type Engine struct {
	lines    LineReader
	scorer   Scorer
	store    Store
	notifier notify.Notifier
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	pointer int
	last    Count
}

// New creates an Engine. notifier may be nil, in which case triggered alerts
// are only recorded.
func New(lines LineReader, scorer Scorer, store Store, notifier notify.Notifier, cfg Config, now func() time.Time) *Engine {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		lines:    lines,
		scorer:   scorer,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		now:      now,
		logger:   slog.Default(),
	}
}

// Count scores every non-empty line after the alert pointer and counts those
// below the threshold. An unreadable log yields the last count computed.
func (e *Engine) Count(ctx context.Context) (Count, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, _ := e.countLocked(ctx)
	return c, nil
}

// countLocked reports false when the log could not be read, in which case the
// returned Count is the last one computed.
func (e *Engine) countLocked(ctx context.Context) (Count, bool) {
	lines, err := e.lines.ReadLines()
	if err != nil {
		e.logger.Warn("utterance log unreadable, using last count", "negative_count", e.last.Negatives, "error", err)
		return e.last, false
	}
	start := e.loadPointer()
	c := Count{TotalLines: len(lines), Pointer: start}
	if start >= len(lines) {
		e.last = c
		return c, true
	}
	for _, line := range lines[start:] {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		res, err := e.scorer.Analyze(ctx, text)
		if err != nil {
			e.logger.Debug("line scored in degraded mode", "error", err)
		}
		if res.Score < e.cfg.Threshold {
			c.Negatives++
			c.Excerpts = append(c.Excerpts, sentiment.Excerpt(text, reasonLineLen))
		}
	}
	e.last = c
	return c, true
}

// loadPointer reads the persisted pointer, falling back to the last value
// seen in this process when the store is unavailable.
func (e *Engine) loadPointer() int {
	p, err := e.store.AlertPointer()
	if err != nil {
		e.logger.Warn("alert status unreadable, using last known pointer", "pointer", e.pointer, "error", err)
		return e.pointer
	}
	e.pointer = p
	return p
}

// Check counts negatives and, when the limit is exceeded, notifies the
// guardian, records the alert and advances the pointer past every line seen.
func (e *Engine) Check(ctx context.Context) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, fresh := e.countLocked(ctx)
	out := Outcome{Count: c}
	if !fresh || c.Negatives <= e.cfg.Limit {
		return out, nil
	}

	at := e.now()
	status := e.deliver(ctx, notify.Alert{
		Guardian:      e.cfg.Guardian,
		NegativeCount: c.Negatives,
		Excerpts:      c.Excerpts,
		At:            at,
	})
	rec := storage.AlertRecord{
		ID:            uuid.New().String(),
		Date:          at,
		NegativeCount: c.Negatives,
		Status:        status,
		ReasonLines:   c.Excerpts,
	}
	out.Triggered = true
	out.Record = &rec

	if err := e.store.AppendAlert(rec); err != nil {
		e.logger.Warn("alert record not saved", "error", err)
	}
	next := max(c.Pointer, c.TotalLines)
	if err := e.store.SetAlertPointer(next); err != nil {
		e.logger.Warn("alert pointer not saved", "pointer", next, "error", err)
	}
	e.pointer = next
	e.last = Count{TotalLines: c.TotalLines, Pointer: next}
	e.logger.Info("guardian alert triggered", "negative_count", c.Negatives, "status", status)
	return out, nil
}

func (e *Engine) deliver(ctx context.Context, a notify.Alert) string {
	if e.notifier == nil || e.cfg.Guardian == "" {
		return StatusLogged
	}
	err := e.notifier.Notify(ctx, a)
	switch {
	case err == nil:
		return StatusSent
	case errors.Is(err, notify.ErrThrottled):
		e.logger.Info("guardian alert throttled", "notifier", e.notifier.Name())
		return StatusThrottled
	default:
		e.logger.Error("guardian alert delivery failed", "notifier", e.notifier.Name(), "error", err)
		return StatusFailed
	}
}

// State reports Armed when the pending negative count exceeds the limit.
func (e *Engine) State(ctx context.Context) (Status, error) {
	c, err := e.Count(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{State: StateWaiting, Negatives: c.Negatives, Limit: e.cfg.Limit, Threshold: e.cfg.Threshold}
	if c.Negatives > e.cfg.Limit {
		st.State = StateArmed
	}
	return st, nil
}

// ResetPointer sets the pointer back to the start of the log. It is only
// called at session teardown.
func (e *Engine) ResetPointer() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.SetAlertPointer(0); err != nil {
		return fmt.Errorf("resetting alert pointer: %w", err)
	}
	e.pointer = 0
	e.last = Count{}
	return nil
}

// Alerts lists the alert log, most recent first.
func (e *Engine) Alerts(limit int) ([]storage.AlertRecord, error) {
	return e.store.Alerts(limit)
}

// ClearLog empties the alert log.
func (e *Engine) ClearLog() error {
	return e.store.ClearAlerts()
}
