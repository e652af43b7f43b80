package history

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/sentiguard/internal/sentiment"
	"github.com/kalambet/sentiguard/internal/storage"
)

// LineSource is the append-only utterance log. ReadCompleteLines leaves out
// a final line that has no newline yet.
type LineSource interface {
	Size() (int64, error)
	ReadLines() ([]string, error)
	ReadCompleteLines() ([]string, error)
}

// Scorer scores a single utterance.
type Scorer interface {
	Analyze(ctx context.Context, text string) (sentiment.Analysis, error)
}

// Analyzer scores the utterance log incrementally: only lines appended since
// the previous scan are analyzed, and an unchanged log returns the previous
// result without touching the scorer.
type Analyzer struct {
	source LineSource
	scorer Scorer
	buffer *Buffer
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	lastSize int64
	scanned  int
	results  []storage.MoodEntry
}

// NewAnalyzer creates an Analyzer writing new entries through buffer.
func NewAnalyzer(source LineSource, scorer Scorer, buffer *Buffer, now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{
		source: source,
		scorer: scorer,
		buffer: buffer,
		now:    now,
		logger: slog.Default(),
	}
}

// Refresh brings the session analysis up to date with the log and returns a
// copy of it. I/O failures return the last known result.
func (a *Analyzer) Refresh(ctx context.Context) []storage.MoodEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	size, err := a.source.Size()
	if err != nil {
		a.logger.Warn("utterance log unavailable, returning cached analysis", "error", err)
		return a.snapshot()
	}
	if size == a.lastSize && len(a.results) > 0 {
		return a.snapshot()
	}

	lines, err := a.source.ReadCompleteLines()
	if err != nil {
		a.logger.Warn("utterance log unreadable, returning cached analysis", "error", err)
		return a.snapshot()
	}

	if size < a.lastSize || len(lines) < a.scanned || len(a.results) == 0 {
		if size < a.lastSize {
			a.logger.Info("utterance log truncated, rescanning", "previous_bytes", a.lastSize, "bytes", size)
		}
		a.results = nil
		a.scanned = 0
	}

	for _, line := range lines[a.scanned:] {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		res, err := a.scorer.Analyze(ctx, text)
		if err != nil {
			a.logger.Debug("line scored in degraded mode", "error", err)
		}
		entry := storage.MoodEntry{Timestamp: a.now(), Score: res.Score}
		a.results = append(a.results, entry)
		if a.buffer != nil {
			a.buffer.Add(entry)
		}
	}
	a.scanned = len(lines)
	a.lastSize = size
	return a.snapshot()
}

// Latest scores the last non-empty line of the log, or returns 0 when there
// is none.
func (a *Analyzer) Latest(ctx context.Context) float64 {
	lines, err := a.source.ReadLines()
	if err != nil {
		a.logger.Warn("utterance log unreadable", "error", err)
		return 0
	}
	for i := len(lines) - 1; i >= 0; i-- {
		text := strings.TrimSpace(lines[i])
		if text == "" {
			continue
		}
		res, _ := a.scorer.Analyze(ctx, text)
		return res.Score
	}
	return 0
}

// Reset forgets the cached analysis so the next Refresh rescans the log.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = nil
	a.scanned = 0
	a.lastSize = 0
}

func (a *Analyzer) snapshot() []storage.MoodEntry {
	return append([]storage.MoodEntry(nil), a.results...)
}
