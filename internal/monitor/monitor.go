// Package monitor owns every piece of scoring and alerting state for one
// session and exposes the operations the CLI, HTTP API and MCP tools call.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kalambet/sentiguard/internal/alert"
	"github.com/kalambet/sentiguard/internal/capture"
	"github.com/kalambet/sentiguard/internal/engine"
	"github.com/kalambet/sentiguard/internal/history"
	"github.com/kalambet/sentiguard/internal/notify"
	"github.com/kalambet/sentiguard/internal/sentiment"
	"github.com/kalambet/sentiguard/internal/storage"
)

// Settings are the tunables read from config.
type Settings struct {
	Threshold     float64
	Limit         int
	Guardian      string
	MaxEntries    int
	FlushBatch    int
	RetainOnExit  int
	SyntaxEnabled bool
	CacheSize     int
}

// Deps are the collaborators a Monitor is built from. Backend may be nil, in
// which case the lexicon classifier and keyword matchers are used.
type Deps struct {
	Store        *storage.Store
	Log          *capture.Log
	Backend      *engine.Backend
	Capabilities engine.Capabilities
	Notifier     notify.Notifier
	Settings     Settings
	Now          func() time.Time
}

// Monitor is the session facade.
type Monitor struct {
	store    *storage.Store
	log      *capture.Log
	scorer   *sentiment.Scorer
	buffer   *history.Buffer
	analyzer *history.Analyzer
	alerts   *alert.Engine
	settings Settings
	now      func() time.Time
	logger   *slog.Logger
}

// New builds a Monitor, choosing the classifier, semantic and syntax
// strategies once for the lifetime of the process.
func New(ctx context.Context, d Deps) *Monitor {
	if d.Now == nil {
		d.Now = time.Now
	}
	logger := slog.Default()
	vocab := sentiment.DefaultVocabulary()
	lex := sentiment.DefaultLexicon()

	var classifier sentiment.Classifier
	if d.Backend != nil && d.Capabilities.Chat {
		classifier = sentiment.NewModelClassifier(d.Backend.Engine, d.Backend.ChatModel)
		logger.Info("sentiment classifier selected", "classifier", classifier.Name(), "backend", d.Backend.Name)
	} else {
		classifier = sentiment.NewLexiconClassifier(lex)
		logger.Warn("no chat model available, using lexicon classifier for this session")
	}

	var (
		emb   *sentiment.Embedder
		index *sentiment.VocabIndex
	)
	if d.Backend != nil && d.Capabilities.Embeddings {
		emb = sentiment.NewEmbedder(d.Backend.Engine, d.Backend.EmbedModel)
		var err error
		index, err = sentiment.BuildVocabIndex(ctx, emb, d.Store, vocab)
		if err != nil {
			logger.Warn("vocabulary embedding failed, using keyword matching", "error", err)
			emb, index = nil, nil
		}
	}

	var syntax sentiment.SyntaxAnalyzer
	if d.Settings.SyntaxEnabled {
		syntax = sentiment.NewRuleSyntax(vocab)
	}

	scorer := sentiment.NewScorer(sentiment.Options{
		Classifier: classifier,
		Contextual: sentiment.NewContextual(lex, vocab),
		Vocabulary: vocab,
		Circadian:  sentiment.NewCircadian(d.Store, d.Now),
		Markers:    sentiment.NewMarkers(vocab, syntax),
		Semantic:   sentiment.NewSemantic(vocab, emb, index),
		Cache:      sentiment.NewResultCache(d.Settings.CacheSize),
		Concerns:   d.Store,
		Now:        d.Now,
	})
	logger.Info("scoring strategy", "strategy", scorer.Strategy())

	buffer := history.NewBuffer(d.Store, d.Settings.FlushBatch, d.Settings.MaxEntries)
	return &Monitor{
		store:    d.Store,
		log:      d.Log,
		scorer:   scorer,
		buffer:   buffer,
		analyzer: history.NewAnalyzer(d.Log, scorer, buffer, d.Now),
		alerts: alert.New(d.Log, scorer, d.Store, d.Notifier, alert.Config{
			Threshold: d.Settings.Threshold,
			Limit:     d.Settings.Limit,
			Guardian:  d.Settings.Guardian,
		}, d.Now),
		settings: d.Settings,
		now:      d.Now,
		logger:   logger,
	}
}

// Strategy reports the capability choices made at construction.
func (m *Monitor) Strategy() map[string]string { return m.scorer.Strategy() }

// Analyze scores a single utterance.
func (m *Monitor) Analyze(ctx context.Context, text string) (sentiment.Analysis, error) {
	return m.scorer.Analyze(ctx, text)
}

// LatestMood scores the most recent line of the utterance log.
func (m *Monitor) LatestMood(ctx context.Context) float64 {
	return m.analyzer.Latest(ctx)
}

// SessionAnalysis incrementally scores the utterance log and returns one
// entry per non-empty line.
func (m *Monitor) SessionAnalysis(ctx context.Context) []storage.MoodEntry {
	return m.analyzer.Refresh(ctx)
}

// History returns persisted plus buffered mood history, oldest first.
func (m *Monitor) History() []storage.MoodEntry {
	return m.buffer.History()
}

// CountNegativesSinceLastAlert counts lines below the alert threshold since
// the alert pointer.
func (m *Monitor) CountNegativesSinceLastAlert(ctx context.Context) (alert.Count, error) {
	return m.alerts.Count(ctx)
}

// CheckAlerts runs one alert evaluation.
func (m *Monitor) CheckAlerts(ctx context.Context) (alert.Outcome, error) {
	return m.alerts.Check(ctx)
}

// AlertState reports Waiting or Armed with the pending negative count.
func (m *Monitor) AlertState(ctx context.Context) (alert.Status, error) {
	return m.alerts.State(ctx)
}

// Alerts lists the alert log, most recent first.
func (m *Monitor) Alerts(limit int) ([]storage.AlertRecord, error) {
	return m.alerts.Alerts(limit)
}

// ResetAlertPointer re-arms alerting from the start of the log.
func (m *Monitor) ResetAlertPointer() error {
	return m.alerts.ResetPointer()
}

// ResetCaches clears the rolling window, result cache, rumination window and
// the incremental history analysis.
func (m *Monitor) ResetCaches() {
	m.scorer.ResetCaches()
	m.analyzer.Reset()
}

// FlushHistory writes buffered mood entries to the store.
func (m *Monitor) FlushHistory() error {
	return m.buffer.Flush()
}

// PendingHistory returns the number of unflushed mood entries.
func (m *Monitor) PendingHistory() int {
	return m.buffer.Pending()
}

// TrimHistory keeps only the newest keep persisted entries.
func (m *Monitor) TrimHistory(keep int) (int64, error) {
	if err := m.buffer.Flush(); err != nil {
		m.logger.Warn("flush before trim failed", "error", err)
	}
	return m.store.TrimMoodHistory(keep)
}

// MaxEntries is the configured history cap.
func (m *Monitor) MaxEntries() int { return m.settings.MaxEntries }

// Stats buckets the mood history by period. With no persisted history the
// current session analysis is used.
func (m *Monitor) Stats(ctx context.Context, period history.Period) []history.Bucket {
	return history.Stats(m.statsSource(ctx), period, m.now())
}

// Summary aggregates the current session analysis.
func (m *Monitor) Summary(ctx context.Context) history.Summary {
	return history.Summarize(m.analyzer.Refresh(ctx))
}

func (m *Monitor) statsSource(ctx context.Context) []storage.MoodEntry {
	if h := m.buffer.History(); len(h) > 0 {
		return h
	}
	return m.analyzer.Refresh(ctx)
}

// Concerns lists the concerning log, most recent first.
func (m *Monitor) Concerns(limit int) ([]storage.ConcernEntry, error) {
	return m.store.Concerns(limit)
}

// CircadianProfile returns the persisted hour-of-day baselines.
func (m *Monitor) CircadianProfile() (storage.CircadianProfile, error) {
	return m.store.LoadCircadian()
}

// Import appends a journal file to the utterance log.
func (m *Monitor) Import(path string) (int, error) {
	return capture.Import(m.log, path)
}

// Teardown ends the session: buffered history is flushed, the alert pointer
// goes back to 0, caches are reset, persisted history is trimmed to the
// retention size and the alert log is cleared.
func (m *Monitor) Teardown() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	keep(m.buffer.Flush())
	keep(m.alerts.ResetPointer())
	m.ResetCaches()
	if m.settings.RetainOnExit > 0 {
		n, err := m.store.TrimMoodHistory(m.settings.RetainOnExit)
		keep(err)
		if n > 0 {
			m.logger.Info("mood history trimmed", "removed", n, "kept", m.settings.RetainOnExit)
		}
	}
	keep(m.alerts.ClearLog())

	if firstErr != nil {
		return fmt.Errorf("session teardown: %w", firstErr)
	}
	return nil
}

// ClearHistory drops buffered and persisted mood history.
func (m *Monitor) ClearHistory() error {
	m.buffer.Discard()
	m.analyzer.Reset()
	return m.store.ClearMoodHistory()
}

// Purge removes every persisted trace of the user: mood history, alert log,
// concerning log and circadian profile.
func (m *Monitor) Purge() error {
	if err := m.ClearHistory(); err != nil {
		return fmt.Errorf("clearing mood history: %w", err)
	}
	if err := m.alerts.ClearLog(); err != nil {
		return fmt.Errorf("clearing alert log: %w", err)
	}
	if err := m.store.ClearConcerns(); err != nil {
		return fmt.Errorf("clearing concerning log: %w", err)
	}
	if err := m.store.ClearCircadian(); err != nil {
		return fmt.Errorf("clearing circadian profile: %w", err)
	}
	if err := m.alerts.ResetPointer(); err != nil {
		return err
	}
	m.scorer.ResetCaches()
	return nil
}

type exportLine struct {
	Kind  string `json:"kind"`
	Entry any    `json:"entry"`
}

// Export writes mood history and the alert log to w as JSON lines.
func (m *Monitor) Export(w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	n := 0
	for _, e := range m.buffer.History() {
		if err := enc.Encode(exportLine{Kind: "mood", Entry: e}); err != nil {
			return n, fmt.Errorf("encoding mood entry: %w", err)
		}
		n++
	}
	recs, err := m.alerts.Alerts(0)
	if err != nil {
		return n, fmt.Errorf("reading alert log: %w", err)
	}
	for _, r := range recs {
		if err := enc.Encode(exportLine{Kind: "alert", Entry: r}); err != nil {
			return n, fmt.Errorf("encoding alert record: %w", err)
		}
		n++
	}
	return n, nil
}
