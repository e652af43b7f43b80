package history

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/sentiguard/internal/sentiment"
	"github.com/kalambet/sentiguard/internal/storage"
)

// memLog is an in-memory LineSource. partial is a final line still missing
// its newline.
type memLog struct {
	mu      sync.Mutex
	lines   []string
	partial string
	err     error
}

func (l *memLog) append(lines ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, lines...)
}

func (l *memLog) Size() (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	var n int64
	for _, s := range l.lines {
		n += int64(len(s)) + 1
	}
	return n + int64(len(l.partial)), nil
}

func (l *memLog) ReadLines() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	out := append([]string(nil), l.lines...)
	if l.partial != "" {
		out = append(out, l.partial)
	}
	return out, nil
}

func (l *memLog) ReadCompleteLines() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return append([]string(nil), l.lines...), nil
}

// countingScorer scores "bad" lines -0.8 and everything else 0.5.
type countingScorer struct {
	calls int
}

func (s *countingScorer) Analyze(_ context.Context, text string) (sentiment.Analysis, error) {
	s.calls++
	if strings.Contains(text, "bad") {
		return sentiment.Analysis{Score: -0.8}, nil
	}
	return sentiment.Analysis{Score: 0.5}, nil
}

// memMoodStore records AppendMood calls.
type memMoodStore struct {
	mu      sync.Mutex
	entries []storage.MoodEntry
	writes  int
	err     error
}

func (m *memMoodStore) AppendMood(entries []storage.MoodEntry, maxEntries int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes++
	m.entries = append(m.entries, entries...)
	if len(m.entries) > maxEntries {
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}
	return nil
}

func (m *memMoodStore) MoodHistory(limit int) ([]storage.MoodEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := m.entries
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]storage.MoodEntry(nil), out...), nil
}

func TestAnalyzer_IncrementalScan(t *testing.T) {
	log := &memLog{lines: []string{"good morning", "bad coffee", "", "nice walk"}}
	scorer := &countingScorer{}
	store := &memMoodStore{}
	buf := NewBuffer(store, 1000, 100)
	a := NewAnalyzer(log, scorer, buf, nil)
	ctx := context.Background()

	first := a.Refresh(ctx)
	if len(first) != 3 || scorer.calls != 3 {
		t.Fatalf("first scan: %d entries, %d calls; want 3, 3", len(first), scorer.calls)
	}

	// Unchanged log: served from cache.
	if again := a.Refresh(ctx); len(again) != 3 || scorer.calls != 3 {
		t.Fatalf("unchanged log rescored: %d calls", scorer.calls)
	}

	log.append("bad news", "ok", "bad day")
	after := a.Refresh(ctx)
	if len(after) != 6 {
		t.Fatalf("entries = %d, want 6", len(after))
	}
	if scorer.calls != 6 {
		t.Errorf("scorer calls = %d, want exactly 3 new", scorer.calls)
	}
	if buf.Pending() != 6 {
		t.Errorf("buffered writes = %d, want 6", buf.Pending())
	}
	if after[3].Score != -0.8 || after[4].Score != 0.5 {
		t.Errorf("new scores = %v, %v", after[3].Score, after[4].Score)
	}
}

func TestAnalyzer_UnterminatedLineWaits(t *testing.T) {
	log := &memLog{lines: []string{"good morning"}, partial: "this is ba"}
	scorer := &countingScorer{}
	a := NewAnalyzer(log, scorer, nil, nil)
	ctx := context.Background()

	if got := a.Refresh(ctx); len(got) != 1 || scorer.calls != 1 {
		t.Fatalf("partial line scored: %d entries, %d calls", len(got), scorer.calls)
	}

	log.mu.Lock()
	log.partial = ""
	log.lines = append(log.lines, "this is bad")
	log.mu.Unlock()

	got := a.Refresh(ctx)
	if len(got) != 2 || scorer.calls != 2 {
		t.Fatalf("completed line: %d entries, %d calls; want 2, 2", len(got), scorer.calls)
	}
	if got[1].Score != -0.8 {
		t.Errorf("completed line score = %v, want -0.8", got[1].Score)
	}
}

func TestAnalyzer_TruncationRescans(t *testing.T) {
	log := &memLog{lines: []string{"one", "two", "three"}}
	scorer := &countingScorer{}
	a := NewAnalyzer(log, scorer, nil, nil)
	ctx := context.Background()

	a.Refresh(ctx)
	log.mu.Lock()
	log.lines = []string{"bad fresh start"}
	log.mu.Unlock()

	got := a.Refresh(ctx)
	if len(got) != 1 || got[0].Score != -0.8 {
		t.Fatalf("after truncation got %+v, want single rescanned entry", got)
	}
}

func TestAnalyzer_IOErrorReturnsCache(t *testing.T) {
	log := &memLog{lines: []string{"hello", "bad"}}
	a := NewAnalyzer(log, &countingScorer{}, nil, nil)
	ctx := context.Background()

	a.Refresh(ctx)
	log.err = errors.New("permission denied")
	got := a.Refresh(ctx)
	if len(got) != 2 {
		t.Errorf("entries = %d, want cached 2", len(got))
	}
}

func TestAnalyzer_TimestampsAtAnalysisTime(t *testing.T) {
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	log := &memLog{lines: []string{"hi"}}
	a := NewAnalyzer(log, &countingScorer{}, nil, func() time.Time { return at })

	got := a.Refresh(context.Background())
	if !got[0].Timestamp.Equal(at) {
		t.Errorf("timestamp = %v, want %v", got[0].Timestamp, at)
	}
}

func TestAnalyzer_Latest(t *testing.T) {
	log := &memLog{lines: []string{"fine", "bad", "  "}}
	a := NewAnalyzer(log, &countingScorer{}, nil, nil)
	if got := a.Latest(context.Background()); got != -0.8 {
		t.Errorf("Latest = %v, want -0.8", got)
	}

	empty := NewAnalyzer(&memLog{}, &countingScorer{}, nil, nil)
	if got := empty.Latest(context.Background()); got != 0 {
		t.Errorf("Latest on empty log = %v, want 0", got)
	}
}

func TestBuffer_FlushesInBatches(t *testing.T) {
	store := &memMoodStore{}
	buf := NewBuffer(store, 3, 100)

	for i := 0; i < 7; i++ {
		buf.Add(storage.MoodEntry{Timestamp: time.Now(), Score: float64(i) / 10})
	}
	if store.writes != 2 {
		t.Errorf("writes = %d, want 2", store.writes)
	}
	if buf.Pending() != 1 {
		t.Errorf("pending = %d, want 1", buf.Pending())
	}
	if err := buf.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(store.entries) != 7 || buf.Pending() != 0 {
		t.Errorf("stored = %d pending = %d", len(store.entries), buf.Pending())
	}
}

func TestBuffer_FailedFlushKeepsEntries(t *testing.T) {
	store := &memMoodStore{err: errors.New("disk full")}
	buf := NewBuffer(store, 2, 100)

	buf.Add(storage.MoodEntry{Score: 0.1})
	buf.Add(storage.MoodEntry{Score: 0.2})
	if buf.Pending() != 2 {
		t.Fatalf("pending = %d, want 2 after failed flush", buf.Pending())
	}

	store.err = nil
	if err := buf.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(store.entries) != 2 {
		t.Errorf("stored = %d, want 2", len(store.entries))
	}
}

func TestBuffer_HistoryIncludesPending(t *testing.T) {
	store := &memMoodStore{}
	buf := NewBuffer(store, 2, 3)

	for i := 0; i < 5; i++ {
		buf.Add(storage.MoodEntry{Score: float64(i)})
	}
	h := buf.History()
	if len(h) != 3 {
		t.Fatalf("history = %d entries, want cap 3", len(h))
	}
	if h[0].Score != 2 || h[2].Score != 4 {
		t.Errorf("history = %+v, want scores 2..4", h)
	}
}

func TestStats_Daily(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	entries := []storage.MoodEntry{
		{Timestamp: now.Add(-time.Hour), Score: 0.4},
		{Timestamp: now.Add(-2 * time.Hour), Score: 0.0},
		{Timestamp: now.AddDate(0, 0, -1), Score: -0.6},
		{Timestamp: now.AddDate(0, 0, -45), Score: 1},
	}

	b := Stats(entries, Daily, now)
	if len(b) != 30 {
		t.Fatalf("buckets = %d, want 30", len(b))
	}
	last := b[29]
	if last.Label != "03/15" || last.Count != 2 || last.Mean != 0.2 {
		t.Errorf("today = %+v", last)
	}
	if b[28].Count != 1 || b[28].Mean != -0.6 {
		t.Errorf("yesterday = %+v", b[28])
	}
	if b[0].Count != 0 || b[0].Mean != 0 {
		t.Errorf("oldest = %+v", b[0])
	}
}

func TestStats_WeeklyStartsMonday(t *testing.T) {
	// 2026-03-18 is a Wednesday.
	now := time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC)
	b := Stats(nil, Weekly, now)
	if len(b) != 12 {
		t.Fatalf("buckets = %d, want 12", len(b))
	}
	if got := b[11].Start.Weekday(); got != time.Monday {
		t.Errorf("week starts on %v", got)
	}
	if b[11].Label != "Week 03/16" {
		t.Errorf("label = %q", b[11].Label)
	}
}

func TestStats_Monthly(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	entries := []storage.MoodEntry{{Timestamp: time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC), Score: -0.2}}
	b := Stats(entries, Monthly, now)
	if len(b) != 12 {
		t.Fatalf("buckets = %d, want 12", len(b))
	}
	if b[11].Label != "Jan 2026" || b[10].Label != "Dec 2025" || b[0].Label != "Feb 2025" {
		t.Errorf("labels = %q .. %q, %q", b[0].Label, b[10].Label, b[11].Label)
	}
	if b[10].Count != 1 {
		t.Errorf("december count = %d", b[10].Count)
	}
}

func TestParsePeriod(t *testing.T) {
	if p, err := ParsePeriod(""); err != nil || p != Daily {
		t.Errorf("ParsePeriod(\"\") = %v, %v", p, err)
	}
	if _, err := ParsePeriod("hourly"); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]storage.MoodEntry{{Score: 0.5}, {Score: -0.5}, {Score: 0.05}, {Score: 0.2}})
	if s.Total != 4 || s.Positive != 2 || s.Negative != 1 || s.Neutral != 1 {
		t.Errorf("summary = %+v", s)
	}
	if math.Abs(s.Mean-0.0625) > 1e-12 {
		t.Errorf("mean = %v", s.Mean)
	}
	if empty := Summarize(nil); empty.Total != 0 || empty.Mean != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}
