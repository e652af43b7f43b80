package history

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/kalambet/sentiguard/internal/storage"
)

const (
	DefaultFlushBatch = 20
	DefaultMaxEntries = 10000
)

// MoodStore is the durable side of mood history.
type MoodStore interface {
	AppendMood(entries []storage.MoodEntry, maxEntries int) error
	MoodHistory(limit int) ([]storage.MoodEntry, error)
}

// Buffer accumulates mood entries in memory and writes them in batches.
type Buffer struct {
	mu         sync.Mutex
	store      MoodStore
	pending    []storage.MoodEntry
	batch      int
	maxEntries int
	logger     *slog.Logger
}

// NewBuffer creates a buffer that flushes every batch entries and caps the
// persisted history at maxEntries.
func NewBuffer(store MoodStore, batch, maxEntries int) *Buffer {
	if batch <= 0 {
		batch = DefaultFlushBatch
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Buffer{
		store:      store,
		batch:      batch,
		maxEntries: maxEntries,
		logger:     slog.Default(),
	}
}

// Add queues e, flushing when the batch is full. A failed flush keeps the
// entries queued for the next attempt.
func (b *Buffer) Add(e storage.MoodEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, e)
	if len(b.pending) > b.maxEntries {
		b.pending = b.pending[len(b.pending)-b.maxEntries:]
	}
	if len(b.pending) >= b.batch {
		if err := b.flushLocked(); err != nil {
			b.logger.Warn("mood history flush failed, keeping entries buffered", "pending", len(b.pending), "error", err)
		}
	}
}

// Flush writes every queued entry.
func (b *Buffer) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

func (b *Buffer) flushLocked() error {
	if len(b.pending) == 0 {
		return nil
	}
	if err := b.store.AppendMood(b.pending, b.maxEntries); err != nil {
		return fmt.Errorf("writing %d mood entries: %w", len(b.pending), err)
	}
	b.logger.Debug("mood history flushed", "entries", len(b.pending))
	b.pending = nil
	return nil
}

// Pending returns the number of unflushed entries.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// History returns persisted plus pending entries, oldest first, capped at
// maxEntries. If the store cannot be read only the pending entries are
// returned.
func (b *Buffer) History() []storage.MoodEntry {
	b.mu.Lock()
	pending := append([]storage.MoodEntry(nil), b.pending...)
	b.mu.Unlock()

	stored, err := b.store.MoodHistory(b.maxEntries)
	if err != nil {
		b.logger.Warn("mood history unreadable, returning buffered entries only", "error", err)
		stored = nil
	}
	all := append(stored, pending...)
	if len(all) > b.maxEntries {
		all = all[len(all)-b.maxEntries:]
	}
	return all
}

// Discard drops pending entries without writing them.
func (b *Buffer) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}
