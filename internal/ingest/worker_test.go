package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/sentiguard/internal/alert"
	"github.com/kalambet/sentiguard/internal/storage"
)

type mockLog struct {
	mu   sync.Mutex
	size int64
	err  error
}

func (m *mockLog) Size() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size, m.err
}

func (m *mockLog) grow(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size += n
}

type mockMonitor struct {
	mu        sync.Mutex
	refreshes int
	checks    int
	checkErr  error
	trigger   bool
}

func (m *mockMonitor) SessionAnalysis(context.Context) []storage.MoodEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	return nil
}

func (m *mockMonitor) CheckAlerts(context.Context) (alert.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
	if m.checkErr != nil {
		return alert.Outcome{}, m.checkErr
	}
	if m.trigger {
		return alert.Outcome{
			Triggered: true,
			Count:     alert.Count{Negatives: 6},
			Record:    &storage.AlertRecord{Status: alert.StatusSent},
		}, nil
	}
	return alert.Outcome{}, nil
}

func (m *mockMonitor) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes, m.checks
}

func TestWorker_ProcessesOnlyOnChange(t *testing.T) {
	log := &mockLog{size: 10}
	mon := &mockMonitor{}
	w := NewWorker(log, mon, time.Millisecond)
	ctx := context.Background()

	done, err := w.RunOnce(ctx)
	if err != nil || !done {
		t.Fatalf("first RunOnce = %v, %v", done, err)
	}
	done, _ = w.RunOnce(ctx)
	if done {
		t.Error("unchanged log should be skipped")
	}
	log.grow(5)
	done, _ = w.RunOnce(ctx)
	if !done {
		t.Error("grown log should be processed")
	}
	if r, c := mon.counts(); r != 2 || c != 2 {
		t.Errorf("refreshes=%d checks=%d, want 2 each", r, c)
	}
}

func TestWorker_FirstPassOnEmptyLog(t *testing.T) {
	w := NewWorker(&mockLog{}, &mockMonitor{}, 0)
	if done, _ := w.RunOnce(context.Background()); !done {
		t.Error("first pass should always run")
	}
	if w.poll != 5*time.Second {
		t.Errorf("default poll = %v", w.poll)
	}
}

func TestWorker_SizeError(t *testing.T) {
	w := NewWorker(&mockLog{err: errors.New("permission denied")}, &mockMonitor{}, 0)
	if _, err := w.RunOnce(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestWorker_AlertErrorRetriesNextPoll(t *testing.T) {
	log := &mockLog{size: 3}
	mon := &mockMonitor{checkErr: errors.New("log unreadable")}
	w := NewWorker(log, mon, 0)

	if _, err := w.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	mon.checkErr = nil
	if done, _ := w.RunOnce(context.Background()); !done {
		t.Error("failed pass should be retried even though size is unchanged")
	}
}

func TestWorker_TriggeredAlert(t *testing.T) {
	w := NewWorker(&mockLog{size: 1}, &mockMonitor{trigger: true}, 0)
	if done, err := w.RunOnce(context.Background()); !done || err != nil {
		t.Errorf("RunOnce = %v, %v", done, err)
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	log := &mockLog{size: 1}
	mon := &mockMonitor{}
	w := NewWorker(log, mon, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	finished := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(finished)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		log.grow(1)
		if r, _ := mon.counts(); r >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if r, _ := mon.counts(); r < 3 {
		t.Errorf("refreshes = %d, want at least 3", r)
	}
}
