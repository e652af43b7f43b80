package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type recordingSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, m)
	}
	return tgbotapi.Message{}, nil
}

type countingNotifier struct {
	calls int
}

func (c *countingNotifier) Notify(context.Context, Alert) error { c.calls++; return nil }
func (c *countingNotifier) Name() string                       { return "counting" }

func testAlert() Alert {
	return Alert{
		Guardian:      "123456789",
		NegativeCount: 6,
		Excerpts:      []string{"one", "two", "three", "four"},
		At:            time.Date(2026, 2, 3, 21, 30, 0, 0, time.UTC),
	}
}

func TestMessage(t *testing.T) {
	msg := Message(testAlert())
	if !strings.Contains(msg, "6 strongly negative") {
		t.Errorf("message missing count: %q", msg)
	}
	if !strings.Contains(msg, "2026-02-03 21:30") {
		t.Errorf("message missing date: %q", msg)
	}
	if strings.Contains(msg, "- one") || !strings.Contains(msg, "- four") {
		t.Errorf("message should quote only the last three excerpts: %q", msg)
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	s := &recordingSender{}
	n := &TelegramNotifier{bot: s}

	if err := n.Notify(context.Background(), testAlert()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(s.sent))
	}
	if s.sent[0].ChatID != 123456789 {
		t.Errorf("chat id = %d", s.sent[0].ChatID)
	}
}

func TestTelegramNotifier_BadGuardian(t *testing.T) {
	n := &TelegramNotifier{bot: &recordingSender{}}
	a := testAlert()
	a.Guardian = "parent@example.com"
	if err := n.Notify(context.Background(), a); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}

func TestTelegramNotifier_SendError(t *testing.T) {
	n := &TelegramNotifier{bot: &recordingSender{err: errors.New("forbidden")}}
	if err := n.Notify(context.Background(), testAlert()); err == nil {
		t.Fatal("expected send error")
	}
}

func TestThrottled(t *testing.T) {
	next := &countingNotifier{}
	n := NewThrottled(next, 10*time.Minute)
	a := testAlert()

	if err := n.Notify(context.Background(), a); err != nil {
		t.Fatalf("first Notify: %v", err)
	}
	a.At = a.At.Add(time.Minute)
	if err := n.Notify(context.Background(), a); !errors.Is(err, ErrThrottled) {
		t.Fatalf("second Notify err = %v, want ErrThrottled", err)
	}
	a.At = a.At.Add(10 * time.Minute)
	if err := n.Notify(context.Background(), a); err != nil {
		t.Fatalf("third Notify: %v", err)
	}
	if next.calls != 2 {
		t.Errorf("delivered %d, want 2", next.calls)
	}
}

func TestThrottled_Disabled(t *testing.T) {
	next := &countingNotifier{}
	n := NewThrottled(next, 0)
	for i := 0; i < 5; i++ {
		if err := n.Notify(context.Background(), testAlert()); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}
	if next.calls != 5 {
		t.Errorf("delivered %d, want 5", next.calls)
	}
}
