package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrThrottled is returned when a notification is suppressed by the rate limit.
var ErrThrottled = errors.New("notification throttled")

// Alert is what the guardian is told.
type Alert struct {
	Guardian      string
	NegativeCount int
	Excerpts      []string
	At            time.Time
}

// Notifier delivers alerts to a guardian.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
	Name() string
}

// maxMessageExcerpts bounds how many lines are quoted in a message.
const maxMessageExcerpts = 3

// Message renders the alert text sent to the guardian.
func Message(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SentiGuard alert: %d strongly negative messages since the last alert (%s).",
		a.NegativeCount, a.At.Format("2006-01-02 15:04"))
	if n := min(len(a.Excerpts), maxMessageExcerpts); n > 0 {
		b.WriteString("\nRecent examples:")
		for _, e := range a.Excerpts[len(a.Excerpts)-n:] {
			b.WriteString("\n- ")
			b.WriteString(e)
		}
	}
	b.WriteString("\nPlease check in with them.")
	return b.String()
}

// LogNotifier records alerts in the process log. It is used when no
// messaging channel is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier writing to logger (slog.Default when nil).
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, a Alert) error {
	n.logger.Warn("guardian alert", "guardian", a.Guardian, "negative_count", a.NegativeCount)
	return nil
}

func (n *LogNotifier) Name() string { return "log" }
