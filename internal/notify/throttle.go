package notify

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttled wraps a Notifier so at most one alert goes out per interval.
// Suppressed alerts return ErrThrottled instead of blocking the caller.
type Throttled struct {
	next    Notifier
	limiter *rate.Limiter
}

// NewThrottled allows one notification every interval. interval <= 0 disables
// throttling.
func NewThrottled(next Notifier, interval time.Duration) *Throttled {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(limit, 1)}
}

func (t *Throttled) Notify(ctx context.Context, a Alert) error {
	if !t.limiter.AllowN(a.At, 1) {
		return ErrThrottled
	}
	return t.next.Notify(ctx, a)
}

func (t *Throttled) Name() string { return t.next.Name() }
