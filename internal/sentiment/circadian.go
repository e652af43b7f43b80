package sentiment

import (
	"log/slog"
	"time"

	"github.com/kalambet/sentiguard/internal/storage"
)

const (
	circadianDamping = 0.2
	circadianAlpha   = 0.1
)

// ProfileStore persists the per-hour baselines.
type ProfileStore interface {
	LoadCircadian() (storage.CircadianProfile, error)
	SaveCircadian(storage.CircadianProfile) error
}

// Circadian normalizes scores against the learned baseline for the current
// hour. The profile is re-read on every call so other readers of the store
// always see the latest values.
type Circadian struct {
	store ProfileStore
	now   func() time.Time
}

// NewCircadian creates a normalizer. now may be nil for time.Now.
func NewCircadian(store ProfileStore, now func() time.Time) *Circadian {
	if now == nil {
		now = time.Now
	}
	return &Circadian{store: store, now: now}
}

// Normalize pulls score 20% toward the hour's baseline, then folds score into
// that baseline with an EMA and persists the profile. If the profile cannot
// be read the baseline is taken as 0 and nothing is written back.
func (c *Circadian) Normalize(score float64) (normalized, baseline float64) {
	hour := c.now().Hour()

	profile, err := c.store.LoadCircadian()
	if err != nil {
		slog.Warn("circadian profile unreadable, using flat baseline", "error", err)
		return score - circadianDamping*score, 0
	}

	baseline = profile[hour]
	normalized = score - circadianDamping*(score-baseline)

	profile[hour] = circadianAlpha*score + (1-circadianAlpha)*baseline
	if err := c.store.SaveCircadian(profile); err != nil {
		slog.Warn("circadian profile not saved", "hour", hour, "error", err)
	}
	return normalized, baseline
}

// Profile returns the stored profile for display.
func (c *Circadian) Profile() (storage.CircadianProfile, error) {
	return c.store.LoadCircadian()
}
