package history

import (
	"fmt"
	"time"

	"github.com/kalambet/sentiguard/internal/storage"
)

// Period selects the bucket size for Stats.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Daily, Weekly, Monthly:
		return p, nil
	case "":
		return Daily, nil
	default:
		return "", fmt.Errorf("unknown period %q (want daily, weekly or monthly)", s)
	}
}

// Bucket is the mean score over one period.
type Bucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	Mean  float64   `json:"value"`
	Count int       `json:"count"`
}

// Stats buckets entries into the last 30 days, 12 weeks (starting Monday) or
// 12 calendar months ending at now, oldest first. Empty buckets have mean 0.
func Stats(entries []storage.MoodEntry, period Period, now time.Time) []Bucket {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var starts []time.Time
	var step func(time.Time) time.Time
	var label func(time.Time) string

	switch period {
	case Weekly:
		monday := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
		for i := 11; i >= 0; i-- {
			starts = append(starts, monday.AddDate(0, 0, -7*i))
		}
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
		label = func(t time.Time) string { return "Week " + t.Format("01/02") }
	case Monthly:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		for i := 11; i >= 0; i-- {
			starts = append(starts, first.AddDate(0, -i, 0))
		}
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
		label = func(t time.Time) string { return t.Format("Jan 2006") }
	default:
		for i := 29; i >= 0; i-- {
			starts = append(starts, today.AddDate(0, 0, -i))
		}
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
		label = func(t time.Time) string { return t.Format("01/02") }
	}

	buckets := make([]Bucket, len(starts))
	sums := make([]float64, len(starts))
	for i, s := range starts {
		buckets[i] = Bucket{Label: label(s), Start: s}
	}
	for _, e := range entries {
		ts := e.Timestamp.In(loc)
		for i, s := range starts {
			if !ts.Before(s) && ts.Before(step(s)) {
				sums[i] += e.Score
				buckets[i].Count++
				break
			}
		}
	}
	for i := range buckets {
		if buckets[i].Count > 0 {
			buckets[i].Mean = sums[i] / float64(buckets[i].Count)
		}
	}
	return buckets
}

// Summary counts entries by polarity.
type Summary struct {
	Total    int     `json:"total_entries"`
	Mean     float64 `json:"avg_score"`
	Positive int     `json:"positive_count"`
	Negative int     `json:"negative_count"`
	Neutral  int     `json:"neutral_count"`
}

const polarityBand = 0.1

// Summarize computes a Summary; scores within ±0.1 count as neutral.
func Summarize(entries []storage.MoodEntry) Summary {
	var s Summary
	var sum float64
	for _, e := range entries {
		sum += e.Score
		switch {
		case e.Score > polarityBand:
			s.Positive++
		case e.Score < -polarityBand:
			s.Negative++
		default:
			s.Neutral++
		}
	}
	s.Total = len(entries)
	if s.Total > 0 {
		s.Mean = sum / float64(s.Total)
	}
	return s
}
