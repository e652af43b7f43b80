package storage

import "time"

// HoursPerDay is the fixed size of a circadian profile.
const HoursPerDay = 24

// CircadianProfile maps hour-of-day to a baseline score.
type CircadianProfile [HoursPerDay]float64

// MoodEntry is one persisted mood history point.
type MoodEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// AlertRecord is one guardian alert log entry.
type AlertRecord struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	NegativeCount int       `json:"negative_count"`
	Status        string    `json:"status"`
	ReasonLines   []string  `json:"reason_lines"`
}

// ConcernEntry is a diagnostic record kept for human review only.
type ConcernEntry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Sample        string    `json:"sample"`
	RawScore      float64   `json:"raw_score"`
	AdjustedScore float64   `json:"adjusted_score"`
	Flags         []string  `json:"flags"`
	Explanation   string    `json:"explanation"`
}

// VocabVector is a cached embedding for one vocabulary term.
type VocabVector struct {
	Term      string
	Embedding []float32
}
