package sentiment

import (
	"math"
	"sync"
)

const (
	rollingWindowSize = 10
	minAnomalySamples = 3
	stdevEpsilon      = 0.01
	anomalyZ          = -2.0
	dampingPerZ       = 0.05
)

// RollingWindow keeps the most recent scores and flags sudden negative drops.
type RollingWindow struct {
	mu     sync.Mutex
	scores []float64
}

// NewRollingWindow returns an empty window.
func NewRollingWindow() *RollingWindow {
	return &RollingWindow{scores: make([]float64, 0, rollingWindowSize)}
}

// RecordAndCheck appends score and reports whether it is a negative outlier
// against the window (including itself). damping is the amount the caller
// subtracts; it is zero when anomaly is false.
func (w *RollingWindow) RecordAndCheck(score float64) (anomaly bool, damping float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.scores = append(w.scores, score)
	if len(w.scores) > rollingWindowSize {
		w.scores = append(w.scores[:0], w.scores[len(w.scores)-rollingWindowSize:]...)
	}
	if len(w.scores) < minAnomalySamples {
		return false, 0
	}

	mean, stdev := meanStdev(w.scores)
	if stdev < stdevEpsilon {
		return false, 0
	}
	z := (score - mean) / stdev
	if z < anomalyZ {
		return true, math.Abs(z) * dampingPerZ
	}
	return false, 0
}

// Len returns the number of scores currently held.
func (w *RollingWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.scores)
}

// Reset empties the window.
func (w *RollingWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scores = w.scores[:0]
}

// meanStdev returns the mean and sample standard deviation of xs (len >= 2).
func meanStdev(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)-1))
}
