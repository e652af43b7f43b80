package sentiment

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptClassifier returns fixed scores by exact text and counts calls.
type scriptClassifier struct {
	scores map[string]float64
	def    float64
	err    error
	calls  int
}

func (c *scriptClassifier) Classify(_ context.Context, text string) (float64, error) {
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	if v, ok := c.scores[text]; ok {
		return v, nil
	}
	return c.def, nil
}

func (c *scriptClassifier) Name() string { return "script" }

func TestProfanityShift(t *testing.T) {
	vocab := DefaultVocabulary()
	ctx := context.Background()

	tests := []struct {
		name     string
		text     string
		cleaned  string
		original float64
		cleanVal float64
		want     float64
	}{
		{"masking distress", "this is fucking fine", "this is fine", -0.4, 0.2, maskingPenalty},
		{"emphatic", "damn that was good", "that was good", 0.9, 0.6, emphaticBoost},
		{"no effect", "shit happens", "happens", 0.0, 0.05, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &scriptClassifier{scores: map[string]float64{tt.cleaned: tt.cleanVal}}
			got, err := ProfanityShift(ctx, c, vocab, tt.text, tt.original)
			if err != nil {
				t.Fatalf("ProfanityShift: %v", err)
			}
			if got != tt.want {
				t.Errorf("shift = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfanityShift_CleanTextSkipsClassifier(t *testing.T) {
	c := &scriptClassifier{}
	got, err := ProfanityShift(context.Background(), c, DefaultVocabulary(), "what a lovely morning", 0.6)
	if err != nil || got != 0 {
		t.Fatalf("got %v, %v; want 0, nil", got, err)
	}
	if c.calls != 0 {
		t.Errorf("classifier called %d times, want 0", c.calls)
	}
}

func TestProfanityShift_ClassifierError(t *testing.T) {
	c := &scriptClassifier{err: errors.New("boom")}
	_, err := ProfanityShift(context.Background(), c, DefaultVocabulary(), strings.ToUpper("shit"), 0)
	if err == nil {
		t.Error("expected classifier error to propagate")
	}
}
