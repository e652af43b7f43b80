package sentiment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/sentiguard/internal/storage"
)

type memConcerns struct {
	entries []storage.ConcernEntry
}

func (m *memConcerns) AppendConcern(e storage.ConcernEntry, _ int) error {
	m.entries = append(m.entries, e)
	return nil
}

type panicClassifier struct{}

func (panicClassifier) Classify(context.Context, string) (float64, error) { panic("model exploded") }
func (panicClassifier) Name() string                                       { return "panic" }

type testScorer struct {
	*Scorer
	profiles *memProfileStore
	concerns *memConcerns
}

func newTestScorer(c Classifier) testScorer {
	vocab := DefaultVocabulary()
	lex := DefaultLexicon()
	profiles := &memProfileStore{}
	concerns := &memConcerns{}
	s := NewScorer(Options{
		Classifier: c,
		Contextual: NewContextual(lex, vocab),
		Vocabulary: vocab,
		Circadian:  NewCircadian(profiles, fixedClock(14)),
		Markers:    NewMarkers(vocab, NewRuleSyntax(vocab)),
		Semantic:   NewSemantic(vocab, nil, nil),
		Concerns:   concerns,
		Now:        func() time.Time { return time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC) },
	})
	return testScorer{Scorer: s, profiles: profiles, concerns: concerns}
}

var sampleTexts = []string{
	"I love this so much!!!",
	"I hate everything about today",
	"YESSS LETS GO we won",
	"gg ez clutch carry, absolutely love it :D",
	"ugh. this fucking shit again.",
	"oh great, yeah right, just great",
	"I want to die",
	"meh",
	strings.Repeat("terrible awful horrible ", 50),
	strings.Repeat("amazing wonderful perfect yay ", 50) + "!!!!!!!!",
	"the meeting is at 3pm",
	"on cloud nine and living my best life lol",
}

func TestAnalyze_Bounded(t *testing.T) {
	s := newTestScorer(NewLexiconClassifier(nil))
	for _, text := range sampleTexts {
		a, err := s.Analyze(context.Background(), text)
		if err != nil {
			t.Fatalf("Analyze(%q): %v", text, err)
		}
		if a.Score < -1 || a.Score > 1 {
			t.Errorf("Analyze(%q) = %v, out of [-1, 1]", text, a.Score)
		}
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	c := &scriptClassifier{def: 0.9}
	s := newTestScorer(c)
	for _, text := range []string{"", "   ", "\t\n"} {
		a, err := s.Analyze(context.Background(), text)
		if err != nil || a.Score != 0 {
			t.Errorf("Analyze(%q) = %v, %v; want 0, nil", text, a.Score, err)
		}
	}
	if c.calls != 0 {
		t.Errorf("classifier called %d times for empty input", c.calls)
	}
}

func TestAnalyze_CacheIdempotent(t *testing.T) {
	s := newTestScorer(NewLexiconClassifier(nil))
	ctx := context.Background()

	first, err := s.Analyze(ctx, "Had a really nice walk in the park")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// Mutate rolling and circadian state with other inputs.
	for _, text := range []string{"awful", "terrible day", "worst ever", "so sad"} {
		s.Analyze(ctx, text)
	}
	second, err := s.Analyze(ctx, "  had a really nice walk in the park ")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !second.Cached {
		t.Error("second call should be a cache hit")
	}
	if second.Score != first.Score {
		t.Errorf("cached score %v != first score %v", second.Score, first.Score)
	}
}

func TestAnalyze_CrisisOverride(t *testing.T) {
	// Even a classifier that calls it positive cannot lift a crisis phrase.
	s := newTestScorer(&scriptClassifier{def: 1})
	for _, text := range []string{
		"I want to die",
		"YESSS lets go gg ez clutch, I want to die lol :D",
		"living my best life, no cap, but honestly want to end my life",
	} {
		a, err := s.Analyze(context.Background(), text)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if a.Score > crisisCeiling {
			t.Errorf("Analyze(%q) = %v, want <= %v", text, a.Score, crisisCeiling)
		}
		if a.Override {
			t.Errorf("Analyze(%q): override applied despite crisis", text)
		}
	}
	if len(s.concerns.entries) != 3 {
		t.Fatalf("concern entries = %d, want 3", len(s.concerns.entries))
	}
	e := s.concerns.entries[0]
	if !contains(e.Flags, "crisis") || e.Explanation == "" {
		t.Errorf("concern entry = %+v", e)
	}
}

func TestAnalyze_CrisisInflected(t *testing.T) {
	s := newTestScorer(&scriptClassifier{def: 0})
	for _, text := range []string{
		"I keep self harming again",
		"thinking about suicides lately",
		"I want to dieee",
	} {
		a, err := s.Analyze(context.Background(), text)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if !a.Crisis || a.Score > crisisCeiling {
			t.Errorf("Analyze(%q) = %v crisis=%v, want <= %v with crisis", text, a.Score, a.Crisis, crisisCeiling)
		}
	}
}

func TestAnalyze_StrongPositiveOverride(t *testing.T) {
	// Neutral baseline, but gaming keywords and an idiom push the
	// cumulative enhancement past the override threshold.
	s := newTestScorer(&scriptClassifier{def: 0})
	a, err := s.Analyze(context.Background(), "gg ez clutch, living my best life")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Blended < overrideMinBlend {
		t.Fatalf("blended = %v, test needs a near-neutral blend", a.Blended)
	}
	if a.Score < overrideFloor {
		t.Errorf("score = %v, want >= %v", a.Score, overrideFloor)
	}
}

func TestAnalyze_ClassifierErrorDegrades(t *testing.T) {
	s := newTestScorer(&scriptClassifier{err: errors.New("model timeout")})
	ctx := context.Background()

	a, err := s.Analyze(ctx, "what a lovely day")
	if err == nil {
		t.Fatal("expected classifier error to be surfaced")
	}
	if a.Baseline != 0 {
		t.Errorf("baseline = %v, want 0", a.Baseline)
	}
	if a.Score < -1 || a.Score > 1 {
		t.Errorf("score = %v out of range", a.Score)
	}
	again, _ := s.Analyze(ctx, "what a lovely day")
	if again.Cached {
		t.Error("degraded result should not be cached")
	}
}

func TestAnalyze_PanicDegradesToNeutral(t *testing.T) {
	s := newTestScorer(panicClassifier{})
	a, err := s.Analyze(context.Background(), "anything at all")
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if a.Score != 0 {
		t.Errorf("score = %v, want 0", a.Score)
	}
}

func TestAnalyze_UpdatesCircadianProfile(t *testing.T) {
	s := newTestScorer(&scriptClassifier{def: 0.5})
	if _, err := s.Analyze(context.Background(), "a calm and fine afternoon"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if s.profiles.saves != 1 {
		t.Errorf("profile saves = %d, want 1", s.profiles.saves)
	}
	if s.profiles.profile[14] == 0 {
		t.Error("hour 14 baseline not updated")
	}
}

func TestResetCaches(t *testing.T) {
	s := newTestScorer(NewLexiconClassifier(nil))
	ctx := context.Background()
	s.Analyze(ctx, "first line")
	s.Analyze(ctx, "second line")

	s.ResetCaches()
	if s.cache.Len() != 0 || s.window.Len() != 0 {
		t.Errorf("after reset cache=%d window=%d", s.cache.Len(), s.window.Len())
	}
	a, _ := s.Analyze(ctx, "first line")
	if a.Cached {
		t.Error("cache hit after reset")
	}
}

func TestStrategy(t *testing.T) {
	s := newTestScorer(NewLexiconClassifier(nil))
	got := s.Strategy()
	if got["classifier"] != "lexicon" || got["semantic"] != "keywords" || got["syntax"] != "rules" {
		t.Errorf("Strategy = %v", got)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("  héllo wörld  ", 5); got != "héllo" {
		t.Errorf("Excerpt = %q", got)
	}
	if got := Excerpt("short", 100); got != "short" {
		t.Errorf("Excerpt = %q", got)
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
