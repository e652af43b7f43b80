package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/sentiguard/internal/storage"
)

const (
	baselineWeight    = 0.7
	contextualWeight  = 0.3
	overrideMinBlend  = -0.1
	overrideMinBoost  = 0.4
	overrideFloor     = 0.4
	concernSampleLen  = 100
	maxConcernEntries = 50
)

// ConcernSink receives diagnostic entries for human review.
type ConcernSink interface {
	AppendConcern(e storage.ConcernEntry, maxEntries int) error
}

// Analysis explains how a final score was reached. A cached result carries
// only Score and Cached.
type Analysis struct {
	Score      float64        `json:"score"`
	Cached     bool           `json:"cached"`
	Baseline   float64        `json:"baseline"`
	Contextual float64        `json:"contextual"`
	Blended    float64        `json:"blended"`
	Profanity  float64        `json:"profanity_shift"`
	Anomaly    bool           `json:"anomaly"`
	Damping    float64        `json:"damping"`
	Circadian  float64        `json:"circadian_baseline"`
	Sarcasm    int            `json:"sarcasm_markers"`
	Crisis     bool           `json:"crisis"`
	Venting    bool           `json:"venting"`
	Semantic   SemanticResult `json:"semantic"`
	Override   bool           `json:"override"`
	Flags      ContextFlags   `json:"flags"`
}

// Options wires the scorer's components. Classifier, Contextual, Circadian,
// Markers and Semantic are required; the rest have defaults.
type Options struct {
	Classifier Classifier
	Contextual *Contextual
	Vocabulary *Vocabulary
	Window     *RollingWindow
	Circadian  *Circadian
	Markers    *Markers
	Semantic   *Semantic
	Cache      *ResultCache
	Concerns   ConcernSink
	Now        func() time.Time
}

// Scorer composes every correction layer into one final score.
type Scorer struct {
	classifier Classifier
	contextual *Contextual
	vocab      *Vocabulary
	window     *RollingWindow
	circadian  *Circadian
	markers    *Markers
	semantic   *Semantic
	cache      *ResultCache
	concerns   ConcernSink
	now        func() time.Time
}

// NewScorer builds a Scorer from opts.
func NewScorer(opts Options) *Scorer {
	s := &Scorer{
		classifier: opts.Classifier,
		contextual: opts.Contextual,
		vocab:      opts.Vocabulary,
		window:     opts.Window,
		circadian:  opts.Circadian,
		markers:    opts.Markers,
		semantic:   opts.Semantic,
		cache:      opts.Cache,
		concerns:   opts.Concerns,
		now:        opts.Now,
	}
	if s.vocab == nil {
		s.vocab = DefaultVocabulary()
	}
	if s.window == nil {
		s.window = NewRollingWindow()
	}
	if s.cache == nil {
		s.cache = NewResultCache(defaultCacheSize)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Strategy describes the capability choices made at construction.
func (s *Scorer) Strategy() map[string]string {
	sem := "keywords"
	if s.semantic.UsesEmbeddings() {
		sem = "embeddings"
	}
	syn := "none"
	if s.markers.syntax != nil {
		syn = "rules"
	}
	return map[string]string{
		"classifier": s.classifier.Name(),
		"semantic":   sem,
		"syntax":     syn,
	}
}

// Analyze scores text. It never panics and always returns a score in [-1, 1].
// A failed classifier call scores the utterance from a neutral baseline and
// returns the error next to the (degraded) analysis; such results are not
// cached.
func (s *Scorer) Analyze(ctx context.Context, text string) (a Analysis, err error) {
	if strings.TrimSpace(text) == "" {
		return Analysis{}, nil
	}
	if v, ok := s.cache.Get(text); ok {
		return Analysis{Score: v, Cached: true}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("scoring panicked, returning neutral score", "panic", r)
			a = Analysis{}
			err = fmt.Errorf("scoring panicked: %v", r)
		}
	}()

	a, err = s.compose(ctx, text)
	if err == nil {
		s.cache.Put(text, a.Score)
	}
	return a, err
}

func (s *Scorer) compose(ctx context.Context, text string) (Analysis, error) {
	var a Analysis

	baseline, classifyErr := s.classifier.Classify(ctx, text)
	if classifyErr != nil {
		slog.Warn("classifier call failed, scoring from neutral baseline", "classifier", s.classifier.Name(), "error", classifyErr)
		baseline = 0
	}
	a.Baseline = baseline

	cr := s.contextual.Analyze(text)
	a.Contextual = cr.AdjustedCompound
	a.Flags = cr.Flags
	a.Blended = baselineWeight*baseline + contextualWeight*cr.AdjustedCompound

	score := a.Blended
	var boost float64

	if classifyErr == nil {
		shift, err := ProfanityShift(ctx, s.classifier, s.vocab, text, baseline)
		if err != nil {
			slog.Debug("profanity shift skipped", "error", err)
		}
		a.Profanity = shift
		score += shift
		boost += math.Max(shift, 0)
	}

	a.Anomaly, a.Damping = s.window.RecordAndCheck(score)
	score -= a.Damping

	score, a.Circadian = s.circadian.Normalize(score)

	score, mr := s.markers.Apply(text, score)
	a.Sarcasm = len(mr.Sarcasm)
	a.Crisis = len(mr.Crisis) > 0
	a.Venting = mr.Venting
	boost += mr.VentingAdj

	a.Semantic = s.semantic.Adjust(ctx, text)
	score += a.Semantic.Total()
	boost += math.Max(a.Semantic.Gaming, 0) + math.Max(a.Semantic.Idiom, 0)

	if !a.Crisis && a.Blended >= overrideMinBlend && boost > overrideMinBoost && score < overrideFloor {
		score = overrideFloor
		a.Override = true
	}
	if a.Crisis {
		score = math.Min(score, crisisCeiling)
	}
	a.Score = clamp(score)

	if a.Crisis || cr.Flags.Concerning() {
		s.logConcern(text, a, mr)
	}
	return a, classifyErr
}

func (s *Scorer) logConcern(text string, a Analysis, mr MarkerResult) {
	if s.concerns == nil {
		return
	}
	flags := a.Flags.Names()
	var why []string
	if len(mr.Crisis) > 0 {
		flags = append(flags, "crisis")
		why = append(why, "crisis phrases: "+strings.Join(mr.Crisis, ", "))
	}
	if a.Flags.MentalHealthConcern {
		why = append(why, "concern language")
	}
	if a.Anomaly {
		why = append(why, fmt.Sprintf("sudden drop (damping %.2f)", a.Damping))
	}

	entry := storage.ConcernEntry{
		ID:            uuid.New().String(),
		Timestamp:     s.now(),
		Sample:        Excerpt(text, concernSampleLen),
		RawScore:      a.Baseline,
		AdjustedScore: a.Score,
		Flags:         flags,
		Explanation:   strings.Join(why, "; "),
	}
	if err := s.concerns.AppendConcern(entry, maxConcernEntries); err != nil {
		slog.Warn("concerning log write failed", "error", err)
	}
}

// ResetCaches clears the rolling window, the result cache and the rumination
// window. The circadian profile is persistent and unaffected.
func (s *Scorer) ResetCaches() {
	s.window.Reset()
	s.cache.Reset()
	s.semantic.Reset()
}

// Excerpt trims text and cuts it to at most n runes.
func Excerpt(text string, n int) string {
	t := strings.TrimSpace(text)
	r := []rune(t)
	if len(r) <= n {
		return t
	}
	return string(r[:n])
}
