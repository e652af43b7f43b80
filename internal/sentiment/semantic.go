package sentiment

import (
	"context"
	"log/slog"
	"sync"
)

const (
	gamingStrongSim      = 0.65
	gamingStrongAdj      = 0.2
	gamingWeakSim        = 0.5
	gamingWeakAdj        = 0.1
	gamingMinKeywords    = 2
	idiomAcceptSim       = 0.7
	ruminationWindow     = 5
	ruminationMinPrior   = 2
	ruminationSimilarity = 0.85
	ruminationPenalty    = -0.1
)

// SemanticResult holds the three additive adjustments.
type SemanticResult struct {
	Gaming     float64
	Idiom      float64
	IdiomMatch string
	Rumination float64
}

// Total is the summed semantic adjustment.
func (r SemanticResult) Total() float64 {
	return r.Gaming + r.Idiom + r.Rumination
}

// Semantic matches utterances against gaming vocabulary and idioms, and
// watches for repetitive ideation. With a nil index it falls back to literal
// keyword matching and rumination is disabled.
type Semantic struct {
	vocab    *Vocabulary
	embedder *Embedder
	index    *VocabIndex

	mu     sync.Mutex
	recent [][]float32
}

// NewSemantic creates the matcher. embedder and index must both be set to
// enable the embedding path.
func NewSemantic(vocab *Vocabulary, embedder *Embedder, index *VocabIndex) *Semantic {
	s := &Semantic{vocab: vocab}
	if embedder != nil && index != nil {
		s.embedder = embedder
		s.index = index
	}
	return s
}

// UsesEmbeddings reports which strategy was chosen at construction.
func (s *Semantic) UsesEmbeddings() bool { return s.index != nil }

func (s *Semantic) Adjust(ctx context.Context, text string) SemanticResult {
	if s.index == nil {
		return s.literal(text)
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		slog.Debug("semantic embedding failed, using keyword matching", "error", err)
		return s.literal(text)
	}

	var res SemanticResult

	var best float64
	for _, g := range s.index.gaming {
		if sim := cosine(vec, g); sim > best {
			best = sim
		}
	}
	switch {
	case best > gamingStrongSim:
		res.Gaming = gamingStrongAdj
	case best > gamingWeakSim:
		res.Gaming = gamingWeakAdj
	}

	bestIdiom := idiomAcceptSim
	for _, id := range s.index.idioms {
		if sim := cosine(vec, id.vec); sim > bestIdiom {
			bestIdiom = sim
			res.Idiom = id.weight
			res.IdiomMatch = id.phrase
		}
	}

	res.Rumination = s.ruminate(vec)
	return res
}

// ruminate compares vec with the prior utterances, then adds it to the window.
func (s *Semantic) ruminate(vec []float32) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var adj float64
	if len(s.recent) >= ruminationMinPrior {
		var sum float64
		for _, prev := range s.recent {
			sum += cosine(vec, prev)
		}
		if sum/float64(len(s.recent)) > ruminationSimilarity {
			adj = ruminationPenalty
		}
	}

	s.recent = append(s.recent, vec)
	if len(s.recent) > ruminationWindow {
		s.recent = s.recent[len(s.recent)-ruminationWindow:]
	}
	return adj
}

func (s *Semantic) literal(text string) SemanticResult {
	var res SemanticResult
	p := newPhrase(text)
	if p.count(s.vocab.Gaming) >= gamingMinKeywords {
		res.Gaming = gamingStrongAdj
	}
	for _, name := range s.vocab.IdiomNames() {
		if p.has(name) {
			res.Idiom = s.vocab.Idioms[name]
			res.IdiomMatch = name
			break
		}
	}
	return res
}

// Reset clears the rumination window.
func (s *Semantic) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = nil
}
