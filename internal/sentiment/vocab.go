package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/sentiguard/internal/engine"
	"github.com/kalambet/sentiguard/internal/storage"
)

const embedConcurrency = 4

// Embedder turns text into a vector with a fixed model.
type Embedder struct {
	engine engine.Engine
	model  string
}

// NewEmbedder creates an Embedder using the given Engine and model name.
func NewEmbedder(e engine.Engine, model string) *Embedder {
	return &Embedder{engine: e, model: model}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.engine.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	return vec, nil
}

// EmbedBatch returns embedding vectors for multiple texts concurrently.
// Returns nil (not error) for empty input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.engine.Embed(gCtx, e.model, text)
			if err != nil {
				return fmt.Errorf("embedding %q: %w", text, err)
			}
			results[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// VectorCache persists vocabulary embeddings between runs.
type VectorCache interface {
	GetVectors(model string) (map[string][]float32, error)
	PutVectors(model string, vectors []storage.VocabVector) error
}

// VocabIndex holds embeddings of the gaming terms and idioms.
type VocabIndex struct {
	gaming [][]float32
	idioms []idiomVector
}

type idiomVector struct {
	phrase string
	weight float64
	vec    []float32
}

// BuildVocabIndex embeds every gaming term and idiom, reusing vectors from
// cache where present and writing back the ones it had to compute. cache may
// be nil.
func BuildVocabIndex(ctx context.Context, emb *Embedder, cache VectorCache, vocab *Vocabulary) (*VocabIndex, error) {
	terms := append(append([]string{}, vocab.Gaming...), vocab.IdiomNames()...)

	known := map[string][]float32{}
	if cache != nil {
		v, err := cache.GetVectors(emb.Model())
		if err != nil {
			slog.Warn("vocab vector cache unreadable, re-embedding", "error", err)
		} else {
			known = v
		}
	}

	var missing []string
	for _, t := range terms {
		if _, ok := known[t]; !ok {
			missing = append(missing, t)
		}
	}

	if len(missing) > 0 {
		vecs, err := emb.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("embedding vocabulary: %w", err)
		}
		fresh := make([]storage.VocabVector, len(missing))
		for i, t := range missing {
			known[t] = vecs[i]
			fresh[i] = storage.VocabVector{Term: t, Embedding: vecs[i]}
		}
		if cache != nil {
			if err := cache.PutVectors(emb.Model(), fresh); err != nil {
				slog.Warn("vocab vectors not cached", "error", err)
			}
		}
		slog.Info("vocabulary embedded", "model", emb.Model(), "computed", len(missing), "cached", len(terms)-len(missing))
	}

	idx := &VocabIndex{}
	for _, t := range vocab.Gaming {
		idx.gaming = append(idx.gaming, known[t])
	}
	for _, name := range vocab.IdiomNames() {
		idx.idioms = append(idx.idioms, idiomVector{phrase: name, weight: vocab.Idioms[name], vec: known[name]})
	}
	return idx, nil
}

// cosine returns the cosine similarity of a and b, or 0 when either is empty
// or their lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
