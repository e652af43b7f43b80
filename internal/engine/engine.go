package engine

import (
	"context"
	"errors"
)

// ErrNoBackend is returned by Detect when neither a local Ollama server nor an
// OpenAI-compatible endpoint is usable. Callers fall back to lexicon scoring.
var ErrNoBackend = errors.New("no inference backend available")

// Engine abstracts a model backend (a local Ollama server or any
// OpenAI-compatible endpoint). The sentiment classifier and the vocabulary
// embedder depend on this interface instead of a concrete client.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's response.
	// When jsonSchema is non-nil, structured JSON output is requested.
	Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error)

	// Embed returns the embedding vector for the given text using the specified model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// IsRunning reports whether the backend is reachable.
	IsRunning(ctx context.Context) bool

	// ListModels returns the names of all available models.
	ListModels(ctx context.Context) ([]string, error)

	// HasModel reports whether the given model name is available.
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. The optional callback receives progress updates.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
