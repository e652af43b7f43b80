package engine

import (
	"context"
	"log/slog"
)

// DetectConfig holds parameters for backend detection.
type DetectConfig struct {
	OllamaBaseURL    string
	OllamaChatModel  string
	OllamaEmbedModel string

	OpenAIBaseURL    string
	OpenAIAPIKey     string
	OpenAIChatModel  string
	OpenAIEmbedModel string
}

// Detect probes the configured backends in order of preference: a local
// Ollama server first, then an OpenAI-compatible endpoint when an API key is
// set. It returns ErrNoBackend when neither answers.
func Detect(ctx context.Context, cfg DetectConfig) (*Backend, error) {
	if cfg.OllamaBaseURL != "" {
		e := NewOllamaEngine(cfg.OllamaBaseURL)
		if e.IsRunning(ctx) {
			return &Backend{
				Name:       "ollama",
				Engine:     e,
				ChatModel:  cfg.OllamaChatModel,
				EmbedModel: cfg.OllamaEmbedModel,
			}, nil
		}
		slog.Debug("ollama not reachable", "base_url", cfg.OllamaBaseURL)
	}

	if cfg.OpenAIAPIKey != "" {
		e := NewOpenAIEngine(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if e.IsRunning(ctx) {
			return &Backend{
				Name:       "openai",
				Engine:     e,
				ChatModel:  cfg.OpenAIChatModel,
				EmbedModel: cfg.OpenAIEmbedModel,
			}, nil
		}
		slog.Debug("openai endpoint not reachable", "base_url", cfg.OpenAIBaseURL)
	}

	return nil, ErrNoBackend
}
