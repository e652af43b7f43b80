package engine

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Capabilities records which models turned out to be usable after EnsureReady.
type Capabilities struct {
	Chat       bool
	Embeddings bool
}

// EnsureReady checks that the backend is reachable and that the chat and
// embedding models are available, pulling missing ones with progress written
// to w. A model that cannot be made available is reported as a missing
// capability rather than an error; only an unreachable backend is an error.
func EnsureReady(ctx context.Context, b *Backend, w io.Writer) (Capabilities, error) {
	var caps Capabilities
	if !b.Engine.IsRunning(ctx) {
		return caps, fmt.Errorf("%s backend is not running", b.Name)
	}

	caps.Chat = ensureModel(ctx, b.Engine, b.ChatModel, w)
	if b.EmbedModel != "" {
		if b.EmbedModel == b.ChatModel {
			caps.Embeddings = caps.Chat
		} else {
			caps.Embeddings = ensureModel(ctx, b.Engine, b.EmbedModel, w)
		}
	}

	if caps.Chat {
		// A throwaway request keeps the classifier loaded so the first real
		// line is not scored against a cold model.
		fmt.Fprintf(w, "model %s: warming up...\n", b.ChatModel)
		warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := b.Engine.Chat(warmCtx, b.ChatModel, []Message{{Role: "user", Content: "ping"}}, nil); err != nil {
			fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", b.ChatModel, err)
		} else {
			fmt.Fprintf(w, "model %s: warm\n", b.ChatModel)
		}
	}
	return caps, nil
}

func ensureModel(ctx context.Context, e Engine, model string, w io.Writer) bool {
	if model == "" {
		return false
	}
	if e.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: ready\n", model)
		return true
	}

	fmt.Fprintf(w, "model %s: pulling...\n", model)
	err := e.PullModel(ctx, model, func(p PullProgress) {
		if p.Total > 0 {
			pct := float64(p.Completed) / float64(p.Total) * 100
			fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
		} else {
			fmt.Fprintf(w, "  %s\n", p.Status)
		}
	})
	if err != nil {
		fmt.Fprintf(w, "model %s: unavailable: %v\n", model, err)
		return false
	}
	fmt.Fprintf(w, "model %s: ready\n", model)
	return true
}
