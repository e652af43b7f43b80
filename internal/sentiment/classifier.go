package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/sentiguard/internal/engine"
)

// maxClassifierTokens bounds the text handed to the model.
const maxClassifierTokens = 512

const classifyTimeout = 15 * time.Second

// Classifier produces a raw polarity in [-1, 1] for a piece of text.
type Classifier interface {
	Classify(ctx context.Context, text string) (float64, error)
	// Name identifies the strategy in logs.
	Name() string
}

// ModelClassifier asks a chat model for a {label, confidence} judgement.
type ModelClassifier struct {
	engine  engine.Engine
	model   string
	timeout time.Duration
}

// NewModelClassifier creates a classifier backed by the given engine and model.
func NewModelClassifier(e engine.Engine, model string) *ModelClassifier {
	return &ModelClassifier{engine: e, model: model, timeout: classifyTimeout}
}

func (c *ModelClassifier) Name() string { return "model:" + c.model }

const classifyPrompt = `Classify the sentiment of the user's message.
Answer with a JSON object {"label": "positive"|"neutral"|"negative", "confidence": <0.0-1.0>}.
Informal language, slang and gaming talk should be judged by what the writer means.`

func (c *ModelClassifier) Classify(ctx context.Context, text string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.engine.Chat(ctx, c.model, []engine.Message{
		{Role: "system", Content: classifyPrompt},
		{Role: "user", Content: truncateTokens(text, maxClassifierTokens)},
	}, labelSchema())
	if err != nil {
		return 0, fmt.Errorf("classifier chat: %w", err)
	}

	label, confidence, err := parseLabel(resp)
	if err != nil {
		return 0, err
	}
	switch label {
	case "positive":
		return clamp(confidence), nil
	case "negative":
		return clamp(-confidence), nil
	default:
		return 0, nil
	}
}

func labelSchema() *engine.Schema {
	return &engine.Schema{
		Type: "object",
		Properties: map[string]engine.SchemaProperty{
			"label":      {Type: "string", Enum: []string{"positive", "neutral", "negative"}},
			"confidence": {Type: "number", Description: "Confidence 0.0-1.0"},
		},
		Required: []string{"label", "confidence"},
	}
}

// parseLabel extracts {label, confidence} from a model response. Small local
// models wrap JSON in code fences or add chatter around it, so the object is
// located by brace position after stripping fences.
func parseLabel(resp string) (string, float64, error) {
	s := strings.TrimSpace(resp)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", 0, fmt.Errorf("no JSON object in classifier response")
	}

	var obj struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return "", 0, fmt.Errorf("unmarshal classifier response: %w", err)
	}

	label := strings.ToLower(strings.TrimSpace(obj.Label))
	switch label {
	case "positive", "neutral", "negative":
	default:
		return "", 0, fmt.Errorf("unknown sentiment label %q", obj.Label)
	}
	// Some models answer on a 0-100 scale.
	if obj.Confidence > 1 && obj.Confidence <= 100 {
		obj.Confidence /= 100
	}
	if obj.Confidence < 0 {
		obj.Confidence = 0
	}
	return label, obj.Confidence, nil
}

func truncateTokens(text string, max int) string {
	fields := strings.Fields(text)
	if len(fields) <= max {
		return text
	}
	return strings.Join(fields[:max], " ")
}
