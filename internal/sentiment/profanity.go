package sentiment

import (
	"context"
	"strings"
)

const (
	maskingThreshold  = 0.15
	maskingPenalty    = -0.15
	emphaticThreshold = 0.1
	emphaticBoost     = 0.1
)

// ProfanityShift compares the baseline of text against the baseline of the
// same text with profanity removed. Profanity that hides a happier message
// reads as masked distress; profanity that makes it happier reads as
// emphasis. Text without profanity costs no extra classifier call.
func ProfanityShift(ctx context.Context, c Classifier, vocab *Vocabulary, text string, original float64) (float64, error) {
	set := make(map[string]bool, len(vocab.Profanity))
	for _, p := range vocab.Profanity {
		set[p] = true
	}

	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	found := false
	for _, w := range words {
		if set[cleanWord(w)] {
			found = true
			continue
		}
		kept = append(kept, w)
	}
	if !found {
		return 0, nil
	}

	cleaned, err := c.Classify(ctx, strings.Join(kept, " "))
	if err != nil {
		return 0, err
	}
	switch {
	case cleaned > original+maskingThreshold:
		return maskingPenalty, nil
	case cleaned < original-emphaticThreshold:
		return emphaticBoost, nil
	default:
		return 0, nil
	}
}
