package sentiment

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

//go:embed data/markers.json
var markersJSON []byte

// Vocabulary holds the fixed keyword sets every detector matches against.
type Vocabulary struct {
	Profanity          []string           `json:"profanity"`
	Sarcasm            []string           `json:"sarcasm"`
	Crisis             []string           `json:"crisis"`
	Venting            []string           `json:"venting"`
	Concern            []string           `json:"concern"`
	Gaming             []string           `json:"gaming"`
	Idioms             map[string]float64 `json:"idioms"`
	PositiveAdjectives []string           `json:"positive_adjectives"`
	NegativeVerbs      []string           `json:"negative_verbs"`
}

// DefaultVocabulary returns the embedded keyword sets.
func DefaultVocabulary() *Vocabulary {
	var v Vocabulary
	if err := json.Unmarshal(markersJSON, &v); err != nil {
		panic(fmt.Sprintf("sentiment: embedded markers are invalid: %v", err))
	}
	return &v
}

// IdiomNames returns idiom phrases in a stable order so literal matching is
// deterministic ("first match wins").
func (v *Vocabulary) IdiomNames() []string {
	names := make([]string, 0, len(v.Idioms))
	for k := range v.Idioms {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// phrase is normalized text padded with spaces so single words and
// multi-word phrases both match on word boundaries.
type phrase string

func newPhrase(text string) phrase {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return phrase(b.String())
}

func (p phrase) has(term string) bool {
	t := strings.TrimSpace(string(newPhrase(term)))
	if t == "" {
		return false
	}
	return strings.Contains(string(p), " "+t+" ")
}

// matches returns the distinct terms found in p, in vocabulary order.
func (p phrase) matches(terms []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range terms {
		if seen[t] {
			continue
		}
		if p.has(t) {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// substrings returns the distinct terms that occur anywhere in p, inside
// longer words included ("suicides", "self harming", "want to dieee").
func (p phrase) substrings(terms []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range terms {
		if seen[t] {
			continue
		}
		n := strings.TrimSpace(string(newPhrase(t)))
		if n != "" && strings.Contains(string(p), n) {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func (p phrase) count(terms []string) int {
	return len(p.matches(terms))
}

// countOccurrences counts every token of p that is in terms, repeats included.
func (p phrase) countOccurrences(terms []string) int {
	set := make(map[string]bool, len(terms))
	for _, t := range terms {
		set[t] = true
	}
	n := 0
	for _, w := range strings.Fields(string(p)) {
		if set[w] {
			n++
		}
	}
	return n
}
