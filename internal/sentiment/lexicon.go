package sentiment

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"
)

//go:embed data/lexicon.json
var lexiconJSON []byte

const (
	// normalizationAlpha approximates the max expected sum of valences.
	normalizationAlpha = 15.0
	negationScalar     = -0.74
	boosterIncrement   = 0.293
	capsIncrement      = 0.733
)

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "nothing": true, "nobody": true, "none": true,
	"cannot": true, "can't": true, "cant": true, "don't": true, "dont": true, "didn't": true,
	"didnt": true, "isn't": true, "isnt": true, "wasn't": true, "wasnt": true, "won't": true,
	"wont": true, "without": true, "aint": true, "ain't": true,
}

var boosters = map[string]float64{
	"very": boosterIncrement, "really": boosterIncrement, "so": boosterIncrement,
	"extremely": boosterIncrement, "super": boosterIncrement, "totally": boosterIncrement,
	"absolutely": boosterIncrement, "incredibly": boosterIncrement, "completely": boosterIncrement,
	"kinda": -boosterIncrement, "somewhat": -boosterIncrement, "slightly": -boosterIncrement,
	"barely": -boosterIncrement, "hardly": -boosterIncrement,
}

// Lexicon is a word valence table on the conventional -4..+4 scale.
type Lexicon struct {
	valence map[string]float64
}

// DefaultLexicon loads the embedded lexicon. The data is compiled in, so a
// parse failure is a build defect and panics.
func DefaultLexicon() *Lexicon {
	var v map[string]float64
	if err := json.Unmarshal(lexiconJSON, &v); err != nil {
		panic(fmt.Sprintf("sentiment: embedded lexicon is invalid: %v", err))
	}
	return &Lexicon{valence: v}
}

// Compound returns a polarity in [-1, 1] for text. Negations within the three
// preceding words flip and dampen a valence; boosters and shouting scale it;
// trailing exclamation marks add emphasis.
func (l *Lexicon) Compound(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	var sum float64
	for i, raw := range words {
		w := cleanWord(raw)
		v, ok := l.valence[w]
		if !ok || boosters[w] != 0 {
			continue
		}
		if isShouted(raw) && len(words) > 1 {
			v += math.Copysign(capsIncrement, v)
		}
		for back := 1; back <= 3 && i-back >= 0; back++ {
			prev := cleanWord(words[i-back])
			if b, ok := boosters[prev]; ok && back == 1 {
				v += math.Copysign(b, v)
			}
			if negations[prev] {
				v *= negationScalar
				break
			}
		}
		sum += v
	}

	if sum != 0 {
		bangs := math.Min(float64(strings.Count(text, "!")), 4)
		sum += math.Copysign(bangs*0.292, sum)
	}
	return normalize(sum)
}

func normalize(score float64) float64 {
	n := score / math.Sqrt(score*score+normalizationAlpha)
	return clamp(n)
}

// LexiconClassifier is the degraded-capability classifier used when no model
// backend is available. It never fails.
type LexiconClassifier struct {
	lexicon *Lexicon
}

// NewLexiconClassifier wraps lex; nil uses the embedded lexicon.
func NewLexiconClassifier(lex *Lexicon) *LexiconClassifier {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &LexiconClassifier{lexicon: lex}
}

func (c *LexiconClassifier) Classify(_ context.Context, text string) (float64, error) {
	return c.lexicon.Compound(text), nil
}

func (c *LexiconClassifier) Name() string { return "lexicon" }

func cleanWord(w string) string {
	return strings.TrimFunc(strings.ToLower(w), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func isShouted(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
