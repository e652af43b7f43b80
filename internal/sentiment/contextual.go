package sentiment

import (
	"math"
	"regexp"
	"strings"
)

// ContextFlags are diagnostic signals from the contextual analyzer. They feed
// the concerning log only and never change the score directly.
type ContextFlags struct {
	IsSarcastic         bool `json:"is_sarcastic"`
	MentalHealthConcern bool `json:"mental_health_concern"`
	NeedsAttention      bool `json:"needs_attention"`
}

// Any reports whether any flag is set.
func (f ContextFlags) Any() bool {
	return f.IsSarcastic || f.MentalHealthConcern || f.NeedsAttention
}

// Concerning reports whether the flags warrant a review entry.
func (f ContextFlags) Concerning() bool {
	return f.MentalHealthConcern || f.NeedsAttention
}

// Names lists the set flags.
func (f ContextFlags) Names() []string {
	var out []string
	if f.IsSarcastic {
		out = append(out, "is_sarcastic")
	}
	if f.MentalHealthConcern {
		out = append(out, "mental_health_concern")
	}
	if f.NeedsAttention {
		out = append(out, "needs_attention")
	}
	return out
}

// ContextResult is the secondary scorer's view of an utterance.
type ContextResult struct {
	AdjustedCompound float64
	Flags            ContextFlags
}

const attentionThreshold = -0.6

var capsWord = regexp.MustCompile(`\b[A-Z]{3,}\b`)

type weighted struct {
	term   string
	weight float64
}

// Ordered so the summed enhancement is deterministic.
var informalPositive = []weighted{
	{"yay", 0.4}, {"wooo", 0.4}, {"lessgo", 0.5}, {"letsgo", 0.5}, {"poggers", 0.4}, {"pog", 0.3},
	{"lit", 0.3}, {"fire", 0.3}, {"dope", 0.3}, {"hype", 0.4}, {"hyped", 0.4}, {"pumped", 0.4},
	{"stoked", 0.4}, {"psyched", 0.4}, {"amped", 0.4}, {"vibes", 0.2}, {"vibing", 0.3},
	{"slay", 0.3}, {"slaying", 0.3}, {"bet", 0.2}, {"facts", 0.2}, {"no cap", 0.3}, {"periodt", 0.2},
}

var informalNegative = []weighted{
	{"bruh", -0.1}, {"ugh", -0.2}, {"meh", -0.2}, {"bleh", -0.2}, {"cringe", -0.3}, {"cringing", -0.3},
	{"yikes", -0.2}, {"oof", -0.2}, {"kill me", -0.5}, {"end me", -0.4},
}

var (
	excitedCaps         = []string{"YES", "WOO", "LETS", "GO", "AWESOME", "AMAZING", "GREAT", "LOVE", "WIN"}
	positiveRepeats     = "yaoewh"
	emoticons           = []string{":)", ":D", "=D", ":P", ";)", ":-)", "=)", "xD", "XD", "<3"}
	enthusiasticActions = []string{"winning", "crushing", "nailing", "acing", "dominating", "succeeding"}
	overwhelmingPhrases = []string{"absolutely love", "so happy", "best day", "amazing day", "incredible", "fantastic"}
)

// Contextual is a second, independent scorer tuned for informal writing:
// elongated words, shouting, slang, emoticons and punctuation on top of the
// lexicon compound.
type Contextual struct {
	lexicon *Lexicon
	vocab   *Vocabulary
}

// NewContextual creates the analyzer.
func NewContextual(lex *Lexicon, vocab *Vocabulary) *Contextual {
	return &Contextual{lexicon: lex, vocab: vocab}
}

func (c *Contextual) Analyze(text string) ContextResult {
	base := c.lexicon.Compound(text)
	lower := strings.ToLower(text)
	p := newPhrase(text)

	var enh float64
	for _, ch := range elongatedLetters(lower) {
		if strings.IndexByte(positiveRepeats, ch) >= 0 {
			enh += 0.3
		}
	}

	if caps := capsWord.FindAllString(text, -1); len(caps) > 0 {
		excited := 0
		for _, w := range caps {
			for _, e := range excitedCaps {
				if strings.Contains(w, e) {
					excited++
					break
				}
			}
		}
		if excited > 0 {
			enh += 0.25 * float64(excited)
		} else if len(caps) > 2 {
			enh += 0.2
		}
	}

	for _, w := range informalPositive {
		if p.has(w.term) {
			enh += w.weight
		}
	}
	enh += math.Min(0.3, 0.1*float64(strings.Count(text, "!")))
	if strings.Contains(text, "?") && strings.Contains(text, "!") {
		enh += 0.2
	}
	for _, e := range emoticons {
		if strings.Contains(text, e) {
			enh += 0.2
			break
		}
	}
	for _, w := range enthusiasticActions {
		if p.has(w) {
			enh += 0.2
		}
	}
	for _, ph := range overwhelmingPhrases {
		if p.has(ph) {
			enh += 0.3
		}
	}
	for _, w := range informalNegative {
		if p.has(w.term) {
			enh += w.weight
		}
	}

	res := ContextResult{AdjustedCompound: clamp(base + enh)}

	sarcastic := len(p.substrings(c.vocab.Sarcasm)) > 0
	res.Flags.IsSarcastic = sarcastic && base > 0
	res.Flags.MentalHealthConcern = len(p.matches(c.vocab.Concern)) > 0 || len(p.substrings(c.vocab.Crisis)) > 0
	res.Flags.NeedsAttention = res.Flags.MentalHealthConcern && res.AdjustedCompound <= attentionThreshold
	return res
}

// elongatedLetters returns the letter of every run of three or more identical
// ASCII lowercase letters in s, one entry per run ("yaaay sooo" -> a, o).
func elongatedLetters(s string) []byte {
	var out []byte
	for i := 0; i < len(s); {
		j := i + 1
		for j < len(s) && s[j] == s[i] {
			j++
		}
		if j-i >= 3 && s[i] >= 'a' && s[i] <= 'z' {
			out = append(out, s[i])
		}
		i = j
	}
	return out
}
