package sentiment

const (
	sarcasmPenalty     = 0.15
	escalationPenalty  = 0.2
	escalationMinAdj   = 3
	crisisCeiling      = -0.7
	ventingBoost       = 0.1
	ventingSyntaxBoost = 0.15
)

// MarkerResult reports what the linguistic layer found in one utterance.
type MarkerResult struct {
	Sarcasm    []string
	Escalated  bool
	Crisis     []string
	Venting    bool
	VentingAdj float64
}

// Markers applies the sarcasm, crisis and venting heuristics in that order.
type Markers struct {
	vocab  *Vocabulary
	syntax SyntaxAnalyzer
}

// NewMarkers creates the detector. syntax may be nil.
func NewMarkers(vocab *Vocabulary, syntax SyntaxAnalyzer) *Markers {
	return &Markers{vocab: vocab, syntax: syntax}
}

// Apply adjusts score sequentially and reports the matches.
func (m *Markers) Apply(text string, score float64) (float64, MarkerResult) {
	var res MarkerResult
	p := newPhrase(text)

	var info SyntaxInfo
	if m.syntax != nil {
		info = m.syntax.Analyze(text)
	}

	res.Sarcasm = p.substrings(m.vocab.Sarcasm)
	score -= sarcasmPenalty * float64(len(res.Sarcasm))
	if m.syntax != nil && info.PositiveAdjectives >= escalationMinAdj && info.NegativeVerb {
		res.Escalated = true
		score -= escalationPenalty
	}

	res.Crisis = p.substrings(m.vocab.Crisis)
	if len(res.Crisis) > 0 && score > crisisCeiling {
		score = crisisCeiling
	}

	indicators := p.count(m.vocab.Venting)
	if m.syntax != nil {
		if info.Sentences <= 2 && indicators >= 1 {
			res.Venting = true
			res.VentingAdj = ventingSyntaxBoost
		}
	} else if p.countOccurrences(m.vocab.Profanity) >= 2 && indicators >= 1 {
		res.Venting = true
		res.VentingAdj = ventingBoost
	}
	score += res.VentingAdj

	return score, res
}
