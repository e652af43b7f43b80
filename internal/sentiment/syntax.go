package sentiment

import (
	"strings"
	"unicode"
)

// SyntaxInfo is the shallow structure the linguistic markers need.
type SyntaxInfo struct {
	Sentences          int
	PositiveAdjectives int
	NegativeVerb       bool
}

// SyntaxAnalyzer segments and tags text. A nil SyntaxAnalyzer means no
// syntactic signals are available and the markers use keyword density only.
type SyntaxAnalyzer interface {
	Analyze(text string) SyntaxInfo
}

// RuleSyntax is a word-list tagger with punctuation-based sentence
// segmentation. It is enough to spot "great, just great, what a wonderful
// way to ruin my day" style constructions.
type RuleSyntax struct {
	adjectives map[string]bool
	verbs      map[string]bool
}

// NewRuleSyntax builds the tagger from the vocabulary's adjective and verb lists.
func NewRuleSyntax(v *Vocabulary) *RuleSyntax {
	s := &RuleSyntax{
		adjectives: make(map[string]bool, len(v.PositiveAdjectives)),
		verbs:      make(map[string]bool, len(v.NegativeVerbs)),
	}
	for _, a := range v.PositiveAdjectives {
		s.adjectives[a] = true
	}
	for _, vb := range v.NegativeVerbs {
		s.verbs[vb] = true
	}
	return s
}

func (s *RuleSyntax) Analyze(text string) SyntaxInfo {
	info := SyntaxInfo{Sentences: countSentences(text)}
	for _, w := range strings.Fields(text) {
		cw := cleanWord(w)
		if s.adjectives[cw] {
			info.PositiveAdjectives++
		}
		if s.verbs[cw] {
			info.NegativeVerb = true
		}
	}
	return info
}

// countSentences counts runs of text terminated by . ! ? or end of input.
// Consecutive terminators ("?!", "...") close a single sentence.
func countSentences(text string) int {
	n := 0
	inSentence := false
	for _, r := range text {
		switch {
		case r == '.' || r == '!' || r == '?':
			if inSentence {
				n++
				inSentence = false
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			inSentence = true
		}
	}
	if inSentence {
		n++
	}
	return n
}
