package answer

import "strings"

// Gate decides whether a grounded answer is substantive enough to present
// as sourced from the library. Answers that fail the gate are discarded and
// the question is re-answered without library context.
type Gate struct {
	minChars int
	negative []string
}

// NewGate builds a gate that requires at least minChars runes of extracted
// answer and rejects answers containing any of the negative indicator
// phrases. Indicators are matched case-insensitively.
func NewGate(minChars int, negativeIndicators []string) *Gate {
	lowered := make([]string, 0, len(negativeIndicators))
	for _, p := range negativeIndicators {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(p))
	}
	return &Gate{minChars: minChars, negative: lowered}
}

// Relevant reports whether the raw model response carries a usable answer.
// The reasoning segment is removed before either check runs, so a response
// that is all deliberation never passes.
func (g *Gate) Relevant(raw string) bool {
	extracted, reasoningOnly := ExtractAnswer(raw)
	if reasoningOnly || extracted == "" {
		return false
	}

	lower := strings.ToLower(extracted)
	for _, phrase := range g.negative {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	return len([]rune(extracted)) >= g.minChars
}
