package retrieval

import (
	"strings"
	"unicode"
)

// Substantive-content signal sets. These detect prose shape, not meaning:
// a fragment with sentence structure, logical connectives, or concrete data
// is worth putting in front of the model.
var (
	sentenceEnders   = []rune{'。', '！', '？', '.', '!', '?'}
	commaEquivalents = []rune{'，', ',', '、'}
	colonSemicolons  = []rune{'：', ':', '；', ';'}

	logicalConnectives = []string{
		"因为", "所以", "如果", "那么", "首先", "其次", "然后", "最后",
		"because", "therefore", "so that", "if ", "then ", "first", "next", "finally",
	}

	descriptiveCopulas = []string{
		"是", "为", "有", "在", "可以", "需要",
		" is ", " are ", " was ", " were ", " means ", " refers to ",
	}
)

// QualityFilter classifies retrieved text fragments as useful or noise.
//
// It is a precision-biased heuristic, not a probabilistic classifier: it
// will discard some useful short fragments (false negatives) to keep legal
// boilerplate, tables of contents, and garbled extraction artifacts out of
// the assembled context. Useful is a pure function; the same fragment always
// yields the same verdict.
type QualityFilter struct {
	minChars    int
	boilerplate []string // lower-cased phrases
}

// NewQualityFilter creates a filter with the given minimum fragment length
// (in runes) and boilerplate phrase list. Phrases are matched
// case-insensitively as substrings.
func NewQualityFilter(minChars int, boilerplate []string) *QualityFilter {
	lowered := make([]string, len(boilerplate))
	for i, p := range boilerplate {
		lowered[i] = strings.ToLower(p)
	}
	return &QualityFilter{minChars: minChars, boilerplate: lowered}
}

// Useful reports whether text carries substantive content.
// Rules are applied in order and short-circuit on the first match.
func (f *QualityFilter) Useful(text string) bool {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	length := len(runes)

	// 1. Too short to carry an answer.
	if length < f.minChars {
		return false
	}

	lower := strings.ToLower(text)

	// 2. Legal and boilerplate notices.
	for _, phrase := range f.boilerplate {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	// 3. Table-of-contents shape: dense dot leaders and page numbers.
	if length < 200 {
		dots, digits := 0, 0
		for _, r := range runes {
			switch {
			case r == '.' || r == '。' || r == '·' || r == '…':
				dots++
			case unicode.IsDigit(r):
				digits++
			}
		}
		if dots > 20 && digits > 50 {
			return false
		}
	}

	// 4. Garbled or non-prose text: barely any letters in a long fragment.
	if length > 100 {
		letters := 0
		for _, r := range runes {
			if unicode.IsLetter(r) {
				letters++
			}
		}
		if float64(letters)/float64(length) < 0.2 {
			return false
		}
	}

	// 5. Substantive-content signals.
	if containsAnyRune(runes, sentenceEnders) && containsAnyRune(runes, commaEquivalents) {
		return true
	}
	if containsAnyRune(runes, colonSemicolons) {
		return true
	}
	for _, c := range logicalConnectives {
		if strings.Contains(lower, c) {
			return true
		}
	}
	for _, c := range descriptiveCopulas {
		if strings.Contains(lower, c) {
			return true
		}
	}
	if length > 100 && length < 2000 {
		return true
	}
	for _, r := range runes {
		if unicode.IsDigit(r) {
			return true
		}
	}

	// 6. Nothing recognizable; drop it.
	return false
}

func containsAnyRune(runes []rune, set []rune) bool {
	for _, r := range runes {
		for _, c := range set {
			if r == c {
				return true
			}
		}
	}
	return false
}
