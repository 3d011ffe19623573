package router

import "strings"

// QuestionKind is the coarse category a question falls into. Only greetings
// change control flow; the remaining kinds are advisory and logged for
// observability.
type QuestionKind int

const (
	KindGeneral QuestionKind = iota
	KindGreeting
	KindDomain
	KindFactual
	KindCreative
)

func (k QuestionKind) String() string {
	switch k {
	case KindGreeting:
		return "greeting"
	case KindDomain:
		return "domain"
	case KindFactual:
		return "factual"
	case KindCreative:
		return "creative"
	default:
		return "general"
	}
}

// greetingBoundaries are the characters that may follow a greeting prefix
// for it to still count as a greeting ("hello, can you help" qualifies,
// "helloworld" does not).
var greetingBoundaries = []rune{' ', ',', '.', '，', '。'}

// Classifier buckets questions by matching configured phrase lists. All
// matching is case-insensitive.
type Classifier struct {
	greetings []string
	domain    []string
	factual   []string
	creative  []string
}

// NewClassifier builds a classifier from phrase lists. Each list is
// lowercased once up front.
func NewClassifier(greetings, domainKeywords, factualMarkers, creativeMarkers []string) *Classifier {
	return &Classifier{
		greetings: lowerAll(greetings),
		domain:    lowerAll(domainKeywords),
		factual:   lowerAll(factualMarkers),
		creative:  lowerAll(creativeMarkers),
	}
}

// Classify returns the question's kind. Greeting detection requires either
// an exact match or a greeting prefix followed by a boundary character;
// substring matches alone are not enough. The other kinds match on
// substring, checked in domain, factual, creative order.
func (c *Classifier) Classify(question string) QuestionKind {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return KindGeneral
	}

	if c.isGreeting(q) {
		return KindGreeting
	}

	switch {
	case containsAny(q, c.domain):
		return KindDomain
	case containsAny(q, c.factual):
		return KindFactual
	case containsAny(q, c.creative):
		return KindCreative
	default:
		return KindGeneral
	}
}

func (c *Classifier) isGreeting(q string) bool {
	for _, g := range c.greetings {
		if q == g {
			return true
		}
		if rest, ok := strings.CutPrefix(q, g); ok {
			r := []rune(rest)[0]
			for _, b := range greetingBoundaries {
				if r == b {
					return true
				}
			}
		}
	}
	return false
}

func containsAny(q string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
