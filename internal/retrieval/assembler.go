package retrieval

import (
	"strings"

	"github.com/docent0/docent/internal/log"
)

const (
	// fragmentSeparator joins fragments in the assembled context.
	fragmentSeparator = "\n\n"

	// minTruncationBudget is the smallest remaining budget worth spending
	// on a truncated fragment prefix. Below this, a cut-off fragment adds
	// noise, not signal.
	minTruncationBudget = 100

	// truncationMarker explicitly flags a cut-off fragment so the model
	// never mistakes a truncation point for the end of a sentence.
	truncationMarker = "..."
)

// AssembledContext is a single bounded context string plus the IDs of the
// fragments that contributed to it. Invariant: len([]rune(Text)) <= Cap.
// Truncation, when it occurs, affects only the last admitted fragment and
// always ends with the explicit truncation marker.
type AssembledContext struct {
	Text        string
	FragmentIDs []string
	Cap         int
}

// Empty reports whether no fragment made it into the context.
func (a AssembledContext) Empty() bool {
	return a.Text == ""
}

// Assembler bounds an ordered fragment sequence into a character budget.
//
// The budget scales with corroboration: more independent fragments covering
// the question justify a larger context window. Base budget is used for <=3
// fragments, x1.2 for 4-5, x1.5 for more.
type Assembler struct {
	baseChars int
	logger    log.Logger
}

// NewAssembler creates an assembler with the given base budget in runes.
func NewAssembler(baseChars int, logger log.Logger) *Assembler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Assembler{baseChars: baseChars, logger: logger}
}

// Assemble joins fragments under the dynamically computed budget.
func (a *Assembler) Assemble(fragments []Fragment) AssembledContext {
	return a.assemble(fragments, dynamicCap(a.baseChars, len(fragments)))
}

// AssembleFixed joins fragments under a fixed budget, ignoring the dynamic
// policy. Used by latency-sensitive paths that trade context size for speed.
func (a *Assembler) AssembleFixed(fragments []Fragment, capChars int) AssembledContext {
	return a.assemble(fragments, capChars)
}

func (a *Assembler) assemble(fragments []Fragment, capChars int) AssembledContext {
	var b strings.Builder
	var ids []string
	used := 0

	for _, f := range fragments {
		runes := []rune(f.Text)

		if used+len(runes) > capChars {
			// The next fragment overflows. Spend what budget remains on a
			// truncated prefix, but only if enough remains to be useful.
			remaining := capChars - used
			if remaining > minTruncationBudget {
				// Reserve room for the marker so the cap invariant holds.
				prefix := remaining - len(truncationMarker)
				b.WriteString(string(runes[:prefix]))
				b.WriteString(truncationMarker)
				ids = append(ids, f.ID)
			}
			break
		}

		b.WriteString(f.Text)
		b.WriteString(fragmentSeparator)
		used += len(runes) + len(fragmentSeparator)
		ids = append(ids, f.ID)
	}

	text := strings.TrimSpace(b.String())
	a.logger.Debug("context assembled",
		"fragments_in", len(fragments),
		"fragments_used", len(ids),
		"cap", capChars,
		"length", len([]rune(text)))

	return AssembledContext{Text: text, FragmentIDs: ids, Cap: capChars}
}

// dynamicCap scales the base budget by fragment count tier.
func dynamicCap(base, fragmentCount int) int {
	switch {
	case fragmentCount <= 3:
		return base
	case fragmentCount <= 5:
		return base * 12 / 10
	default:
		return base * 15 / 10
	}
}
