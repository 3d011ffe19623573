// Package answer turns retrieved fragments and a question into a final
// response: prompt construction, single-shot and multi-round generation,
// reasoning-segment extraction, and the relevance gate that decides whether
// a grounded answer is worth returning.
package answer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/docent0/docent/internal/log"
	"github.com/docent0/docent/internal/retrieval"
)

// ModelClient is the language-model dependency of the generator. Stream
// invokes onDelta once per incremental chunk, in order, and returns after
// the final chunk has been delivered.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, onDelta func(ctx context.Context, delta string) error) error
}

// roundFragments is how many fragments each extraction round consumes.
const roundFragments = 3

var runNewlines = regexp.MustCompile(`\n{3,}`)

// Config controls generation strategy.
type Config struct {
	// FastContextChars caps the context assembled for streaming responses,
	// where latency matters more than coverage.
	FastContextChars int

	// EnableMultiRound turns on extract-then-synthesize generation for
	// questions whose retrieval produced more fragments than one round
	// can hold.
	EnableMultiRound bool

	// MaxRounds bounds the number of extraction rounds.
	MaxRounds int
}

// Generator produces answers from fragments via a model client.
type Generator struct {
	model     ModelClient
	assembler *retrieval.Assembler
	cfg       Config
	logger    log.Logger
}

// NewGenerator wires a generator. The assembler supplies the dynamic
// context cap for grounded prompts.
func NewGenerator(model ModelClient, assembler *retrieval.Assembler, cfg Config, logger log.Logger) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("answer: model client is nil")
	}
	if assembler == nil {
		return nil, fmt.Errorf("answer: assembler is nil")
	}
	if cfg.MaxRounds < 1 {
		cfg.MaxRounds = 1
	}
	return &Generator{model: model, assembler: assembler, cfg: cfg, logger: logger}, nil
}

// Grounded answers the question using the given fragments as reference
// material. When multi-round generation is enabled and the fragment set
// exceeds a single round, the extract-then-synthesize path runs first and
// single-shot generation serves as fallback.
func (g *Generator) Grounded(ctx context.Context, question string, fragments []retrieval.Fragment) (string, error) {
	if g.cfg.EnableMultiRound && len(fragments) > roundFragments {
		text, err := g.multiRound(ctx, question, fragments)
		if err == nil {
			return text, nil
		}
		g.logger.Warn("multi-round generation failed, falling back to single shot", "error", err)
	}
	return g.singleShot(ctx, question, fragments)
}

// GroundedStream streams a grounded answer. It assembles a fixed, smaller
// context so the first token arrives quickly. Empty deltas are dropped.
func (g *Generator) GroundedStream(ctx context.Context, question string, fragments []retrieval.Fragment, onDelta func(ctx context.Context, delta string) error) error {
	assembled := g.assembler.AssembleFixed(fragments, g.cfg.FastContextChars)
	prompt := buildGroundedPrompt(assembled.Text, question)
	return g.stream(ctx, prompt, onDelta)
}

// General answers the question without library context.
func (g *Generator) General(ctx context.Context, question string) (string, error) {
	text, err := g.model.Complete(ctx, buildGeneralPrompt(question))
	if err != nil {
		return "", fmt.Errorf("general answer: %w", err)
	}
	return postProcess(text), nil
}

// GeneralStream streams an answer without library context.
func (g *Generator) GeneralStream(ctx context.Context, question string, onDelta func(ctx context.Context, delta string) error) error {
	return g.stream(ctx, buildGeneralPrompt(question), onDelta)
}

func (g *Generator) singleShot(ctx context.Context, question string, fragments []retrieval.Fragment) (string, error) {
	assembled := g.assembler.Assemble(fragments)
	prompt := buildGroundedPrompt(assembled.Text, question)

	text, err := g.model.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("grounded answer: %w", err)
	}
	return postProcess(text), nil
}

// multiRound extracts relevant facts from successive fragment groups, then
// synthesizes the surviving notes into one answer. Rounds whose extraction
// reports nothing relevant are skipped; if every round comes back empty the
// caller falls back to single-shot generation.
func (g *Generator) multiRound(ctx context.Context, question string, fragments []retrieval.Fragment) (string, error) {
	var notes []string

	for round := 0; round < g.cfg.MaxRounds; round++ {
		start := round * roundFragments
		if start >= len(fragments) {
			break
		}
		end := min(start+roundFragments, len(fragments))

		assembled := g.assembler.Assemble(fragments[start:end])
		raw, err := g.model.Complete(ctx, buildExtractionPrompt(assembled.Text, question))
		if err != nil {
			return "", fmt.Errorf("extraction round %d: %w", round+1, err)
		}

		extracted, _ := ExtractAnswer(raw)
		if extracted == "" || strings.Contains(extracted, noInfoMarker) {
			g.logger.Debug("extraction round produced nothing relevant", "round", round+1)
			continue
		}
		notes = append(notes, extracted)
	}

	if len(notes) == 0 {
		return "", fmt.Errorf("no round extracted relevant information")
	}

	raw, err := g.model.Complete(ctx, buildSynthesisPrompt(strings.Join(notes, "\n\n"), question))
	if err != nil {
		return "", fmt.Errorf("synthesis: %w", err)
	}
	return postProcess(raw), nil
}

func (g *Generator) stream(ctx context.Context, prompt string, onDelta func(ctx context.Context, delta string) error) error {
	return g.model.Stream(ctx, prompt, func(ctx context.Context, delta string) error {
		if delta == "" {
			return nil
		}
		return onDelta(ctx, delta)
	})
}

// postProcess collapses runs of blank lines. Reasoning markers are kept
// intact; extraction happens where the answer is consumed.
func postProcess(text string) string {
	return strings.TrimSpace(runNewlines.ReplaceAllString(text, "\n\n"))
}
