// Package router decides how each question is answered: greetings get a
// canned reply, questions with library coverage get a grounded answer, and
// everything else falls through to the model's general knowledge. It owns
// the streaming event lifecycle.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/docent0/docent/internal/answer"
	"github.com/docent0/docent/internal/log"
	"github.com/docent0/docent/internal/retrieval"
)

// SourceType labels where an answer came from.
type SourceType string

const (
	SourceLibrary  SourceType = "LIBRARY"
	SourceGeneral  SourceType = "GENERAL"
	SourceGreeting SourceType = "GREETING"
	SourceError    SourceType = "ERROR"
)

const (
	greetingReply = "Hello! I'm the library assistant. Ask me anything about the collection and I'll do my best to help."

	generalNote = "This answer comes from the assistant's general knowledge, not from the library collection."

	errorReply = "Sorry, something went wrong while answering. Please try again."

	// chunkRunes is the size of incremental answer pieces on the grounded
	// streaming path, where the answer is gated before delivery.
	chunkRunes = 48
)

// Answer is the routed result of a question. Relevant is computed by the
// routing pipeline, never asserted by callers; it is false only for the
// degraded apology answer produced when generation fails.
type Answer struct {
	Text       string     `json:"text"`
	Sources    []string   `json:"sources,omitempty"`
	SourceType SourceType `json:"source_type"`
	Note       string     `json:"note,omitempty"`
	Relevant   bool       `json:"relevant"`
}

// MetadataStore resolves document IDs to display titles for source
// attribution. IDs without a known title are absent from the result.
type MetadataStore interface {
	DocumentTitles(ctx context.Context, ids []string) (map[string]string, error)
}

// Router answers questions by choosing between canned, grounded, and
// general responses.
type Router struct {
	classifier *Classifier
	cascade    *retrieval.Cascade
	generator  *answer.Generator
	gate       *answer.Gate
	meta       MetadataStore
	logger     log.Logger
}

// New wires a router. meta may be nil, in which case library answers carry
// no source titles.
func New(classifier *Classifier, cascade *retrieval.Cascade, generator *answer.Generator, gate *answer.Gate, meta MetadataStore, logger log.Logger) (*Router, error) {
	if classifier == nil || cascade == nil || generator == nil || gate == nil {
		return nil, fmt.Errorf("router: missing dependency")
	}
	return &Router{
		classifier: classifier,
		cascade:    cascade,
		generator:  generator,
		gate:       gate,
		meta:       meta,
		logger:     logger,
	}, nil
}

// Ask routes and answers a question synchronously.
func (r *Router) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("router: empty question")
	}

	kind := r.classifier.Classify(question)
	r.logger.Info("question classified", "kind", kind.String())

	if kind == KindGreeting {
		return Answer{Text: greetingReply, SourceType: SourceGreeting, Relevant: true}, nil
	}

	result := r.cascade.Retrieve(ctx, question)
	if result.Empty() {
		return r.general(ctx, question)
	}

	raw, err := r.generator.Grounded(ctx, question, result.Fragments)
	if err != nil {
		r.logger.Error("grounded generation failed", "error", err)
		return errorAnswer(), nil
	}

	if !r.gate.Relevant(raw) {
		r.logger.Info("grounded answer failed relevance gate, answering generally",
			"fragments", len(result.Fragments))
		return r.general(ctx, question)
	}

	extracted, _ := answer.ExtractAnswer(raw)
	return Answer{
		Text:       extracted,
		Sources:    r.sourceTitles(ctx, result.Fragments),
		SourceType: SourceLibrary,
		Relevant:   true,
	}, nil
}

// AskStream routes and answers a question as an event stream. The returned
// stream's first event is START, emitted only once the answering mode is
// committed; on the library path that means after the relevance gate has
// passed. The stream always terminates with exactly one END or ERROR.
func (r *Router) AskStream(ctx context.Context, question string) *Stream {
	s := NewStream()
	go r.streamAnswer(ctx, strings.TrimSpace(question), s)
	return s
}

func (r *Router) streamAnswer(ctx context.Context, question string, s *Stream) {
	if question == "" {
		s.Fail("A question is required.")
		return
	}

	kind := r.classifier.Classify(question)
	r.logger.Info("question classified", "kind", kind.String())

	if kind == KindGreeting {
		s.Send(StreamEvent{Type: EventStart})
		s.Send(StreamEvent{Type: EventAnswerStart})
		s.Send(StreamEvent{Type: EventChunk, Content: greetingReply})
		s.End()
		return
	}

	result := r.cascade.Retrieve(ctx, question)
	if result.Empty() {
		r.streamGeneral(ctx, question, s)
		return
	}

	// The grounded answer must clear the gate before any event is emitted,
	// so a full generation runs first. Once the gate passes, a second
	// fast-context generation streams the answer live; the gated answer
	// stays on hand as fallback.
	raw, err := r.generator.Grounded(ctx, question, result.Fragments)
	if err != nil {
		r.logger.Error("grounded generation failed", "error", err)
		s.Fail(errorReply)
		return
	}

	if !r.gate.Relevant(raw) {
		r.logger.Info("grounded answer failed relevance gate, answering generally",
			"fragments", len(result.Fragments))
		r.streamGeneral(ctx, question, s)
		return
	}

	s.Send(StreamEvent{Type: EventStart})
	if reasoning := answer.ExtractReasoning(raw); reasoning != "" {
		s.Send(StreamEvent{Type: EventThinking, Content: reasoning})
	}
	s.Send(StreamEvent{Type: EventAnswerStart})

	if !r.streamGrounded(ctx, question, result.Fragments, raw, s) {
		return
	}

	if titles := r.sourceTitles(ctx, result.Fragments); len(titles) > 0 {
		s.Send(StreamEvent{Type: EventSource, Sources: titles})
	}
	s.End()
}

// streamGrounded streams a fast-context generation as CHUNK events,
// filtering reasoning segments out of the live deltas. gated is the answer
// that already cleared the relevance gate; if the streaming pass fails
// before producing anything it is replayed in fixed-size chunks instead.
// Returns false when the stream was terminated and the caller must stop.
func (r *Router) streamGrounded(ctx context.Context, question string, fragments []retrieval.Fragment, gated string, s *Stream) bool {
	var filter answer.StreamFilter
	streamed := false
	closed := false

	err := r.generator.GroundedStream(ctx, question, fragments, func(_ context.Context, delta string) error {
		piece := filter.Feed(delta)
		if piece == "" {
			return nil
		}
		streamed = true
		if !s.Send(StreamEvent{Type: EventChunk, Content: piece}) {
			closed = true
			return fmt.Errorf("stream terminated")
		}
		return nil
	})
	if closed {
		return false
	}
	if err == nil {
		if rest := filter.Flush(); rest != "" {
			streamed = true
			if !s.Send(StreamEvent{Type: EventChunk, Content: rest}) {
				return false
			}
		}
	}
	if err == nil && streamed {
		return true
	}
	if streamed {
		r.logger.Error("grounded streaming failed mid-answer", "error", err)
		s.Fail(errorReply)
		return false
	}

	// Nothing reached the client yet, so the gated answer can stand in
	// for the failed streaming pass.
	if err != nil {
		r.logger.Warn("grounded streaming failed before first delta, replaying gated answer", "error", err)
	} else {
		r.logger.Warn("grounded streaming produced no content, replaying gated answer")
	}
	extracted, _ := answer.ExtractAnswer(gated)
	for _, piece := range chunkRuneString(extracted, chunkRunes) {
		if !s.Send(StreamEvent{Type: EventChunk, Content: piece}) {
			return false
		}
	}
	return true
}

func (r *Router) streamGeneral(ctx context.Context, question string, s *Stream) {
	s.Send(StreamEvent{Type: EventStart})
	s.Send(StreamEvent{Type: EventNote, Content: generalNote})
	s.Send(StreamEvent{Type: EventAnswerStart})

	err := r.generator.GeneralStream(ctx, question, func(_ context.Context, delta string) error {
		if !s.Send(StreamEvent{Type: EventChunk, Content: delta}) {
			return fmt.Errorf("stream terminated")
		}
		return nil
	})
	if err != nil {
		r.logger.Error("general generation failed", "error", err)
		s.Fail(errorReply)
		return
	}
	s.End()
}

func (r *Router) general(ctx context.Context, question string) (Answer, error) {
	text, err := r.generator.General(ctx, question)
	if err != nil {
		r.logger.Error("general generation failed", "error", err)
		return errorAnswer(), nil
	}
	extracted, _ := answer.ExtractAnswer(text)
	return Answer{Text: extracted, SourceType: SourceGeneral, Note: generalNote, Relevant: true}, nil
}

// errorAnswer is the degraded result for a failed generation: a user-facing
// apology rather than internal error detail.
func errorAnswer() Answer {
	return Answer{Text: errorReply, SourceType: SourceError}
}

// sourceTitles maps the fragments' documents to display titles, preserving
// first-seen order and skipping documents the store no longer knows.
// Lookup failures degrade to an unattributed answer.
func (r *Router) sourceTitles(ctx context.Context, fragments []retrieval.Fragment) []string {
	if r.meta == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(fragments))
	ids := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f.DocumentID == "" {
			continue
		}
		if _, ok := seen[f.DocumentID]; ok {
			continue
		}
		seen[f.DocumentID] = struct{}{}
		ids = append(ids, f.DocumentID)
	}
	if len(ids) == 0 {
		return nil
	}

	titles, err := r.meta.DocumentTitles(ctx, ids)
	if err != nil {
		r.logger.Warn("source title lookup failed", "error", err)
		return nil
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if title, ok := titles[id]; ok && title != "" {
			out = append(out, title)
		}
	}
	return out
}

// chunkRuneString splits s into pieces of at most n runes.
func chunkRuneString(s string, n int) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}
	pieces := make([]string, 0, (len(runes)+n-1)/n)
	for start := 0; start < len(runes); start += n {
		end := min(start+n, len(runes))
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
