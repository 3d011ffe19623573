package router

import "sync/atomic"

// EventType identifies a streaming event.
type EventType string

// Event lifecycle: START opens the stream once the answering mode is
// committed, THINKING carries the model's reasoning, ANSWER_START marks the
// boundary before answer content, CHUNK carries answer text, SOURCE lists
// document titles, NOTE carries advisory text, and exactly one of END or
// ERROR terminates the stream.
const (
	EventStart       EventType = "START"
	EventThinking    EventType = "THINKING"
	EventAnswerStart EventType = "ANSWER_START"
	EventChunk       EventType = "CHUNK"
	EventSource      EventType = "SOURCE"
	EventNote        EventType = "NOTE"
	EventEnd         EventType = "END"
	EventError       EventType = "ERROR"
)

// StreamEvent is one item in an answer stream. Done is set only on the
// terminal END and ERROR events.
type StreamEvent struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
	Sources []string  `json:"sources,omitempty"`
	Done    bool      `json:"done,omitempty"`
}

// Stream delivers answer events in order. It has a single producer
// goroutine and terminates with exactly one END or ERROR event, after which
// further emissions are silent no-ops. Consumers range over Events until
// the channel closes.
type Stream struct {
	events chan StreamEvent
	done   atomic.Bool
}

// NewStream creates an empty stream. The producer calls Send, then exactly
// one of End or Fail, from a single goroutine.
func NewStream() *Stream {
	return &Stream{events: make(chan StreamEvent, 16)}
}

// Events returns the event channel. It is closed after the terminal event.
func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

// Send emits a non-terminal event. Called only from the producer goroutine,
// so the done check cannot race with channel close.
func (s *Stream) Send(ev StreamEvent) bool {
	if s.done.Load() {
		return false
	}
	s.events <- ev
	return true
}

// End terminates the stream with END. One terminal event wins; the rest are
// dropped.
func (s *Stream) End() {
	s.terminate(StreamEvent{Type: EventEnd})
}

// Fail terminates the stream with ERROR carrying a user-facing message.
func (s *Stream) Fail(message string) {
	s.terminate(StreamEvent{Type: EventError, Content: message})
}

func (s *Stream) terminate(ev StreamEvent) {
	if !s.done.CompareAndSwap(false, true) {
		return
	}
	ev.Done = true
	s.events <- ev
	close(s.events)
}
