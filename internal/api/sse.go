package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// sseWriter streams Server-Sent Events with JSON payloads.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// newSSEWriter wraps the response writer and sets streaming headers.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &sseWriter{w: w, flusher: flusher}, nil
}

// writeEvent sends a named event with the payload marshalled as JSON.
// Each line of the data is prefixed with "data: " per the SSE format;
// JSON never contains raw newlines, but the framing stays line-safe.
func (w *sseWriter) writeEvent(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	if _, err := fmt.Fprintf(w.w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write event name: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if _, err := fmt.Fprintf(w.w, "data: %s\n", line); err != nil {
			return fmt.Errorf("write data line: %w", err)
		}
	}
	// Empty line terminates the event
	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}

	w.flusher.Flush()
	return nil
}
