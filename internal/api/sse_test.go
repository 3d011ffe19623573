package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainWriter hides the Flusher interface of the embedded recorder.
type plainWriter struct {
	http.ResponseWriter
}

func TestNewSSEWriter_RequiresFlusher(t *testing.T) {
	t.Parallel()

	_, err := newSSEWriter(plainWriter{httptest.NewRecorder()})
	assert.Error(t, err)
}

func TestSSEWriter_Headers(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	_, err := newSSEWriter(w)
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
}

func TestSSEWriter_EventFraming(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	sse, err := newSSEWriter(w)
	require.NoError(t, err)

	require.NoError(t, sse.writeEvent("chunk", map[string]string{"content": "hello"}))

	assert.Equal(t, "event: chunk\ndata: {\"content\":\"hello\"}\n\n", w.Body.String())
	assert.True(t, w.Flushed)
}

func TestSSEWriter_UnmarshalablePayload(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	sse, err := newSSEWriter(w)
	require.NoError(t, err)

	// Channels cannot be marshalled; nothing may reach the wire.
	assert.Error(t, sse.writeEvent("chunk", make(chan int)))
	assert.Empty(t, w.Body.String())
}
