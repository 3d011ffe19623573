package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docent0/docent/internal/router"
	"github.com/docent0/docent/internal/store"
)

// stubAsker returns canned answers and replays canned stream events.
type stubAsker struct {
	answer router.Answer
	err    error

	events  []router.StreamEvent
	failMsg string

	gotQuestion string
}

func (s *stubAsker) Ask(_ context.Context, question string) (router.Answer, error) {
	s.gotQuestion = question
	return s.answer, s.err
}

func (s *stubAsker) AskStream(_ context.Context, question string) *router.Stream {
	s.gotQuestion = question
	stream := router.NewStream()
	go func() {
		for _, ev := range s.events {
			stream.Send(ev)
		}
		if s.failMsg != "" {
			stream.Fail(s.failMsg)
			return
		}
		stream.End()
	}()
	return stream
}

type stubLister struct {
	docs []store.Document
	err  error
}

func (s *stubLister) Documents(context.Context) ([]store.Document, error) {
	return s.docs, s.err
}

func newQueryMux(asker Asker, docs DocumentLister) *http.ServeMux {
	mux := http.NewServeMux()
	NewQueryHandler(asker, docs).RegisterRoutes(mux)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandleQuery_Success(t *testing.T) {
	t.Parallel()

	asker := &stubAsker{answer: router.Answer{
		Text:       "MySQL listens on port 3306 by default.",
		Sources:    []string{"MySQL 安装手册"},
		SourceType: router.SourceLibrary,
		Relevant:   true,
	}}
	mux := newQueryMux(asker, nil)

	w := postJSON(t, mux, "/api/query", `{"question": "MySQL 默认端口是什么？"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MySQL 默认端口是什么？", asker.gotQuestion)

	var ans router.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ans))
	assert.Equal(t, asker.answer.Text, ans.Text)
	assert.Equal(t, asker.answer.Sources, ans.Sources)
	assert.Equal(t, router.SourceLibrary, ans.SourceType)
	assert.True(t, ans.Relevant)
}

func TestHandleQuery_InvalidRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"question": `},
		{"empty question", `{"question": ""}`},
		{"whitespace question", `{"question": "   "}`},
		{"too long question", `{"question": "` + strings.Repeat("长", maxQuestionRunes+1) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mux := newQueryMux(&stubAsker{}, nil)
			w := postJSON(t, mux, "/api/query", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_request", resp.Error)
		})
	}
}

func TestHandleQuery_AskFailure(t *testing.T) {
	t.Parallel()

	mux := newQueryMux(&stubAsker{err: errors.New("model unavailable")}, nil)
	w := postJSON(t, mux, "/api/query", `{"question": "anything"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "answer_failed", resp.Error)
	// Internal error details must not leak to the client.
	assert.NotContains(t, resp.Message, "model unavailable")
}

func TestHandleQueryStream_EventFraming(t *testing.T) {
	t.Parallel()

	asker := &stubAsker{events: []router.StreamEvent{
		{Type: router.EventStart},
		{Type: router.EventAnswerStart},
		{Type: router.EventChunk, Content: "port 3306"},
		{Type: router.EventSource, Sources: []string{"MySQL 安装手册"}},
	}}
	mux := newQueryMux(asker, nil)

	w := postJSON(t, mux, "/api/query/stream", `{"question": "MySQL 端口？"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	// Event names are lowercased for the wire; payloads keep the full event.
	assert.Contains(t, body, "event: start\n")
	assert.Contains(t, body, "event: answer_start\n")
	assert.Contains(t, body, "event: chunk\n")
	assert.Contains(t, body, "event: source\n")
	assert.Contains(t, body, "event: end\n")
	assert.Contains(t, body, `data: {"type":"CHUNK","content":"port 3306"}`)
	assert.Contains(t, body, `"sources":["MySQL 安装手册"]`)

	// START must come before the first CHUNK, END last.
	assert.Less(t, strings.Index(body, "event: start"), strings.Index(body, "event: chunk"))
	assert.Less(t, strings.Index(body, "event: chunk"), strings.Index(body, "event: end"))
}

func TestHandleQueryStream_ErrorEvent(t *testing.T) {
	t.Parallel()

	mux := newQueryMux(&stubAsker{failMsg: "Sorry, something went wrong."}, nil)
	w := postJSON(t, mux, "/api/query/stream", `{"question": "anything"}`)

	require.Equal(t, http.StatusOK, w.Code) // SSE commits the status before events
	body := w.Body.String()
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, "Sorry, something went wrong.")
	assert.NotContains(t, body, "event: end\n")
}

func TestHandleQueryStream_InvalidBody(t *testing.T) {
	t.Parallel()

	mux := newQueryMux(&stubAsker{}, nil)
	w := postJSON(t, mux, "/api/query/stream", `not json`)

	// Validation fails before the stream opens, so a plain JSON error is fine.
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestHandleDocuments(t *testing.T) {
	t.Parallel()

	t.Run("lists documents", func(t *testing.T) {
		t.Parallel()

		lister := &stubLister{docs: []store.Document{
			{ID: "doc-1", Filename: "mysql.md", Title: "MySQL 安装手册", Fragments: 12},
		}}
		mux := newQueryMux(&stubAsker{}, lister)

		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "MySQL 安装手册")
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		mux := newQueryMux(&stubAsker{}, &stubLister{err: errors.New("connection refused")})

		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("nil lister disables the route", func(t *testing.T) {
		t.Parallel()

		mux := newQueryMux(&stubAsker{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
