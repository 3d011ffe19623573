package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/docent0/docent/internal/router"
	"github.com/docent0/docent/internal/store"
)

const (
	// streamTimeout is the ceiling for a single streaming answer,
	// including retrieval and every generation round.
	streamTimeout = 10 * time.Minute

	// queryTimeout bounds a synchronous answer.
	queryTimeout = 2 * time.Minute

	// maxQuestionRunes rejects pathologically long questions before they
	// reach retrieval.
	maxQuestionRunes = 4000
)

// Asker answers questions, synchronously or as an event stream.
type Asker interface {
	Ask(ctx context.Context, question string) (router.Answer, error)
	AskStream(ctx context.Context, question string) *router.Stream
}

// DocumentLister lists ingested documents.
type DocumentLister interface {
	Documents(ctx context.Context) ([]store.Document, error)
}

// QueryHandler serves the question-answering endpoints.
type QueryHandler struct {
	asker Asker
	docs  DocumentLister
}

// NewQueryHandler creates a query handler. docs may be nil, which disables
// the document listing endpoint.
func NewQueryHandler(asker Asker, docs DocumentLister) *QueryHandler {
	return &QueryHandler{asker: asker, docs: docs}
}

// RegisterRoutes registers the query endpoints.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.handleQuery)
	mux.HandleFunc("POST /api/query/stream", h.handleQueryStream)
	if h.docs != nil {
		mux.HandleFunc("GET /api/documents", h.handleDocuments)
	}
}

// QueryRequest is the request body for both query endpoints.
type QueryRequest struct {
	Question string `json:"question"`
}

func (h *QueryHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	question, ok := h.readQuestion(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	ans, err := h.asker.Ask(ctx, question)
	if err != nil {
		slog.Error("answering query", "error", err)
		writeError(w, http.StatusInternalServerError, "answer_failed", "failed to answer the question")
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (h *QueryHandler) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	question, ok := h.readQuestion(w, r)
	if !ok {
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), streamTimeout)
	defer cancel()

	stream := h.asker.AskStream(ctx, question)
	for ev := range stream.Events() {
		if err := sse.writeEvent(strings.ToLower(string(ev.Type)), ev); err != nil {
			// Client gone. Cancel generation and drain so the producer
			// goroutine can finish.
			slog.Debug("stream client disconnected", "error", err)
			cancel()
			for range stream.Events() {
			}
			return
		}
	}
}

func (h *QueryHandler) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.Documents(r.Context())
	if err != nil {
		slog.Error("listing documents", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// readQuestion decodes and validates the request body, writing the error
// response itself when validation fails.
func (h *QueryHandler) readQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a question field")
		return "", false
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question must not be empty")
		return "", false
	}
	if len([]rune(question)) > maxQuestionRunes {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is too long")
		return "", false
	}
	return question, true
}
