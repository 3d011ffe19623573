package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// Embedder turns text into vectors via the provider's embedding model.
type Embedder struct {
	embedder ai.Embedder
}

// NewEmbedder wraps a Genkit embedder.
func NewEmbedder(embedder ai.Embedder) (*Embedder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("llm: embedder is nil")
	}
	return &Embedder{embedder: embedder}, nil
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generating embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return resp.Embeddings[0].Embedding, nil
}

// EmbedBatch returns one vector per input text, in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(t)}}
	}

	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("generating embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}
