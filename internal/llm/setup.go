// Package llm owns the Genkit integration: provider setup, the completion
// client used for answering, and the embedder used for retrieval.
package llm

import (
	"context"
	"errors"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/docent0/docent/internal/config"
)

// Setup initializes Genkit with the configured provider. Ollama needs its
// model and embedder registered explicitly; the hosted providers discover
// theirs.
func Setup(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		return g, nil

	case config.ProviderOpenAI:
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		return g, nil

	default: // gemini
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		return g, nil
	}
}

// LookupEmbedder resolves the embedder registered by the provider plugin.
func LookupEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		// Ollama embedders are keyed by server address, not model name.
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // gemini
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}
