package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/docent0/docent/internal/log"
)

// Client generates completions through Genkit. A token-bucket limiter
// throttles outbound requests so burst traffic does not exhaust provider
// quotas.
type Client struct {
	g         *genkit.Genkit
	modelName string
	limiter   *rate.Limiter
	logger    log.Logger
}

// NewClient builds a client for the provider-qualified model name. A nil
// limiter gets the default of 10 requests/sec with a burst of 30.
func NewClient(g *genkit.Genkit, modelName string, limiter *rate.Limiter, logger log.Logger) (*Client, error) {
	if g == nil {
		return nil, fmt.Errorf("llm: genkit instance is nil")
	}
	if modelName == "" {
		return nil, fmt.Errorf("llm: model name is empty")
	}
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	return &Client{g: g, modelName: modelName, limiter: limiter, logger: logger}, nil
}

// Complete generates a full response for the prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(c.modelName),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generating with %s: %w", c.modelName, err)
	}
	return resp.Text(), nil
}

// Stream generates a response, delivering each model chunk to onDelta in
// order. The callback runs on the generation goroutine, so errors it
// returns abort the generation.
func (c *Client) Stream(ctx context.Context, prompt string, onDelta func(ctx context.Context, delta string) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	_, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(c.modelName),
		ai.WithPrompt(prompt),
		ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return onDelta(ctx, chunk.Text())
		}),
	)
	if err != nil {
		return fmt.Errorf("streaming with %s: %w", c.modelName, err)
	}
	return nil
}
