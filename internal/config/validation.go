package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider validation
	validProviders := []string{ProviderGemini, ProviderOllama, ProviderOpenAI, ProviderGoogleAI}
	if !slices.Contains(validProviders, c.Provider) {
		return fmt.Errorf("%w: %q, must be one of %v", ErrInvalidProvider, c.Provider, validProviders)
	}

	// 2. API Key validation (Ollama runs locally and needs none)
	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required", ErrMissingAPIKey)
		}
	}

	// 3. Model configuration validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// 4. PostgreSQL configuration validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set in config.yaml", ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "docent_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable).
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q, must be one of %v", ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	// 5. Routing policy validation
	return c.Routing.validate()
}

// validate checks routing policy values for internal consistency.
func (r *Routing) validate() error {
	if r.HighSimilarity <= 0 || r.HighSimilarity > 1 {
		return fmt.Errorf("%w: high_similarity must be in (0, 1], got %g", ErrInvalidRouting, r.HighSimilarity)
	}
	if r.StandardSimilarity <= 0 || r.StandardSimilarity > r.HighSimilarity {
		return fmt.Errorf("%w: standard_similarity must be in (0, high_similarity], got %g",
			ErrInvalidRouting, r.StandardSimilarity)
	}
	if r.TopK < 1 || r.TopK > 100 {
		return fmt.Errorf("%w: top_k must be between 1 and 100, got %d", ErrInvalidRouting, r.TopK)
	}
	if r.MaxContextChars < 500 {
		return fmt.Errorf("%w: max_context_chars must be at least 500, got %d", ErrInvalidRouting, r.MaxContextChars)
	}
	if r.FastContextChars < 500 || r.FastContextChars > r.MaxContextChars {
		return fmt.Errorf("%w: fast_context_chars must be in [500, max_context_chars], got %d",
			ErrInvalidRouting, r.FastContextChars)
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got overlap=%d size=%d",
			ErrInvalidRouting, r.ChunkOverlap, r.ChunkSize)
	}
	if r.MaxRounds < 1 {
		return fmt.Errorf("%w: max_rounds must be at least 1, got %d", ErrInvalidRouting, r.MaxRounds)
	}
	return nil
}
