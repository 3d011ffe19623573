package config

import (
	"errors"
	"testing"
)

// validRouting returns a Routing with all policy values in range.
func validRouting() Routing {
	return Routing{
		HighSimilarity:     0.85,
		StandardSimilarity: 0.80,
		TopK:               5,
		MaxKeywordResults:  8,
		MaxContextChars:    8000,
		FastContextChars:   3000,
		MinAnswerChars:     30,
		MinFragmentChars:   30,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		MaxRounds:          3,
	}
}

// validBaseConfig returns a Config with all required fields set for the given provider.
func validBaseConfig(provider string) *Config {
	cfg := &Config{
		Provider:         provider,
		ModelName:        "gemini-2.5-flash",
		EmbedderModel:    DefaultGeminiEmbedderModel,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "docent",
		PostgresPassword: "test_password",
		PostgresDBName:   "docent",
		PostgresSSLMode:  "disable",
		ListenAddr:       "127.0.0.1:3500",
		Routing:          validRouting(),
	}
	switch provider {
	case ProviderOllama:
		cfg.ModelName = "llama3.3"
		cfg.OllamaHost = "http://localhost:11434"
	case ProviderOpenAI:
		cfg.ModelName = "gpt-4o"
	}
	return cfg
}

// setEnvForProvider sets the required API key for the given provider.
func setEnvForProvider(t *testing.T, provider string) {
	t.Helper()
	switch provider {
	case ProviderGemini, ProviderGoogleAI:
		t.Setenv("GEMINI_API_KEY", "test-api-key")
	case ProviderOpenAI:
		t.Setenv("OPENAI_API_KEY", "test-openai-key")
	}
}

func TestValidateSuccess(t *testing.T) {
	for _, provider := range []string{ProviderGemini, ProviderGoogleAI, ProviderOllama, ProviderOpenAI} {
		t.Run(provider, func(t *testing.T) {
			setEnvForProvider(t, provider)

			cfg := validBaseConfig(provider)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() unexpected error with valid config (provider %q): %v", provider, err)
			}
		})
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil config = %v, want ErrConfigNil", err)
	}
}

func TestValidateInvalidProvider(t *testing.T) {
	cfg := validBaseConfig(ProviderGemini)
	cfg.Provider = "unsupported"

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidProvider) {
		t.Errorf("Validate() error = %v, want ErrInvalidProvider", err)
	}
}

func TestValidateProviderAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "gemini missing key", provider: ProviderGemini, wantErr: true},
		{name: "googleai missing key", provider: ProviderGoogleAI, wantErr: true},
		{name: "openai missing key", provider: ProviderOpenAI, wantErr: true},
		{name: "ollama needs no key", provider: ProviderOllama, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Ensure no key leaks in from the environment.
			t.Setenv("GEMINI_API_KEY", "")
			t.Setenv("OPENAI_API_KEY", "")

			cfg := validBaseConfig(tt.provider)
			err := cfg.Validate()

			if tt.wantErr {
				if !errors.Is(err, ErrMissingAPIKey) {
					t.Errorf("Validate() error = %v, want ErrMissingAPIKey", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error for provider %q: %v", tt.provider, err)
			}
		})
	}
}

func TestValidateModelAndEmbedder(t *testing.T) {
	setEnvForProvider(t, ProviderGemini)

	cfg := validBaseConfig(ProviderGemini)
	cfg.ModelName = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidModelName) {
		t.Errorf("empty model name: error = %v, want ErrInvalidModelName", err)
	}

	cfg = validBaseConfig(ProviderGemini)
	cfg.EmbedderModel = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidEmbedderModel) {
		t.Errorf("empty embedder model: error = %v, want ErrInvalidEmbedderModel", err)
	}
}

func TestValidatePostgres(t *testing.T) {
	setEnvForProvider(t, ProviderGemini)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"port too low", func(c *Config) { c.PostgresPort = 0 }, ErrInvalidPostgresPort},
		{"port too high", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"empty password", func(c *Config) { c.PostgresPassword = "" }, ErrInvalidPostgresPassword},
		{"deprecated ssl mode prefer", func(c *Config) { c.PostgresSSLMode = "prefer" }, ErrInvalidPostgresSSLMode},
		{"deprecated ssl mode allow", func(c *Config) { c.PostgresSSLMode = "allow" }, ErrInvalidPostgresSSLMode},
		{"unknown ssl mode", func(c *Config) { c.PostgresSSLMode = "mystery" }, ErrInvalidPostgresSSLMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig(ProviderGemini)
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRouting(t *testing.T) {
	setEnvForProvider(t, ProviderGemini)

	tests := []struct {
		name   string
		mutate func(*Routing)
	}{
		{"high similarity zero", func(r *Routing) { r.HighSimilarity = 0 }},
		{"high similarity above one", func(r *Routing) { r.HighSimilarity = 1.1 }},
		{"standard similarity zero", func(r *Routing) { r.StandardSimilarity = 0 }},
		{"standard above high", func(r *Routing) { r.StandardSimilarity = 0.9 }},
		{"top_k zero", func(r *Routing) { r.TopK = 0 }},
		{"top_k too large", func(r *Routing) { r.TopK = 101 }},
		{"context budget too small", func(r *Routing) { r.MaxContextChars = 499 }},
		{"fast budget too small", func(r *Routing) { r.FastContextChars = 100 }},
		{"fast budget above max", func(r *Routing) { r.FastContextChars = 9000 }},
		{"negative chunk overlap", func(r *Routing) { r.ChunkOverlap = -1 }},
		{"overlap equals chunk size", func(r *Routing) { r.ChunkOverlap = 1000 }},
		{"max_rounds zero", func(r *Routing) { r.MaxRounds = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig(ProviderGemini)
			tt.mutate(&cfg.Routing)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidRouting) {
				t.Errorf("Validate() error = %v, want ErrInvalidRouting", err)
			}
		})
	}
}
