// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.docent/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: Provider, model, embedder selection
//   - Storage: PostgreSQL connection (see storage.go)
//   - Routing: retrieval thresholds, context budgets, classifier
//     vocabularies, answer-quality phrase lists (see routing.go)
//
// Security: Sensitive data (passwords) are never logged; config directory
// uses 0750 permissions.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidRouting indicates a routing policy value is out of range.
	ErrInvalidRouting = errors.New("invalid routing configuration")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// DefaultGeminiEmbedderModel is the default Gemini embedder model.
// gemini-embedding-001 supports truncation to 768 dimensions via
// OutputDimensionality; our pgvector schema uses 768 dimensions.
const DefaultGeminiEmbedderModel = "gemini-embedding-001"

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider  string `mapstructure:"provider" json:"provider"`     // "gemini" (default), "ollama", "openai"
	ModelName string `mapstructure:"model_name" json:"model_name"` // Model identifier (e.g., "gemini-2.5-flash", "llama3.3")

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Embedder configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server configuration (serve mode)
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`

	// Routing policy (see routing.go for type definition and defaults)
	Routing Routing `mapstructure:"routing" json:"routing"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.docent/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".docent")

	// Ensure directory exists (use 0750 permission for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	// Configure Viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	// Set default values
	setDefaults()

	// Bind environment variables
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	// Use Unmarshal to automatically map to struct (type-safe)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Routing vocabularies default via code, not viper: slice defaults set
	// through viper.SetDefault are not overridable per-element from YAML.
	cfg.Routing.applyDefaults()

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "docent")
	viper.SetDefault("postgres_password", "docent_dev_password")
	viper.SetDefault("postgres_db_name", "docent")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// HTTP defaults
	viper.SetDefault("listen_addr", "127.0.0.1:3500")

	// Routing policy defaults (scalar values; vocabulary list defaults are
	// applied in Routing.applyDefaults)
	viper.SetDefault("routing.high_similarity", 0.85)
	viper.SetDefault("routing.standard_similarity", 0.80)
	viper.SetDefault("routing.top_k", 5)
	viper.SetDefault("routing.max_keyword_results", 8)
	viper.SetDefault("routing.max_context_chars", 8000)
	viper.SetDefault("routing.fast_context_chars", 3000)
	viper.SetDefault("routing.min_answer_chars", 30)
	viper.SetDefault("routing.min_fragment_chars", 30)
	viper.SetDefault("routing.chunk_size", 1000)
	viper.SetDefault("routing.chunk_overlap", 200)
	viper.SetDefault("routing.enable_multi_round", false)
	viper.SetDefault("routing.max_rounds", 3)
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// AI provider and model overrides
	mustBind("provider", "DOCENT_PROVIDER")
	mustBind("model_name", "DOCENT_MODEL_NAME")
	mustBind("ollama_host", "DOCENT_OLLAMA_HOST")

	// Server address override
	mustBind("listen_addr", "DOCENT_LISTEN_ADDR")

	// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper.
	// NOTE: OPENAI_API_KEY is read directly by the Genkit OpenAI plugin.
	// Validation checks their presence based on the selected provider.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid accidental substring matches against
// real secret content.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets show the
// first and last 2 characters for debug utility.
//
// THREAT MODEL: This defends against accidental logging of real secrets.
// It is not cryptographically secure - if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
