// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (GENSTACK_* and DATABASE_URL)
//  2. Config file (~/.genstack/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - LLM: OpenRouter credentials and base URL (see llm package for routing)
//   - Search: SerpAPI key for the web-search augmentation stage
//   - Embedding: Ollama host and local model, remote embedding defaults
//   - Storage: PostgreSQL connection (see storage.go)
//   - Server: listen address, CORS, upload limits
//
// Sensitive fields (API keys, passwords) are masked in MarshalJSON and are
// never logged. Validation lives in validation.go and returns sentinel
// errors for errors.Is() checks.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultOpenRouterBaseURL is the OpenAI-compatible endpoint all
	// generation requests are routed through.
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// DefaultLocalEmbedModel is the Ollama model used for credential-free
	// local embeddings.
	DefaultLocalEmbedModel = "all-minilm"

	// DefaultRemoteEmbedModel is used when a knowledge-base node supplies an
	// API key but no explicit embedding model.
	DefaultRemoteEmbedModel = "text-embedding-3-large"

	// DefaultMaxFileSize caps document uploads at 10 MB.
	DefaultMaxFileSize int64 = 10 * 1024 * 1024
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// LLM backend (OpenRouter, OpenAI-compatible)
	OpenRouterAPIKey  string `mapstructure:"openrouter_api_key" json:"openrouter_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenRouterBaseURL string `mapstructure:"openrouter_base_url" json:"openrouter_base_url"`

	// Web search
	SerpAPIKey string `mapstructure:"serpapi_key" json:"serpapi_key"` // SENSITIVE: masked in MarshalJSON

	// Embedding backends
	OllamaHost       string `mapstructure:"ollama_host" json:"ollama_host"`
	LocalEmbedModel  string `mapstructure:"local_embed_model" json:"local_embed_model"`
	RemoteEmbedModel string `mapstructure:"remote_embed_model" json:"remote_embed_model"`

	// Storage configuration (see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`

	// Document uploads
	UploadDir   string `mapstructure:"upload_dir" json:"upload_dir"`
	MaxFileSize int64  `mapstructure:"max_file_size" json:"max_file_size"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".genstack")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides the individual postgres_* values.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("openrouter_base_url", DefaultOpenRouterBaseURL)

	viper.SetDefault("ollama_host", "http://localhost:11434")
	viper.SetDefault("local_embed_model", DefaultLocalEmbedModel)
	viper.SetDefault("remote_embed_model", DefaultRemoteEmbedModel)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "genstack")
	viper.SetDefault("postgres_password", "genstack_dev_password")
	viper.SetDefault("postgres_db_name", "genstack")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("listen_addr", "127.0.0.1:8000")
	viper.SetDefault("cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	viper.SetDefault("trust_proxy", false)

	viper.SetDefault("upload_dir", "./uploads")
	viper.SetDefault("max_file_size", DefaultMaxFileSize)
}

// bindEnvVariables binds environment variables explicitly.
// Secrets are env-only so they never need to live in config.yaml.
func bindEnvVariables() {
	_ = viper.BindEnv("openrouter_api_key", "GENSTACK_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	_ = viper.BindEnv("serpapi_key", "GENSTACK_SERPAPI_KEY", "SERPAPI_KEY")
	_ = viper.BindEnv("postgres_password", "GENSTACK_POSTGRES_PASSWORD")
	_ = viper.BindEnv("listen_addr", "GENSTACK_LISTEN_ADDR")
	_ = viper.BindEnv("ollama_host", "GENSTACK_OLLAMA_HOST", "OLLAMA_HOST")
}

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(*c)
	if masked.OpenRouterAPIKey != "" {
		masked.OpenRouterAPIKey = "***"
	}
	if masked.SerpAPIKey != "" {
		masked.SerpAPIKey = "***"
	}
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	return json.Marshal(masked)
}
