package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidBaseURL indicates the OpenRouter base URL is invalid.
	ErrInvalidBaseURL = errors.New("invalid OpenRouter base URL")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidEmbedModel indicates an embedding model name is empty.
	ErrInvalidEmbedModel = errors.New("invalid embedding model")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidListenAddr indicates the server listen address is empty.
	ErrInvalidListenAddr = errors.New("invalid listen address")

	// ErrInvalidMaxFileSize indicates the upload size limit is out of range.
	ErrInvalidMaxFileSize = errors.New("invalid max file size")
)

// validSSLModes are the SSL modes accepted by the pgx driver.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// Note: the OpenRouter API key is deliberately NOT required here. A request
// may carry its own key in the generator node configuration; the llm client
// fails with its own sentinel when neither is present.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.OpenRouterBaseURL == "" {
		return fmt.Errorf("%w: openrouter_base_url cannot be empty", ErrInvalidBaseURL)
	}

	if c.OllamaHost == "" {
		return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
	}
	if c.LocalEmbedModel == "" {
		return fmt.Errorf("%w: local_embed_model cannot be empty", ErrInvalidEmbedModel)
	}
	if c.RemoteEmbedModel == "" {
		return fmt.Errorf("%w: remote_embed_model cannot be empty", ErrInvalidEmbedModel)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not a valid sslmode", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	if c.PostgresPassword == "genstack_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password for production deployments")
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr cannot be empty", ErrInvalidListenAddr)
	}

	if c.MaxFileSize < 1 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidMaxFileSize, c.MaxFileSize)
	}

	return nil
}
