// Package config provides configuration loading for minutes.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/fyrsmithlabs/minutes/internal/logging"
)

// Config holds the complete service configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Generation    GenerationConfig    `koanf:"generation"`
	Store         StoreConfig         `koanf:"store"`
	Drafts        DraftsConfig        `koanf:"drafts"`
	Logging       logging.Config      `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// GenerationConfig selects and configures the text-generation provider.
//
// A missing API key is not a load error: the extraction pipeline reports it
// on use so the rest of the service keeps working.
type GenerationConfig struct {
	Provider          string   `koanf:"provider"`
	Model             string   `koanf:"model"`
	APIKey            Secret   `koanf:"api_key"`
	BaseURL           string   `koanf:"base_url"`
	Timeout           Duration `koanf:"timeout"`
	RequestsPerMinute int      `koanf:"requests_per_minute"`
}

// StoreConfig selects the persistent task/comment store.
type StoreConfig struct {
	Provider                 string `koanf:"provider"`
	SQLitePath               string `koanf:"sqlite_path"`
	AzTablesConnectionString Secret `koanf:"aztables_connection_string"`
	TasksTable               string `koanf:"tasks_table"`
	CommentsTable            string `koanf:"comments_table"`
}

// DraftsConfig selects where the in-progress note text is cached.
type DraftsConfig struct {
	Provider string   `koanf:"provider"`
	RedisURL string   `koanf:"redis_url"`
	TTL      Duration `koanf:"ttl"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	Enabled      bool   `koanf:"enabled"`
	ServiceName  string `koanf:"service_name"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	Insecure     bool   `koanf:"insecure"`
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	switch c.Generation.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown generation provider %q (must be gemini or openai)", c.Generation.Provider)
	}
	if c.Generation.BaseURL != "" {
		if err := validateURL(c.Generation.BaseURL); err != nil {
			return fmt.Errorf("invalid generation base_url: %w", err)
		}
	}
	if c.Generation.RequestsPerMinute < 0 {
		return fmt.Errorf("generation requests_per_minute must be >= 0")
	}

	switch c.Store.Provider {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store sqlite_path required for sqlite provider")
		}
		if strings.Contains(c.Store.SQLitePath, "..") {
			return fmt.Errorf("store sqlite_path cannot contain path traversal (..)")
		}
	case "aztables":
		if !c.Store.AzTablesConnectionString.IsSet() {
			return fmt.Errorf("store aztables_connection_string required for aztables provider")
		}
	default:
		return fmt.Errorf("unknown store provider %q (must be sqlite or aztables)", c.Store.Provider)
	}

	switch c.Drafts.Provider {
	case "sqlite", "none":
	case "redis":
		if c.Drafts.RedisURL == "" {
			return fmt.Errorf("drafts redis_url required for redis provider")
		}
	default:
		return fmt.Errorf("unknown drafts provider %q (must be sqlite, redis or none)", c.Drafts.Provider)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if c.Observability.Enabled && c.Observability.OTLPEndpoint == "" {
		return fmt.Errorf("observability otlp_endpoint required when enabled")
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
