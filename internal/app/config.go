package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/claudine-bridge/internal/observability"
	"github.com/florianilch/claudine-bridge/internal/tokenstore"
)

// Keyring coordinates of the stored upstream key.
const (
	KeyringService = "claudine-bridge"
	KeyringUser    = "upstream-api-key"
)

// TokenStorageType selects where the fallback upstream key is kept.
type TokenStorageType string

const (
	TokenStorageTypeNone    TokenStorageType = "none"
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig      `koanf:"server"`
	Upstream UpstreamConfig    `koanf:"upstream"`
	Models   map[string]string `koanf:"models"`
	Auth     AuthConfig        `koanf:"auth"`
	Log      LogConfig         `koanf:"log"`
}

// ServerConfig configures the inbound HTTP server.
type ServerConfig struct {
	Listen          string        `koanf:"listen" validate:"required,hostname_port"`
	MaxRequestBytes int64         `koanf:"max_request_bytes" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// UpstreamConfig configures the OpenAI-compatible upstream.
type UpstreamConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,http_url"`

	// DefaultModel replaces client models that have no alias. Empty passes them through.
	DefaultModel string `koanf:"default_model"`
}

// AuthConfig configures the fallback upstream key.
type AuthConfig struct {
	Storage TokenStorageType `koanf:"storage" validate:"oneof=none env file keyring"`
	EnvVar  string           `koanf:"env_var" validate:"required_if=Storage env"`
	File    string           `koanf:"file" validate:"required_if=Storage file"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level    string `koanf:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format   string `koanf:"format" validate:"oneof=text json"`
	File     string `koanf:"file"`
	Exporter string `koanf:"exporter" validate:"omitempty,oneof=stdout otlp-http otlp-grpc"`
}

// Validate checks the configuration for missing or malformed values.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewTokenStore returns the configured store, or nil when storage is "none".
func (c AuthConfig) NewTokenStore() (tokenstore.Store, error) {
	switch c.Storage {
	case TokenStorageTypeNone, "":
		return nil, nil
	case TokenStorageTypeEnv:
		return &tokenstore.EnvStore{Var: c.EnvVar}, nil
	case TokenStorageTypeFile:
		return &tokenstore.FileStore{Path: c.File}, nil
	case TokenStorageTypeKeyring:
		return &tokenstore.KeyringStore{Service: KeyringService, User: KeyringUser}, nil
	default:
		return nil, fmt.Errorf("unsupported token storage %q", c.Storage)
	}
}

// ObservabilityOptions converts the log settings into observability options.
func (c LogConfig) ObservabilityOptions() (observability.Options, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return observability.Options{}, fmt.Errorf("invalid log level: %w", err)
	}
	return observability.Options{
		Level:    level,
		Format:   c.Format,
		File:     c.File,
		Exporter: c.Exporter,
	}, nil
}
