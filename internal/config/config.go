// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"playlog/backend/internal/security"
)

// DefaultMaxBodyBytes bounds request bodies (50 MiB).
const DefaultMaxBodyBytes = 50 << 20

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is a postgres:// DSN, or sqlite:// / a file path for the embedded store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// ReleaseCatalog is the path to the YAML file listing releases and experiments.
	ReleaseCatalog string `mapstructure:"RELEASE_CATALOG"`
	// SessionKeySecret is the hex-encoded secret session keys are derived from. Required.
	SessionKeySecret string `mapstructure:"SESSION_KEY_SECRET"`
	// MaxBodyBytes caps the size of an envelope body.
	MaxBodyBytes int64 `mapstructure:"MAX_BODY_BYTES"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTelEndpoint is the OTLP gRPC collector endpoint; empty disables OTel export.
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTelInsecure disables TLS to the collector.
	OTelInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Export API (optional). When EXPORT_JWT_PUBLIC_KEY is set, /admin/export is served.
	// ExportJWTPrivateKey is the PEM private key (or path) used by playlogctl token.
	ExportJWTPrivateKey string `mapstructure:"EXPORT_JWT_PRIVATE_KEY"`
	// ExportJWTPublicKey is the PEM public key (or path) operator tokens are verified with.
	ExportJWTPublicKey string `mapstructure:"EXPORT_JWT_PUBLIC_KEY"`
	ExportJWTIssuer    string `mapstructure:"EXPORT_JWT_ISSUER"`
	ExportJWTAudience  string `mapstructure:"EXPORT_JWT_AUDIENCE"`
	// ExportTokenTTLRaw is the operator token lifetime (e.g. "1h").
	ExportTokenTTLRaw string `mapstructure:"EXPORT_TOKEN_TTL"`
	// ExportPolicyFile optionally overrides the built-in export policy with a rego file.
	ExportPolicyFile string `mapstructure:"EXPORT_POLICY_FILE"`

	// Telemetry (optional). When Kafka brokers are set, the server emits request telemetry to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events (default playlog-telemetry).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "sqlite://playlog.db")
	v.SetDefault("RELEASE_CATALOG", "releases.yaml")
	v.SetDefault("SESSION_KEY_SECRET", "")
	v.SetDefault("MAX_BODY_BYTES", DefaultMaxBodyBytes)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("EXPORT_JWT_PRIVATE_KEY", "")
	v.SetDefault("EXPORT_JWT_PUBLIC_KEY", "")
	v.SetDefault("EXPORT_JWT_ISSUER", "playlog")
	v.SetDefault("EXPORT_JWT_AUDIENCE", "playlog-export")
	v.SetDefault("EXPORT_TOKEN_TTL", "1h")
	v.SetDefault("EXPORT_POLICY_FILE", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "playlog-telemetry")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "playlog-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.SessionKeySecret != "" {
		if _, err := cfg.SessionSecret(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// SessionSecret decodes SessionKeySecret. It fails when the secret is unset, not hex, or too short.
func (c *Config) SessionSecret() ([]byte, error) {
	if c.SessionKeySecret == "" {
		return nil, errors.New("config: SESSION_KEY_SECRET must be set")
	}
	b, err := security.ParseHexKey(c.SessionKeySecret, security.MinSecretSize)
	if err != nil {
		return nil, errors.New("config: SESSION_KEY_SECRET must be hex and at least 32 bytes")
	}
	return b, nil
}

// ExportTokenTTL parses ExportTokenTTLRaw as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) ExportTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.ExportTokenTTLRaw)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// ExportEnabled reports whether operator tokens can be verified.
func (c *Config) ExportEnabled() bool {
	return c != nil && c.ExportJWTPublicKey != ""
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
