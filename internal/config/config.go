// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.insighthub/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: model selection, temperature, max tokens, embedder
//   - Storage: PostgreSQL connection (knowledge and sessions), SQLite path
//     (datasets)
//   - Reporter: research limits for the autonomous reporter
//   - Observability: OTLP trace export
//
// Security: sensitive fields are masked in MarshalJSON; the config directory
// is created with 0750 permissions.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation. Wrapped with context via
// fmt.Errorf("%w: ...") and checked with errors.Is().
var (
	ErrConfigNil            = errors.New("configuration is nil")
	ErrMissingAPIKey        = errors.New("missing API key")
	ErrInvalidModelName     = errors.New("invalid model name")
	ErrInvalidTemperature   = errors.New("invalid temperature")
	ErrInvalidMaxTokens     = errors.New("invalid max tokens")
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")
	ErrInvalidPostgresHost  = errors.New("invalid PostgreSQL host")
	ErrInvalidPostgresPort  = errors.New("invalid PostgreSQL port")
	ErrInvalidDatasetPath   = errors.New("invalid dataset database path")
	ErrInvalidMaxTurns      = errors.New("invalid max turns")
	ErrInvalidReportSources = errors.New("invalid report source limit")
)

const (
	// DefaultModel is the default Gemini chat model.
	DefaultModel = "gemini-2.5-flash"

	// DefaultEmbedderModel is the default Gemini embedder.
	// gemini-embedding-001 outputs 3072 dimensions by default but supports
	// truncation via OutputDimensionality; the pgvector schema uses 768.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultMaxHistoryMessages bounds how much history is loaded per turn.
	DefaultMaxHistoryMessages int32 = 100

	// MaxAllowedHistoryMessages is the absolute maximum to prevent OOM.
	MaxAllowedHistoryMessages int32 = 10000
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON. When
// adding new secrets, update MarshalJSON.
type Config struct {
	// AI model configuration
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
	MaxTurns    int     `mapstructure:"max_turns" json:"max_turns"`

	// Conversation history
	MaxHistoryMessages int32 `mapstructure:"max_history_messages" json:"max_history_messages"`

	// PostgreSQL (knowledge store + sessions)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// SQLite (dataset store for the data query agent)
	DatasetDBPath string `mapstructure:"dataset_db_path" json:"dataset_db_path"`

	// RAG
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	RetrievalTopK int    `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`

	// Reporter
	ReportMaxSources   int    `mapstructure:"report_max_sources" json:"report_max_sources"`
	ReportCrawlDepth   int    `mapstructure:"report_crawl_depth" json:"report_crawl_depth"`
	ReportArtifactsDir string `mapstructure:"report_artifacts_dir" json:"report_artifacts_dir"`

	// Observability (OTLP/HTTP trace export; empty endpoint disables tracing)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`

	// Serve mode
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`
	RateBurst  int    `mapstructure:"rate_burst" json:"rate_burst"`
	TrustProxy bool   `mapstructure:"trust_proxy" json:"trust_proxy"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".insighthub")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	viper.SetDefault("model_name", DefaultModel)
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)
	viper.SetDefault("max_turns", 5)
	viper.SetDefault("max_history_messages", DefaultMaxHistoryMessages)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "insighthub")
	viper.SetDefault("postgres_password", "insighthub_dev_password")
	viper.SetDefault("postgres_db_name", "insighthub")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("dataset_db_path", filepath.Join(configDir, "datasets.db"))

	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("retrieval_top_k", 5)

	viper.SetDefault("report_max_sources", 6)
	viper.SetDefault("report_crawl_depth", 1)
	viper.SetDefault("report_artifacts_dir", filepath.Join(configDir, "reports"))

	viper.SetDefault("otlp_endpoint", "")
	viper.SetDefault("environment", "dev")
	viper.SetDefault("service_name", "insighthub")

	viper.SetDefault("server_addr", "127.0.0.1:8080")
	viper.SetDefault("rate_burst", 60)
	viper.SetDefault("trust_proxy", false)
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit and the genai client, not via
// Viper; Validate checks its presence.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "INSIGHTHUB_MODEL_NAME")
	mustBind("postgres_host", "INSIGHTHUB_POSTGRES_HOST")
	mustBind("postgres_port", "INSIGHTHUB_POSTGRES_PORT")
	mustBind("postgres_user", "INSIGHTHUB_POSTGRES_USER")
	mustBind("postgres_password", "INSIGHTHUB_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "INSIGHTHUB_POSTGRES_DB")
	mustBind("dataset_db_path", "INSIGHTHUB_DATASET_DB")
	mustBind("otlp_endpoint", "INSIGHTHUB_OTLP_ENDPOINT")
	mustBind("server_addr", "INSIGHTHUB_ADDR")
	mustBind("trust_proxy", "INSIGHTHUB_TRUST_PROXY")
}

// ConnString builds the PostgreSQL connection string for pgxpool.
func (c *Config) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword,
		c.PostgresDBName, c.PostgresSSLMode)
}

// QualifiedModel returns the provider-qualified model name Genkit expects
// (e.g. "googleai/gemini-2.5-flash").
func (c *Config) QualifiedModel() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return "googleai/" + c.ModelName
}

// PostgresURL builds the postgres:// URL form used by golang-migrate.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.PostgresUser), url.QueryEscape(c.PostgresPassword),
		c.PostgresHost, c.PostgresPort, c.PostgresDBName, c.PostgresSSLMode)
}

// maskedValue replaces sensitive data in JSON output.
const maskedValue = "********"

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = maskedValue
	}
	return json.Marshal(masked)
}
