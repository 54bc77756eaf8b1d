package config

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// validConfig returns a configuration that passes Validate.
func validConfig() *Config {
	return &Config{
		ModelName:          DefaultModel,
		Temperature:        0.7,
		MaxTokens:          2048,
		MaxTurns:           5,
		MaxHistoryMessages: DefaultMaxHistoryMessages,
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "insighthub",
		PostgresPassword:   "super-secret-password",
		PostgresDBName:     "insighthub",
		PostgresSSLMode:    "disable",
		DatasetDBPath:      "/tmp/datasets.db",
		EmbedderModel:      DefaultEmbedderModel,
		RetrievalTopK:      5,
		ReportMaxSources:   6,
		ReportCrawlDepth:   1,
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "negative temperature",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "zero max tokens",
			mutate:  func(c *Config) { c.MaxTokens = 0 },
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "max turns out of range",
			mutate:  func(c *Config) { c.MaxTurns = 0 },
			wantErr: ErrInvalidMaxTurns,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "postgres port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty dataset path",
			mutate:  func(c *Config) { c.DatasetDBPath = "" },
			wantErr: ErrInvalidDatasetPath,
		},
		{
			name:    "report sources out of range",
			mutate:  func(c *Config) { c.ReportMaxSources = 0 },
			wantErr: ErrInvalidReportSources,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	err := validConfig().Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Validate() = %v, want %v", err, ErrMissingAPIKey)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Fatalf("Validate() = %v, want %v", err, ErrConfigNil)
	}
}

func TestMarshalJSON_MasksPassword(t *testing.T) {
	cfg := validConfig()

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	out := string(data)
	if strings.Contains(out, "super-secret-password") {
		t.Errorf("marshaled config leaks password: %s", out)
	}
	if !strings.Contains(out, maskedValue) {
		t.Errorf("expected masked placeholder in output: %s", out)
	}
}

func TestConnString(t *testing.T) {
	cfg := validConfig()

	got := cfg.ConnString()
	for _, want := range []string{"host=localhost", "port=5432", "dbname=insighthub", "sslmode=disable"} {
		if !strings.Contains(got, want) {
			t.Errorf("ConnString() = %q, missing %q", got, want)
		}
	}
}
