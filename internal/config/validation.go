package config

import (
	"fmt"
	"log/slog"
	"os"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// API key (required for all AI operations; read directly by Genkit)
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range per Gemini API: 0.0 (deterministic) to 2.0.
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// MaxTokens bounded by the Gemini 2.5 context window.
	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.MaxTurns < 1 || c.MaxTurns > 50 {
		return fmt.Errorf("%w: must be between 1 and 50, got %d", ErrInvalidMaxTurns, c.MaxTurns)
	}

	if c.MaxHistoryMessages < 1 || c.MaxHistoryMessages > MaxAllowedHistoryMessages {
		return fmt.Errorf("max_history_messages must be between 1 and %d, got %d",
			MaxAllowedHistoryMessages, c.MaxHistoryMessages)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.RetrievalTopK <= 0 || c.RetrievalTopK > 20 {
		return fmt.Errorf("retrieval_top_k must be between 1 and 20, got %d", c.RetrievalTopK)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresPassword == "insighthub_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"hint", "change postgres_password in config.yaml for production deployments")
	}

	if c.DatasetDBPath == "" {
		return fmt.Errorf("%w: dataset_db_path cannot be empty", ErrInvalidDatasetPath)
	}

	if c.ReportMaxSources < 1 || c.ReportMaxSources > 20 {
		return fmt.Errorf("%w: must be between 1 and 20, got %d", ErrInvalidReportSources, c.ReportMaxSources)
	}
	if c.ReportCrawlDepth < 0 || c.ReportCrawlDepth > 2 {
		return fmt.Errorf("report_crawl_depth must be between 0 and 2, got %d", c.ReportCrawlDepth)
	}

	return nil
}
