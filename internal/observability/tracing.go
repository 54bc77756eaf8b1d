// Package observability wires OpenTelemetry tracing into Genkit. Spans are
// exported over OTLP HTTP to a local collector; the collector decides where
// they ultimately land.
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/insightlab/insighthub/internal/log"
)

// Config for trace export.
type Config struct {
	// Endpoint is the OTLP HTTP collector address (host:port), typically
	// localhost:4318. Empty disables tracing.
	Endpoint string
	// Environment tags spans with the deployment environment.
	Environment string
	// ServiceName is the service name attached to exported spans.
	ServiceName string
}

// Setup registers an OTLP exporter on Genkit's tracer provider so every
// flow, model call and tool invocation is traced. Returns a shutdown
// function that flushes pending spans.
//
// An empty endpoint disables tracing entirely. A collector that cannot be
// reached at startup disables tracing with a warning rather than failing
// the application.
func Setup(ctx context.Context, cfg Config, logger log.Logger) (shutdown func(context.Context) error, err error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		logger.Debug("no collector endpoint configured, tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	// Genkit's TracerProvider reads service identity from the OTEL env vars.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating trace exporter failed, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment)

	return tracing.TracerProvider().Shutdown, nil
}
