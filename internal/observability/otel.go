// Package observability provides OpenTelemetry integration for distributed tracing.
//
// Traces are exported over OTLP HTTP to a local collector (or agent). The
// collector handles authentication and forwarding to whatever backend the
// deployment uses, so the app never needs vendor credentials.
//
// Tracing is opt-in: an empty endpoint leaves the global tracer provider
// untouched and spans become no-ops.
package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the OTLP HTTP collector host:port. Empty disables tracing.
	Endpoint string
	// Environment is the deployment environment (dev, staging, prod)
	Environment string
	// ServiceName is the service name shown in the tracing backend
	ServiceName string
}

// Setup registers a global tracer provider exporting to the configured OTLP
// collector. Returns a shutdown function that flushes pending spans.
//
// A missing endpoint or an exporter setup failure degrades to no-op tracing
// rather than failing startup.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if cfg.Endpoint == "" {
		logger.Debug("tracing disabled, no OTLP endpoint configured")
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(), // local collector doesn't need TLS
	)
	if err != nil {
		logger.Warn("failed to create OTLP exporter, tracing disabled", "error", err)
		return noop, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		logger.Warn("failed to build trace resource, tracing disabled", "error", err)
		return noop, nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Debug("tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tp.Shutdown, nil
}
