package trace

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "regime-engine"

var (
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	enabled  bool
)

// Config selects where finished spans are written.
type Config struct {
	Enabled bool
	Pretty  bool
	Version string
	Writer  io.Writer // defaults to stderr; stdout carries decisions
}

// ConfigFromEnv reads LOG_TRACING_ENABLED, TRACE_PRETTY and SERVICE_VERSION.
func ConfigFromEnv() Config {
	return Config{
		Enabled: getEnv("LOG_TRACING_ENABLED", "true") == "true",
		Pretty:  getEnv("TRACE_PRETTY", "true") == "true",
		Version: getEnv("SERVICE_VERSION", "dev"),
	}
}

func Init() error {
	return InitWithConfig(ConfigFromEnv())
}

// InitWithConfig installs a batching provider over the stdouttrace exporter.
// A disabled config leaves StartSpan a no-op.
func InitWithConfig(cfg Config) error {
	enabled = cfg.Enabled
	if !enabled {
		return nil
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.Pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		enabled = false
		return err
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		enabled = false
		return err
	}

	provider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
	otel.SetTracerProvider(provider)
	tracer = provider.Tracer(serviceName)
	return nil
}

// Shutdown flushes buffered spans and turns tracing off.
func Shutdown(ctx context.Context) error {
	p := provider
	provider, tracer, enabled = nil, nil, false
	if p == nil {
		return nil
	}
	return p.Shutdown(ctx)
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, opts...)
}

func Enabled() bool {
	return enabled
}

// GetTraceFields returns the ids of the active span, if any.
func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
