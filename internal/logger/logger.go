package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"regime-engine/internal/trace"
)

var (
	globalLogger *slog.Logger
	// source locations and Debug lines are only emitted in detailed mode
	detailedLogging bool
)

// Config holds logging configuration
type Config struct {
	Level           string // DEBUG, INFO, WARN, ERROR
	Format          string // json or text
	DetailedLogging bool
	Output          io.Writer // defaults to stderr; stdout carries decisions
}

// Init initializes the global logger from LOG_LEVEL, LOG_FORMAT and LOG_DETAILED.
// Tracing is configured separately by trace.Init.
func Init() error {
	return InitWithConfig(ConfigFromEnv())
}

func ConfigFromEnv() Config {
	return Config{
		Level:           getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format:          getEnvOrDefault("LOG_FORMAT", "json"),
		DetailedLogging: getEnvOrDefault("LOG_DETAILED", "false") == "true",
	}
}

func InitWithConfig(cfg Config) error {
	detailedLogging = cfg.DetailedLogging

	// source is added by logWithTrace so wrappers report their caller
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Debug logs only when detailed logging is on.
func Debug(ctx context.Context, msg string, args ...any) {
	if !detailedLogging {
		return
	}
	logWithTrace(ctx, slog.LevelDebug, msg, 2, args...)
}

// DebugSkip is Debug for wrappers; skip is the number of extra frames between
// the caller of interest and this function.
func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	if !detailedLogging {
		return
	}
	logWithTrace(ctx, slog.LevelDebug, msg, 2+skip, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelInfo, msg, 2, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelWarn, msg, 2, args...)
}

// ErrorWithErr logs err and marks the active span as failed.
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logWithTrace(ctx, slog.LevelError, msg, 2, append([]any{"error", err}, args...)...)
}

// ErrorWithErrSkip is ErrorWithErr for wrappers.
func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logWithTrace(ctx, slog.LevelError, msg, 2+skip, append([]any{"error", err}, args...)...)
}

func activeSpan(ctx context.Context) (oteltrace.Span, bool) {
	if !trace.Enabled() {
		return nil, false
	}
	span := oteltrace.SpanFromContext(ctx)
	return span, span.SpanContext().IsValid()
}

func recordSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if span, ok := activeSpan(ctx); ok {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// logWithTrace prefixes trace/span ids when a span is active. skip counts the
// frames between runtime.Caller and the caller to report.
func logWithTrace(ctx context.Context, level slog.Level, msg string, skip int, args ...any) {
	if traceID, spanID, ok := trace.GetTraceFields(ctx); ok {
		args = append([]any{"trace_id", traceID, "span_id", spanID}, args...)
	}

	if detailedLogging {
		if pc, file, line, ok := runtime.Caller(skip); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				args = append(args, "source", slog.GroupValue(
					slog.String("function", fn.Name()),
					slog.String("file", file),
					slog.Int("line", line),
				))
			}
		}
	}

	l := globalLogger
	if l == nil {
		l = slog.Default()
	}
	l.Log(ctx, level, msg, args...)
}

// event logs a typed domain line and mirrors it onto the active span.
func event(ctx context.Context, level slog.Level, kind, spanEvent, msg string, attrs []attribute.KeyValue, fields []any) {
	if span, ok := activeSpan(ctx); ok {
		span.AddEvent(spanEvent, oteltrace.WithAttributes(attrs...))
	}
	args := make([]any, 0, 2+2*len(attrs)+len(fields))
	args = append(args, "type", kind)
	for _, a := range attrs {
		args = append(args, string(a.Key), a.Value.AsInterface())
	}
	logWithTrace(ctx, level, msg, 3, append(args, fields...)...)
}

// Decision logs an engine decision.
func Decision(ctx context.Context, symbol, action string, confidence float64, reason string, fields ...any) {
	event(ctx, slog.LevelInfo, "DECISION", "engine_decision", "Decision made", []attribute.KeyValue{
		attribute.String("symbol", symbol),
		attribute.String("action", action),
		attribute.Float64("confidence", confidence),
		attribute.String("reason", reason),
	}, fields)
}

// RegimeChange logs a regime transition for an instrument/timeframe pair.
func RegimeChange(ctx context.Context, instrument, timeframe, from, to string, fields ...any) {
	event(ctx, slog.LevelInfo, "REGIME", "regime_change", "Regime changed", []attribute.KeyValue{
		attribute.String("instrument", instrument),
		attribute.String("timeframe", timeframe),
		attribute.String("from", from),
		attribute.String("to", to),
	}, fields)
}

// Risk logs a veto or cap adjustment.
func Risk(ctx context.Context, symbol, eventType string, fields ...any) {
	event(ctx, slog.LevelWarn, "RISK", "risk_event", "Risk event", []attribute.KeyValue{
		attribute.String("symbol", symbol),
		attribute.String("event_type", eventType),
	}, fields)
}
