package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStartSpanDisabledReturnsParent(t *testing.T) {
	if err := InitWithConfig(Config{Enabled: false}); err != nil {
		t.Fatalf("InitWithConfig: %v", err)
	}
	ctx := context.Background()
	got, span := StartSpan(ctx, "noop")
	defer span.End()
	if got != ctx {
		t.Fatal("expected parent context when tracing is disabled")
	}
	if _, _, ok := GetTraceFields(got); ok {
		t.Fatal("expected no trace fields when disabled")
	}
}

func TestInitHonoursEnv(t *testing.T) {
	t.Setenv("LOG_TRACING_ENABLED", "false")
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Enabled() {
		t.Fatal("expected tracing disabled")
	}
}

func TestSpansAreExportedOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithConfig(Config{Enabled: true, Version: "test", Writer: &buf}); err != nil {
		t.Fatalf("InitWithConfig: %v", err)
	}
	ctx, span := StartSpan(context.Background(), "engine.test")
	traceID, spanID, ok := GetTraceFields(ctx)
	if !ok || traceID == "" || spanID == "" {
		t.Fatalf("GetTraceFields = %q, %q, %v", traceID, spanID, ok)
	}
	span.End()

	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "engine.test") || !strings.Contains(buf.String(), traceID) {
		t.Fatalf("exported spans = %q", buf.String())
	}
	if Enabled() {
		t.Fatal("Shutdown must disable tracing")
	}
}
