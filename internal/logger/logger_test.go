package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func initBuffer(t *testing.T, detailed bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := InitWithConfig(Config{
		Level:           "DEBUG",
		Format:          "json",
		DetailedLogging: detailed,
		Output:          &buf,
	}); err != nil {
		t.Fatalf("InitWithConfig: %v", err)
	}
	t.Cleanup(func() { globalLogger = nil })
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "bogus": "INFO"}
	for in, want := range cases {
		if got := parseLogLevel(in).String(); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestDebugRequiresDetailedLogging(t *testing.T) {
	buf := initBuffer(t, false)
	Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestDecisionFields(t *testing.T) {
	buf := initBuffer(t, false)
	Decision(context.Background(), "SSE:600000", "BUY", 0.8, "trend", "regime", "TREND")
	got := lines(t, buf)
	if len(got) != 1 {
		t.Fatalf("expected 1 line, got %d", len(got))
	}
	if got[0]["type"] != "DECISION" || got[0]["action"] != "BUY" || got[0]["regime"] != "TREND" {
		t.Errorf("unexpected fields: %v", got[0])
	}
}

func TestErrorWithErrSkipAddsSource(t *testing.T) {
	buf := initBuffer(t, true)
	ErrorWithErrSkip(context.Background(), 0, "failed", errors.New("boom"), "k", "v")
	got := lines(t, buf)
	if len(got) != 1 {
		t.Fatalf("expected 1 line, got %d", len(got))
	}
	if got[0]["error"] != "boom" {
		t.Errorf("error field = %v", got[0]["error"])
	}
	src, ok := got[0]["source"].(map[string]any)
	if !ok {
		t.Fatalf("missing source group: %v", got[0])
	}
	if !strings.HasSuffix(src["file"].(string), "logger_test.go") {
		t.Errorf("source file = %v, want logger_test.go", src["file"])
	}
}

func TestRegimeChangeReportsCaller(t *testing.T) {
	buf := initBuffer(t, true)
	RegimeChange(context.Background(), "SSE:600000", "1d", "RANGE", "TREND", "fused", 0.7)
	got := lines(t, buf)
	if len(got) != 1 {
		t.Fatalf("expected 1 line, got %d", len(got))
	}
	if got[0]["type"] != "REGIME" || got[0]["from"] != "RANGE" || got[0]["to"] != "TREND" {
		t.Errorf("unexpected fields: %v", got[0])
	}
	src, ok := got[0]["source"].(map[string]any)
	if !ok || !strings.HasSuffix(src["file"].(string), "logger_test.go") {
		t.Fatalf("source = %v, want logger_test.go", got[0]["source"])
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithConfig(Config{Level: "INFO", Format: "text", Output: &buf}); err != nil {
		t.Fatalf("InitWithConfig: %v", err)
	}
	t.Cleanup(func() { globalLogger = nil })
	Info(context.Background(), "hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("text output = %q", buf.String())
	}
}
