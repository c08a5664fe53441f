package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewJSONWriter_WritesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(LevelInfo, &buf)

	logger.Debug("hidden")
	logger.Info("roster ingested", "inserted", 3, "err", errors.New("boom"), "dangling")
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := sonic.UnmarshalString(lines[0], &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "roster ingested" || entry["level"] != "INFO" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["inserted"] != float64(3) {
		t.Fatalf("unexpected inserted field: %v", entry["inserted"])
	}
	if entry["err"] != "boom" {
		t.Fatalf("unexpected err field: %v", entry["err"])
	}
	if _, ok := entry["dangling"]; !ok {
		t.Fatalf("expected dangling key to be kept")
	}
}

func TestLogContext_AddsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(LevelDebug, &buf)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.WarnContext(ctx, "ambiguous row", "line", 7)
	span.End()

	out := buf.String()
	if !strings.Contains(out, `"trace_id":"`+span.SpanContext().TraceID().String()+`"`) {
		t.Fatalf("expected trace_id in %q", out)
	}
	if !strings.Contains(out, `"span_id"`) {
		t.Fatalf("expected span_id in %q", out)
	}
}

func TestNilLoggerFallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewJSONWriter(LevelInfo, &buf))
	defer SetDefault(nil)

	var logger *Logger
	logger.Info("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Fatalf("expected default logger output, got %q", buf.String())
	}
}
