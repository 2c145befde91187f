package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"relic/internal/services"
)

func TestPrettyHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	handler := newPrettyHandler(&buf, levelVar, false)
	logger := slog.New(handler).With(String(FieldComponent, "optimizer"))

	logger.Info("image processed", Int("width", 2400), String("file", "teapot 01.jpg"))

	line := buf.String()
	if !strings.Contains(line, "INFO optimizer: image processed") {
		t.Fatalf("unexpected line: %s", line)
	}
	if !strings.Contains(line, "width=2400") {
		t.Fatalf("missing attr: %s", line)
	}
	if !strings.Contains(line, `file="teapot 01.jpg"`) {
		t.Fatalf("value with spaces should be quoted: %s", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsStandardFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	ctx := services.WithItemID(context.Background(), 42)
	ctx = services.WithStage(ctx, "uploading")

	WithContext(ctx, logger).Info("stage started")

	line := buf.String()
	if !strings.Contains(line, "item_id=42") || !strings.Contains(line, "stage=uploading") {
		t.Fatalf("context fields missing: %s", line)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != slog.LevelInfo {
		t.Fatalf("parseLevel = %v, want info", got)
	}
}
