package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/chainguard-dev/clog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "json")

	logger.With("model", "pro").Info("Model call succeeded")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line (debug filtered), got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["msg"] != "Model call succeeded" || entry["model"] != "pro" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestSetup_StoresLoggerInContext(t *testing.T) {
	var buf bytes.Buffer
	ctx, err := Setup(context.Background(), &buf, "debug", "text")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	clog.FromContext(Component(ctx, "dispatch")).Debug("queued")
	out := buf.String()
	if !strings.Contains(out, "msg=queued") || !strings.Contains(out, "component=dispatch") {
		t.Errorf("unexpected output: %q", out)
	}

	if _, err := Setup(context.Background(), &buf, "nope", "text"); err == nil {
		t.Error("expected error for bad level")
	}
}
