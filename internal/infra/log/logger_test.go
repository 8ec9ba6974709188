package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLoggerProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("prod", &buf)
	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "test").Msg("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the info line, got %d lines: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON line: %v", err)
	}
	if entry["message"] != "visible" || entry["component"] != "test" || entry["app"] != "chess-puzzle-bot" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewLoggerDevIncludesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("dev", &buf)
	logger.Debug().Msg("debug line")
	if !strings.Contains(buf.String(), "debug line") {
		t.Fatalf("expected debug output in dev, got %q", buf.String())
	}
}
