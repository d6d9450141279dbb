package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/samvad-hq/ironmq-go/internal/config"
)

func TestZapLoggerWritesStructuredField(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&config.Config{AppName: "test", LogLevel: "info"}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.InfoObj("queue drained", "queue_meta", map[string]any{"queue": "jobs", "count": 2})
	log.DebugObj("hidden", "debug", "x")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line at info level, got %d: %s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "queue drained" || entry["app"] != "test" {
		t.Fatalf("unexpected entry %v", entry)
	}
	meta, ok := entry["queue_meta"].(map[string]any)
	if !ok || meta["queue"] != "jobs" {
		t.Fatalf("unexpected queue_meta %v", entry["queue_meta"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("missing ts field")
	}
}

func TestParseLevel(t *testing.T) {
	for raw, want := range map[string]string{"debug": "debug", "WARNING": "warn", "error": "error", "": "info", "bogus": "info"} {
		if got := parseLevel(raw).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", raw, got, want)
		}
	}
}
