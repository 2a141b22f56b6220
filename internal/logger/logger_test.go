package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Format: "json", Out: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clog := Component(log, "pipeline")
	clog.Debug().Int("page", 3).Msg("classified")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if entry["component"] != "pipeline" || entry["message"] != "classified" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Fatalf("missing timestamp in %v", entry)
	}
}

func TestLevelFiltersEvents(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "WARN", Format: "json", Out: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Errorf("expected error for bad level")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Errorf("expected error for bad format")
	}
}
