package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", &buf)

	log.Info("trial finished", "trial_id", "t-1", "cost", 0.25)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "trial finished" {
		t.Fatalf("expected msg 'trial finished', got %v", entry["msg"])
	}
	if entry["trial_id"] != "t-1" {
		t.Fatalf("expected trial_id t-1, got %v", entry["trial_id"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", &buf)

	log.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}

	log.Warn("should be kept")
	if buf.Len() == 0 {
		t.Fatalf("expected warn to be logged")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "DEBUG",
		"INFO":    "INFO",
		"warning": "WARN",
		"error":   "ERROR",
		"bogus":   "INFO",
	}
	for in, want := range cases {
		var buf bytes.Buffer
		log := NewText(in, &buf)
		log.Log(context.Background(), parseLevel(in), "x")
		if !strings.Contains(buf.String(), "level="+want) {
			t.Fatalf("level %q: expected %q in output %q", in, want, buf.String())
		}
	}
}
