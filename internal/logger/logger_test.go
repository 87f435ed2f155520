package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Output: &buf}), &buf
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != InfoLevel {
		t.Errorf("Level = %v, want InfoLevel", cfg.Level)
	}
	if !cfg.Pretty {
		t.Error("Pretty should be true by default")
	}
	if cfg.Output == nil {
		t.Error("Output should not be nil")
	}
}

func TestNew_Component(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, Output: &buf, Component: "enrich"})
	l.Info("hello")

	if !strings.Contains(buf.String(), `"component":"enrich"`) {
		t.Errorf("component missing: %s", buf.String())
	}
}

func TestLogger_ChildLoggers(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)

	l.WithComponent("crawler").
		WithListing("Acme Spa").
		WithField("pass", 3).
		WithError(errors.New("boom")).
		WithDuration(2 * time.Second).
		Info("processed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"component", "listing", "pass", "error", "duration"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("field %q missing in %v", key, entry)
		}
	}
	if entry["listing"] != "Acme Spa" {
		t.Errorf("listing = %v", entry["listing"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(WarnLevel)

	l.Debug("debug")
	l.Info("info")
	if buf.Len() != 0 {
		t.Errorf("debug/info should be filtered: %s", buf.String())
	}

	l.Warn("warn")
	l.Errorf("error %d", 1)
	out := buf.String()
	if !strings.Contains(out, "warn") || !strings.Contains(out, "error 1") {
		t.Errorf("warn/error missing: %s", out)
	}
}

func TestLogger_SavedEvent(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)
	l.WithListing("Acme").SavedEvent(2, 10, "https://acme.io", "info@acme.io")

	out := buf.String()
	for _, want := range []string{`"saved":2`, `"budget":10`, `"listing":"Acme"`, "Listing saved", "info@acme.io"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestLogger_SkipEvent(t *testing.T) {
	l, buf := newBufferLogger(DebugLevel)
	l.WithListing("Acme").SkipEvent("duplicate website")

	out := buf.String()
	if !strings.Contains(out, "duplicate website") {
		t.Errorf("reason missing: %s", out)
	}
	if strings.Count(out, `"listing"`) != 1 {
		t.Errorf("listing field should appear once: %s", out)
	}
}

func TestLogger_ErrorEvent(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)
	l.ErrorEvent(errors.New("click failed"), "open")

	out := buf.String()
	if !strings.Contains(out, "click failed") || !strings.Contains(out, `"operation":"open"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestLogger_StatsEvent(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)
	l.StatsEvent(map[string]interface{}{"saved": 5, "skipped": 2})

	out := buf.String()
	if !strings.Contains(out, "Crawl statistics") || !strings.Contains(out, `"skipped":2`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)
	l.SetLevel(ErrorLevel)
	l.Warn("hidden")

	if buf.Len() != 0 {
		t.Errorf("warn should be filtered after SetLevel: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"info", InfoLevel, false},
		{"warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"loud", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNop(t *testing.T) {
	// Must not panic.
	Nop().ErrorEvent(errors.New("x"), "op")
}
