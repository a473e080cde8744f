package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/nerrad567/gohome/internal/infrastructure/config"
)

func TestNewWithWriter_Formats(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{"json", func(t *testing.T, out string) {
			var entry map[string]any
			if err := json.Unmarshal([]byte(out), &entry); err != nil {
				t.Fatalf("not JSON: %v: %s", err, out)
			}
			want := map[string]any{"service": ServiceDashboard, "version": "1.2.3", "msg": "layout saved", "widgets": float64(4)}
			for k, v := range want {
				if entry[k] != v {
					t.Errorf("%s = %v, want %v", k, entry[k], v)
				}
			}
		}},
		{"TEXT", func(t *testing.T, out string) {
			for _, part := range []string{"service=" + ServiceDashboard, "version=1.2.3", `msg="layout saved"`, "widgets=4"} {
				if !strings.Contains(out, part) {
					t.Errorf("output %q missing %q", out, part)
				}
			}
		}},
		{"", func(t *testing.T, out string) {
			if !strings.HasPrefix(out, "{") {
				t.Errorf("unknown format should fall back to JSON, got %q", out)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(config.LoggingConfig{Level: "info", Format: tt.format}, ServiceDashboard, "1.2.3", &buf)
			log.Info("layout saved", "widgets", 4)
			tt.check(t, buf.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "text"}, ServiceCore, "test", &buf)
	log.Debug("frame dropped")
	log.Info("client connected")
	log.Warn("slow client dropped")

	out := buf.String()
	if strings.Contains(out, "frame dropped") || strings.Contains(out, "client connected") {
		t.Errorf("entries below warn leaked: %q", out)
	}
	if !strings.Contains(out, "slow client dropped") {
		t.Errorf("warn entry missing: %q", out)
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(config.LoggingConfig{Format: "text"}, ServiceCore, "test", &buf)
	child := parent.With("component", "hub")
	if child == parent {
		t.Fatal("With() returned the parent")
	}

	child.Info("broadcast sent")
	parent.Info("started")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "component=hub") {
		t.Errorf("child entry missing component: %q", lines[0])
	}
	if strings.Contains(lines[1], "component=") {
		t.Errorf("parent entry gained child attrs: %q", lines[1])
	}
}

func TestConstructors(t *testing.T) {
	for name, log := range map[string]*Logger{
		"New":     New(config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, "1.0.0"),
		"Default": Default(),
		"Discard": Discard(),
	} {
		if log == nil || log.Logger == nil {
			t.Errorf("%s() returned an unusable logger", name)
		}
	}
	Discard().Error("goes nowhere")
}
