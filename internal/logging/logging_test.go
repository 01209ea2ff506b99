package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, "text", &buf)

	logger.Info("login", "client_id", "C1")

	output := buf.String()
	if !strings.Contains(output, "msg=login") {
		t.Errorf("expected 'msg=login' in output, got: %s", output)
	}
	if !strings.Contains(output, "client_id=C1") {
		t.Errorf("expected 'client_id=C1' in output, got: %s", output)
	}
}

func TestNewLoggerWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, "JSON", &buf)

	logger.Info("login", "client_id", "C1")

	output := buf.String()
	if !strings.Contains(output, `"msg":"login"`) {
		t.Errorf("expected JSON msg field in output, got: %s", output)
	}
	if !strings.Contains(output, `"client_id":"C1"`) {
		t.Errorf("expected JSON client_id field in output, got: %s", output)
	}
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf)

	logger.Info("should not appear")
	logger.Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Errorf("INFO message should be filtered at WARN level, got: %s", output)
	}
	if !strings.Contains(output, "should appear") {
		t.Errorf("WARN message should appear at WARN level, got: %s", output)
	}
}

func TestNewLoggerWithWriter_Redacts(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelDebug, "text", &buf).With("component", "backend")

	logger.Debug("verify", "token", "secret-token", "Code", "123456", "action", "verifyOtp")

	output := buf.String()
	if strings.Contains(output, "secret-token") || strings.Contains(output, "123456") {
		t.Errorf("secret leaked into output: %s", output)
	}
	if !strings.Contains(output, "token=[REDACTED]") {
		t.Errorf("expected redacted token, got: %s", output)
	}
	if !strings.Contains(output, "component=backend") || !strings.Contains(output, "action=verifyOtp") {
		t.Errorf("expected other attributes kept, got: %s", output)
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing to see")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"jane@acme.example": "j***@acme.example",
		"x@y.z":             "x***@y.z",
		"no-at-sign":        "***",
		"@acme.example":     "***",
	}
	for in, want := range tests {
		if got := MaskEmail(in); got != want {
			t.Errorf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
