package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mledit/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if result := LevelString(test.level); result != test.expected {
				t.Errorf("expected %q, got %q", test.expected, result)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("expected default level Info, got %v", cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("expected default format Text, got %v", cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected default output stderr, got %s", cfg.Output)
	}
	if cfg.Component != "mledit" {
		t.Errorf("expected component mledit, got %s", cfg.Component)
	}
}

func TestFromConfig(t *testing.T) {
	lc := config.DefaultConfig().Logging
	lc.Level = "debug"
	lc.Format = "json"
	lc.Output = "file"
	lc.FilePath = "/tmp/mledit-test.log"
	lc.MaxSizeMB = 5

	cfg := FromConfig(lc)
	if cfg.Level != LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.Level)
	}
	if cfg.Format != FormatJSON {
		t.Errorf("expected JSON format")
	}
	if cfg.Output != "file" || cfg.FilePath != "/tmp/mledit-test.log" {
		t.Errorf("unexpected output %s %s", cfg.Output, cfg.FilePath)
	}
	if cfg.MaxSize != 5 {
		t.Errorf("expected max size 5, got %d", cfg.MaxSize)
	}
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Writer = &buf

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.WithComponent("scanner").Info("sweep")
	if !strings.Contains(buf.String(), "component=scanner") {
		t.Errorf("expected component attribute, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "component=mledit") {
		t.Errorf("root component not replaced: %q", buf.String())
	}

	buf.Reset()
	logger.WithComponent("session").WithComponent("document").Info("commit")
	if n := strings.Count(buf.String(), "component="); n != 1 {
		t.Errorf("expected one component attribute, got %d in %q", n, buf.String())
	}
	if !strings.Contains(buf.String(), "component=document") {
		t.Errorf("expected innermost component, got %q", buf.String())
	}
}

func TestShouldRedact(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"password", true},
		{"api_key", true},
		{"auth_token", true},
		{"field", false},
		{"kind", false},
		{"lines", false},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			if got := shouldRedact(test.key); got != test.expected {
				t.Errorf("shouldRedact(%q) = %v, want %v", test.key, got, test.expected)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = FormatJSON
	cfg.Writer = &buf

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("saved", "field", "row-3", "token", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "saved" {
		t.Errorf("expected msg saved, got %v", entry["msg"])
	}
	if entry["field"] != "row-3" {
		t.Errorf("expected field row-3, got %v", entry["field"])
	}
	if entry["token"] != "[REDACTED]" {
		t.Errorf("expected token to be redacted, got %v", entry["token"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = LevelWarn
	cfg.Writer = &buf

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info entry should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn entry missing: %q", out)
	}
}

func TestFileOutput(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = filepath.Join(tmpDir, "logs", "mledit.log")

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("written to file")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestFileOutputRequiresPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = ""

	if _, err := New(cfg); err == nil {
		t.Error("expected error for file output without a path")
	}
}

func TestRotate(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.Compress = false
	cfg.FilePath = filepath.Join(tmpDir, "mledit.log")

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer logger.Close()

	logger.Info("before rotation")
	if err := logger.Rotate(); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	logger.Info("after rotation")

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) < 2 {
		t.Errorf("expected a backup file after rotation, found %d entries", len(entries))
	}
}
