package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Make sure no ambient config file or env leaks into the test.
	t.Setenv("CHATHUB_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	for _, key := range []string{
		"CHATHUB_PROVIDER", "CHATHUB_MODEL", "CHATHUB_TEMPERATURE",
		"CHATHUB_CONTEXT_WINDOW", "CHATHUB_SERVER_PORT", "CHATHUB_ARCHIVE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Provider != ProviderOllama {
		t.Errorf("Provider = %q, want %q", cfg.Provider, ProviderOllama)
	}
	if cfg.ChatModel != "gemma3:4b" {
		t.Errorf("ChatModel = %q, want gemma3:4b", cfg.ChatModel)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Temperature)
	}
	if cfg.ContextWindow != 10 {
		t.Errorf("ContextWindow = %d, want 10", cfg.ContextWindow)
	}
	if cfg.RequestTimeout != 2*time.Minute {
		t.Errorf("RequestTimeout = %v, want 2m", cfg.RequestTimeout)
	}
	if cfg.ArchiveEnabled {
		t.Error("ArchiveEnabled should default to false")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CHATHUB_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CHATHUB_MODEL", "llama2:7b")
	t.Setenv("CHATHUB_TEMPERATURE", "0.2")
	t.Setenv("CHATHUB_CONTEXT_WINDOW", "5")
	t.Setenv("CHATHUB_ARCHIVE", "true")

	cfg := Load()

	if cfg.ChatModel != "llama2:7b" {
		t.Errorf("ChatModel = %q, want llama2:7b", cfg.ChatModel)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", cfg.Temperature)
	}
	if cfg.ContextWindow != 5 {
		t.Errorf("ContextWindow = %d, want 5", cfg.ContextWindow)
	}
	if !cfg.ArchiveEnabled {
		t.Error("ArchiveEnabled should be true")
	}
}

func TestLoadFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "model: mixtral:8x7b\ntemperature: 0.9\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CHATHUB_CONFIG_FILE", path)
	t.Setenv("CHATHUB_MODEL", "gemma3:4b")
	t.Setenv("CHATHUB_SERVER_PORT", "9999")

	cfg := Load()

	// File keys win over env; absent file keys keep env values.
	if cfg.ChatModel != "mixtral:8x7b" {
		t.Errorf("ChatModel = %q, want mixtral:8x7b", cfg.ChatModel)
	}
	if cfg.Temperature != 0.9 {
		t.Errorf("Temperature = %v, want 0.9", cfg.Temperature)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.ServerPort != "9999" {
		t.Errorf("ServerPort = %q, want 9999", cfg.ServerPort)
	}
}

func TestLoadBrokenFileIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(":\n\t- not yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATHUB_CONFIG_FILE", path)
	t.Setenv("CHATHUB_MODEL", "gemma3:4b")

	cfg := Load()
	if cfg.ChatModel != "gemma3:4b" {
		t.Errorf("ChatModel = %q, want env value to survive broken file", cfg.ChatModel)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("turn complete", "model", "gemma3:4b")

	if stderr.Len() == 0 {
		t.Error("expected text output on stderr writer")
	}

	var record map[string]any
	if err := json.Unmarshal(file.Bytes(), &record); err != nil {
		t.Fatalf("file output is not JSON: %v", err)
	}
	if record["msg"] != "turn complete" {
		t.Errorf("msg = %v, want 'turn complete'", record["msg"])
	}
}
