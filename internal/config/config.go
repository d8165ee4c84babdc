// Package config loads chathub configuration from the environment with an
// optional YAML file overlay.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider selects the chat completion backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// Chat completion backend
	Provider        Provider
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	ChatModel       string
	Temperature     float64
	ContextWindow   int
	RequestTimeout  time.Duration

	// HTTP server
	ServerPort string
	BaseURL    string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Optional history archive (SurrealDB)
	ArchiveEnabled     bool
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string
}

// Load reads configuration from environment variables, then overlays values
// from the YAML config file if one exists (CHATHUB_CONFIG_FILE, falling back
// to ~/.config/chathub/config.yaml).
func Load() Config {
	cfg := Config{
		Provider:        Provider(getEnv("CHATHUB_PROVIDER", string(ProviderOllama))),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		ChatModel:       getEnv("CHATHUB_MODEL", "gemma3:4b"),
		Temperature:     getEnvFloat("CHATHUB_TEMPERATURE", 0.7),
		ContextWindow:   getEnvInt("CHATHUB_CONTEXT_WINDOW", 10),
		RequestTimeout:  getEnvDuration("CHATHUB_REQUEST_TIMEOUT", 2*time.Minute),

		ServerPort: getEnv("CHATHUB_SERVER_PORT", "8585"),
		BaseURL:    getEnv("CHATHUB_BASE_URL", "http://localhost:8585"),

		LogFile:  getEnv("CHATHUB_LOG_FILE", filepath.Join(os.TempDir(), "chathub.log")),
		LogLevel: parseLogLevel(getEnv("CHATHUB_LOG_LEVEL", "INFO")),

		ArchiveEnabled:     getEnv("CHATHUB_ARCHIVE", "false") == "true",
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "chathub"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "history"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),
	}

	if path := configFilePath(); path != "" {
		// A broken config file must not take the process down; env values
		// remain in effect.
		if err := cfg.applyFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring config file %s: %v\n", path, err)
		}
	}

	return cfg
}

// fileConfig mirrors the YAML config file. Pointer fields so that only keys
// present in the file override the environment.
type fileConfig struct {
	Provider      *string  `yaml:"provider"`
	OllamaHost    *string  `yaml:"ollama_host"`
	Model         *string  `yaml:"model"`
	Temperature   *float64 `yaml:"temperature"`
	ContextWindow *int     `yaml:"context_window"`

	ServerPort *string `yaml:"server_port"`
	BaseURL    *string `yaml:"base_url"`

	LogFile  *string `yaml:"log_file"`
	LogLevel *string `yaml:"log_level"`

	Archive *bool `yaml:"archive"`
}

func configFilePath() string {
	if path := os.Getenv("CHATHUB_CONFIG_FILE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "chathub", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.Provider != nil {
		c.Provider = Provider(*fc.Provider)
	}
	if fc.OllamaHost != nil {
		c.OllamaHost = *fc.OllamaHost
	}
	if fc.Model != nil {
		c.ChatModel = *fc.Model
	}
	if fc.Temperature != nil {
		c.Temperature = *fc.Temperature
	}
	if fc.ContextWindow != nil {
		c.ContextWindow = *fc.ContextWindow
	}
	if fc.ServerPort != nil {
		c.ServerPort = *fc.ServerPort
	}
	if fc.BaseURL != nil {
		c.BaseURL = *fc.BaseURL
	}
	if fc.LogFile != nil {
		c.LogFile = *fc.LogFile
	}
	if fc.LogLevel != nil {
		c.LogLevel = parseLogLevel(*fc.LogLevel)
	}
	if fc.Archive != nil {
		c.ArchiveEnabled = *fc.Archive
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
