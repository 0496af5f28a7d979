// Package config loads service configuration from environment variables and
// an optional YAML file.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// PlaceholderAPIKey is the sentinel written into generated configs before a
// real credential is supplied. Callers that would make live completion calls
// must detect it and short-circuit.
const PlaceholderAPIKey = "your-api-key-here"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Anthropic AnthropicConfig `koanf:"anthropic"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Chatbot   ChatbotConfig   `koanf:"chatbot"`
	Admin     AdminConfig     `koanf:"admin"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type AnthropicConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
	// RequestTimeoutSeconds bounds each individual completion attempt.
	RequestTimeoutSeconds int `koanf:"request_timeout_seconds"`
}

type RateLimitConfig struct {
	// MaxCalls is the ceiling of completion calls admitted in any trailing
	// window.
	MaxCalls      int `koanf:"max_calls"`
	WindowSeconds int `koanf:"window_seconds"`
}

type ChatbotConfig struct {
	// GroundingEnabled controls whether answers are verified against their
	// context before being recorded as answered.
	GroundingEnabled bool `koanf:"grounding_enabled"`
	// MaxContextTokens truncates oversized context before prompting.
	MaxContextTokens int `koanf:"max_context_tokens"`
}

type AdminConfig struct {
	// APIKeyHash is the sha256 hex digest of the admin key guarding the
	// destructive reset endpoint. Empty disables the endpoint.
	APIKeyHash string `koanf:"api_key_hash"`
}

// HasAPIKey reports whether a usable completion-service credential is
// configured.
func (c *Config) HasAPIKey() bool {
	return c.Anthropic.APIKey != "" && c.Anthropic.APIKey != PlaceholderAPIKey
}

// Load reads configuration from config.yaml (if present) and ONBOARD_-prefixed
// environment variables, with env taking precedence.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile reads configuration from the given YAML file (if present) and the
// environment.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	// Default values
	k.Set("server.port", 8080)
	k.Set("storage.sqlite.path", "./data/onboardbot.db")
	k.Set("anthropic.api_key", PlaceholderAPIKey)
	k.Set("anthropic.model", "claude-3-5-haiku-latest")
	k.Set("anthropic.request_timeout_seconds", 60)
	k.Set("rate_limit.max_calls", 45)
	k.Set("rate_limit.window_seconds", 60)
	k.Set("chatbot.grounding_enabled", true)
	k.Set("chatbot.max_context_tokens", 6000)

	// Optional config file
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables override file values. Double underscore separates
	// path segments so single underscores survive inside key names, e.g.
	// ONBOARD_ANTHROPIC__API_KEY maps to anthropic.api_key.
	if err := k.Load(env.Provider("ONBOARD_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "ONBOARD_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// ANTHROPIC_API_KEY is honored without the prefix for parity with other
	// tooling that reads the conventional variable name.
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		k.Set("anthropic.api_key", key)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
