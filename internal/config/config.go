// Package config loads environment configuration and the tuning file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// ErrNoProviderConfigured is returned when no language-model key is set.
var ErrNoProviderConfigured = errors.New("set at least one of OPENROUTER_API_KEY, GROQ_API_KEY, OPENAI_API_KEY")

// Config holds everything read from the environment.
type Config struct {
	// Language-model providers, tried in this order
	OpenRouterAPIKey       string   `env:"OPENROUTER_API_KEY" json:"-"`
	OpenRouterModel        string   `env:"OPENROUTER_MODEL, default=z-ai/glm-4.5-air:free" json:"openrouter_model"`
	OpenRouterBaseURL      string   `env:"OPENROUTER_BASE_URL, default=https://openrouter.ai" json:"openrouter_base_url"`
	OpenRouterAllowedHosts []string `env:"OPENROUTER_ALLOWED_HOSTS" json:"openrouter_allowed_hosts,omitempty"`
	GroqAPIKey             string   `env:"GROQ_API_KEY" json:"-"`
	GroqModel              string   `env:"GROQ_MODEL, default=llama-3.3-70b-versatile" json:"groq_model"`
	OpenAIAPIKey           string   `env:"OPENAI_API_KEY" json:"-"`
	OpenAIModel            string   `env:"OPENAI_MODEL, default=gpt-4o-mini" json:"openai_model"`
	OpenAIBaseURL          string   `env:"OPENAI_BASE_URL" json:"openai_base_url,omitempty"`

	// Local tools
	CacheDir     string `env:"CACHE_DIR, default=.cache" json:"cache_dir"`
	FFmpegPath   string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath  string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	WhisperBin   string `env:"WHISPER_BIN, default=.cache/bin/whisper.cpp" json:"whisper_bin"`
	WhisperModel string `env:"WHISPER_MODEL, default=.cache/models/ggml-base.bin" json:"whisper_model"`

	// Optional run persistence
	DatabaseURL string `env:"DATABASE_URL" json:"-"`

	// Optional S3 upload
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"`

	// Logging
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`
}

// Load reads the process environment.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that at least one provider can be built.
func (c *Config) Validate() error {
	if c.OpenRouterAPIKey == "" && c.GroqAPIKey == "" && c.OpenAIAPIKey == "" {
		return ErrNoProviderConfigured
	}
	return nil
}

func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// NewLogger builds a text or JSON slog logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}
	if strings.ToLower(c.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// String masks secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{OpenRouter: %s, Groq: %s, OpenAI: %s, CacheDir: %s, Postgres: %t, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		providerState(c.OpenRouterAPIKey, c.OpenRouterModel),
		providerState(c.GroqAPIKey, c.GroqModel),
		providerState(c.OpenAIAPIKey, c.OpenAIModel),
		c.CacheDir,
		c.PostgresEnabled(),
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

func providerState(key, model string) string {
	if key == "" {
		return "off"
	}
	return model
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
