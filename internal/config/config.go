// Package config handles application configuration using Viper.
// Viper supports YAML files, environment variables, and defaults — merged in priority order.
// Go convention: configuration is loaded into structs, not accessed as raw key-value pairs.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct. Nested structs organize related settings.
// `mapstructure` tags tell Viper how to map YAML/env keys to struct fields.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	CORS      CORSConfig      `mapstructure:"cors"`
	ImageAPI  ImageAPIConfig  `mapstructure:"image_api"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	ExportDir    string `mapstructure:"export_dir"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ImageAPIConfig selects and configures the remote generative-image provider.
// Exactly one provider is active per process; there is no fallback chain.
type ImageAPIConfig struct {
	// Provider is "gemini" or "openai".
	Provider string `mapstructure:"provider"`
	// APIKey is the externally configured credential. The placeholder
	// sentinel is treated as absent — see the credential package for the
	// full resolution order.
	APIKey             string `mapstructure:"api_key"`
	GeminiModel        string `mapstructure:"gemini_model"`
	OpenAIModel        string `mapstructure:"openai_model"`
	CallTimeoutSeconds int    `mapstructure:"call_timeout_seconds"`
	EditorURL          string `mapstructure:"editor_url"`
}

// LimitsConfig holds the quota and pacing constants for remote calls.
// The defaults mirror the hosted API's free-tier budget: 1000 calls per day,
// and a 10 second gap between consecutive generation calls.
type LimitsConfig struct {
	DailyLimit      int `mapstructure:"daily_limit"`
	CooldownSeconds int `mapstructure:"cooldown_seconds"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
// In Go, functions return errors as the last return value — callers must check them.
// This pattern replaces try/catch: if err != nil { handle it }.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults — these apply when neither file nor env provides a value
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.database_path", "./storage/angle-studio.db")
	v.SetDefault("storage.export_dir", "./storage/exports")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("image_api.provider", "gemini")
	v.SetDefault("image_api.gemini_model", "gemini-2.5-flash-image")
	v.SetDefault("image_api.openai_model", "gpt-image-1")
	v.SetDefault("image_api.call_timeout_seconds", 150)
	v.SetDefault("image_api.editor_url", "https://www.canva.com/")
	v.SetDefault("limits.daily_limit", 1000)
	v.SetDefault("limits.cooldown_seconds", 10)
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("log.level", "info")

	// Read from YAML config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Read config file (ignore "not found" — defaults + env are enough)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables override everything.
	// ANGLE_ prefix + nested keys: ANGLE_SERVER_PORT=9090 → server.port=9090
	v.SetEnvPrefix("ANGLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal into our Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Address returns the listen address string like "0.0.0.0:8080".
// This is a method on ServerConfig — Go attaches methods to types via receiver syntax.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CallTimeout returns the per-remote-call timeout as a time.Duration.
func (i ImageAPIConfig) CallTimeout() time.Duration {
	return time.Duration(i.CallTimeoutSeconds) * time.Second
}

// Cooldown returns the inter-generation cooldown as a time.Duration.
func (l LimitsConfig) Cooldown() time.Duration {
	return time.Duration(l.CooldownSeconds) * time.Second
}
