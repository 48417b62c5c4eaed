// Package config handles application configuration from environment variables
// and an optional YAML file
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Port       string `yaml:"port" env:"PORT"`
	BaseURL    string `yaml:"base_url" env:"BASE_URL"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat  string `yaml:"log_format" env:"LOG_FORMAT"`
	AdminToken string `yaml:"admin_token" env:"ADMIN_TOKEN"`

	Groq   GroqConfig   `yaml:"groq"`
	OpenAI OpenAIConfig `yaml:"openai"`
	Cache  CacheConfig  `yaml:"cache"`
	Worker WorkerConfig `yaml:"worker"`

	// PromptPath points to a custom system prompt for text answers
	PromptPath string `yaml:"prompt_path" env:"ASSISTANT_PROMPT_PATH"`
}

// GroqConfig holds the text generation provider configuration
type GroqConfig struct {
	APIKey  string `yaml:"api_key" env:"GROQ_API_KEY"`
	BaseURL string `yaml:"base_url" env:"GROQ_BASE_URL"`
	Model   string `yaml:"model" env:"GROQ_MODEL"`
}

// OpenAIConfig holds the image analysis provider configuration
type OpenAIConfig struct {
	APIKey      string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL     string `yaml:"base_url" env:"OPENAI_BASE_URL"`
	VisionModel string `yaml:"vision_model" env:"OPENAI_VISION_MODEL"`
}

// CacheConfig controls the response cache and its sweepers
type CacheConfig struct {
	TTL                  time.Duration `yaml:"ttl" env:"CACHE_TTL"`
	ExpireInterval       time.Duration `yaml:"expire_interval" env:"CACHE_EXPIRE_INTERVAL"`
	RefreshInterval      time.Duration `yaml:"refresh_interval" env:"CACHE_REFRESH_INTERVAL"`
	MaintenanceEnabled   bool          `yaml:"maintenance_enabled" env:"CACHE_MAINTENANCE_ENABLED"`
	MaintenanceInterval  time.Duration `yaml:"maintenance_interval" env:"CACHE_MAINTENANCE_INTERVAL"`
	MaintenanceThreshold time.Duration `yaml:"maintenance_threshold" env:"CACHE_MAINTENANCE_THRESHOLD"`
	MaxEntries           int           `yaml:"max_entries" env:"CACHE_MAX_ENTRIES"`
	KeyFingerprint       string        `yaml:"key_fingerprint" env:"CACHE_KEY_FINGERPRINT"`
}

// WorkerConfig holds the scheduled maintenance worker configuration
type WorkerConfig struct {
	RedisAddr       string `yaml:"redis_addr" env:"REDIS_ADDR"`
	MaintenanceCron string `yaml:"maintenance_cron" env:"MAINTENANCE_CRON"`
	APIURL          string `yaml:"api_url" env:"API_URL"`
}

// Default returns a Config with the reference settings
func Default() *Config {
	return &Config{
		Port:      "8080",
		BaseURL:   "http://localhost:8080",
		LogLevel:  "info",
		LogFormat: "json",
		Groq: GroqConfig{
			BaseURL: "https://api.groq.com/openai",
			Model:   "llama3-8b-8192",
		},
		OpenAI: OpenAIConfig{
			BaseURL:     "https://api.openai.com",
			VisionModel: "gpt-4-vision-preview",
		},
		Cache: CacheConfig{
			TTL:                  7 * 24 * time.Hour,
			ExpireInterval:       time.Hour,
			RefreshInterval:      12 * time.Hour,
			MaintenanceInterval:  12 * time.Hour,
			MaintenanceThreshold: 5 * 24 * time.Hour,
			KeyFingerprint:       "prefix",
		},
		Worker: WorkerConfig{
			RedisAddr:       "localhost:6379",
			MaintenanceCron: "@every 12h",
			APIURL:          "http://localhost:8080",
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if any) and finally environment variables
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// HasGroq returns true if text generation is configured
func (c *Config) HasGroq() bool {
	return c.Groq.APIKey != ""
}

// HasOpenAI returns true if image analysis is configured
func (c *Config) HasOpenAI() bool {
	return c.OpenAI.APIKey != ""
}

// MissingKeys lists the provider API keys that are not set
func (c *Config) MissingKeys() []string {
	var missing []string
	if !c.HasGroq() {
		missing = append(missing, "GROQ_API_KEY")
	}
	if !c.HasOpenAI() {
		missing = append(missing, "OPENAI_API_KEY")
	}
	return missing
}

// Validate ensures cache timings are usable
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.Cache.TTL))
	}
	if c.Cache.ExpireInterval <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_EXPIRE_INTERVAL must be positive, got %s", c.Cache.ExpireInterval))
	}
	if c.Cache.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_REFRESH_INTERVAL must be positive, got %s", c.Cache.RefreshInterval))
	}
	if c.Cache.MaintenanceEnabled && c.Cache.MaintenanceInterval <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_MAINTENANCE_INTERVAL must be positive, got %s", c.Cache.MaintenanceInterval))
	}
	if c.Cache.MaintenanceThreshold <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_MAINTENANCE_THRESHOLD must be positive, got %s", c.Cache.MaintenanceThreshold))
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("CACHE_MAX_ENTRIES must not be negative, got %d", c.Cache.MaxEntries))
	}
	switch c.Cache.KeyFingerprint {
	case "", "prefix", "xxhash":
	default:
		errs = append(errs, fmt.Errorf("CACHE_KEY_FINGERPRINT must be prefix or xxhash, got %q", c.Cache.KeyFingerprint))
	}
	return errors.Join(errs...)
}
