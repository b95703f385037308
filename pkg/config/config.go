// Package config loads hukum's YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/hukum/pkg/schedule"
)

// Extractor kinds.
const (
	ExtractorLocal  = "local"
	ExtractorGemini = "gemini"
)

// Store kinds.
const (
	StoreFile      = "file"
	StoreFirestore = "firestore"
)

// DefaultAPIKeyEnv is the environment variable holding the Gemini API key.
const DefaultAPIKeyEnv = "GEMINI_API_KEY"

// Config is the full runtime configuration.
type Config struct {
	Budget     BudgetConfig     `yaml:"budget"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Store      StoreConfig      `yaml:"store"`
	Notify     NotifyConfig     `yaml:"notify"`
	Validation ValidationConfig `yaml:"validation"`
	Log        LogConfig        `yaml:"log"`
}

// BudgetConfig sets the run limit and the cost model used for estimates.
type BudgetConfig struct {
	Limit float64             `yaml:"limit"`
	Cost  schedule.LinearCost `yaml:"cost"`
}

// SchedulerConfig controls fragment planning and dispatch.
type SchedulerConfig struct {
	// Strategy is "sections", "single", "chars:N", "words:N" or
	// "paragraphs:N".
	Strategy    string  `yaml:"strategy"`
	Concurrency int     `yaml:"concurrency"`
	RateLimit   float64 `yaml:"rate_limit"`
	Burst       int     `yaml:"burst"`
	// InFlight is "finish" or "abandon".
	InFlight string `yaml:"in_flight"`
}

// ExtractorConfig selects and configures the extractor.
type ExtractorConfig struct {
	Kind      string `yaml:"kind"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	// APIKey is never read from the file; see Config.APIKey.
	APIKey          string  `yaml:"-"`
	InputPerToken   float64 `yaml:"input_per_token"`
	OutputPerToken  float64 `yaml:"output_per_token"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// StoreConfig selects where run snapshots go.
type StoreConfig struct {
	Kind            string `yaml:"kind"`
	Dir             string `yaml:"dir"`
	Project         string `yaml:"project"`
	Collection      string `yaml:"collection"`
	CredentialsFile string `yaml:"credentials_file"`
}

// NotifyConfig enables Pub/Sub event publishing when Topic is set.
type NotifyConfig struct {
	Project         string `yaml:"project"`
	Topic           string `yaml:"topic"`
	CredentialsFile string `yaml:"credentials_file"`
}

// ValidationConfig points at an optional validation profile.
type ValidationConfig struct {
	Profile string `yaml:"profile"`
}

// LogConfig sets the log level and format ("json" or "text").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration: local extraction, a budget of
// 1.0 under the default cost model, sequential section fragments and file
// snapshots under .hukum.
func Default() *Config {
	return &Config{
		Budget: BudgetConfig{Limit: 1.0, Cost: schedule.DefaultCost},
		Scheduler: SchedulerConfig{
			Strategy:    schedule.StrategySections,
			Concurrency: 1,
			Burst:       1,
			InFlight:    string(schedule.PolicyFinish),
		},
		Extractor: ExtractorConfig{
			Kind:            ExtractorLocal,
			Model:           "gemini-2.5-flash",
			APIKeyEnv:       DefaultAPIKeyEnv,
			InputPerToken:   0.0000003,
			OutputPerToken:  0.0000025,
			MaxOutputTokens: 8192,
		},
		Store: StoreConfig{Kind: StoreFile, Dir: ".hukum", Collection: "hukum_runs"},
		Log:   LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// The API key is then taken from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.Extractor.APIKey = os.Getenv(cfg.Extractor.APIKeyEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Budget.Limit < 0 {
		return fmt.Errorf("budget.limit must not be negative, got %v", c.Budget.Limit)
	}
	if _, err := schedule.Plan("", c.Scheduler.Strategy); err != nil {
		return fmt.Errorf("scheduler.strategy: %w", err)
	}
	if _, err := schedule.ParseInFlightPolicy(c.Scheduler.InFlight); err != nil {
		return fmt.Errorf("scheduler.in_flight: %w", err)
	}
	switch c.Extractor.Kind {
	case ExtractorLocal, ExtractorGemini:
	default:
		return fmt.Errorf("extractor.kind must be %s or %s, got %q", ExtractorLocal, ExtractorGemini, c.Extractor.Kind)
	}
	switch c.Store.Kind {
	case StoreFile:
	case StoreFirestore:
		if c.Store.Project == "" {
			return fmt.Errorf("store.project is required for the firestore store")
		}
	default:
		return fmt.Errorf("store.kind must be %s or %s, got %q", StoreFile, StoreFirestore, c.Store.Kind)
	}
	if c.Notify.Topic != "" && c.Notify.Project == "" {
		return fmt.Errorf("notify.project is required when notify.topic is set")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts "debug", "info", "warn" or "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
