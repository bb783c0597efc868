package tarotbar

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration. It is read once at startup
// and never reloaded.
type Config struct {
	Provider   ProviderConfig   `yaml:"provider"`
	Generation GenerationConfig `yaml:"generation"`
	Quota      QuotaConfig      `yaml:"quota"`
	Storage    StorageConfig    `yaml:"storage"`
}

// ProviderConfig configures the LLM provider account and sampling.
type ProviderConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// GenerationConfig bounds the retry loop of a generation call.
type GenerationConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffCap     time.Duration `yaml:"backoff_cap"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// UnmarshalYAML decodes durations from strings like "2s", which
// yaml.v3 does not handle for time.Duration on its own.
func (g *GenerationConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxAttempts    int    `yaml:"max_attempts"`
		BackoffBase    string `yaml:"backoff_base"`
		BackoffCap     string `yaml:"backoff_cap"`
		AttemptTimeout string `yaml:"attempt_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parse := func(name, s string) (time.Duration, error) {
		if s == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("tarotbar: config: generation.%s: %w", name, err)
		}
		return d, nil
	}

	var err error
	g.MaxAttempts = raw.MaxAttempts
	if g.BackoffBase, err = parse("backoff_base", raw.BackoffBase); err != nil {
		return err
	}
	if g.BackoffCap, err = parse("backoff_cap", raw.BackoffCap); err != nil {
		return err
	}
	if g.AttemptTimeout, err = parse("attempt_timeout", raw.AttemptTimeout); err != nil {
		return err
	}
	return nil
}

// QuotaConfig configures the free-reading quota.
type QuotaConfig struct {
	FreeLimit      int     `yaml:"free_limit"`
	UnlimitedUsers []int64 `yaml:"unlimited_users"`
}

// StorageConfig points at the persisted state files.
type StorageConfig struct {
	LedgerPath  string `yaml:"ledger_path"`
	ArchivePath string `yaml:"archive_path"`
}

// Defaults applied by LoadConfig when fields are omitted.
const (
	DefaultModel          = "gpt-4-turbo"
	DefaultMaxTokens      = 2000
	DefaultTemperature    = 0.7
	DefaultMaxAttempts    = 3
	DefaultBackoffBase    = 2 * time.Second
	DefaultBackoffCap     = 10 * time.Second
	DefaultAttemptTimeout = 30 * time.Second
)

// LoadConfig reads and parses a YAML config file.
// Environment variables in the format ${VAR} are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("tarotbar: read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("tarotbar: parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider.Model == "" {
		c.Provider.Model = DefaultModel
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = DefaultMaxTokens
	}
	if c.Provider.Temperature == 0 {
		c.Provider.Temperature = DefaultTemperature
	}
	if c.Generation.MaxAttempts == 0 {
		c.Generation.MaxAttempts = DefaultMaxAttempts
	}
	if c.Generation.BackoffBase == 0 {
		c.Generation.BackoffBase = DefaultBackoffBase
	}
	if c.Generation.BackoffCap == 0 {
		c.Generation.BackoffCap = DefaultBackoffCap
	}
	if c.Generation.AttemptTimeout == 0 {
		c.Generation.AttemptTimeout = DefaultAttemptTimeout
	}
	// Quota.FreeLimit is not defaulted: zero is a meaningful value
	// (no free readings for users outside the allow-list).
}

// Validate checks the config for required fields and consistency.
func (c Config) Validate() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("tarotbar: config: provider.api_key is required")
	}
	if c.Provider.Model == "" {
		return fmt.Errorf("tarotbar: config: provider.model is required")
	}
	if c.Provider.MaxTokens < 1 {
		return fmt.Errorf("tarotbar: config: provider.max_tokens must be positive, got %d", c.Provider.MaxTokens)
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return fmt.Errorf("tarotbar: config: provider.temperature must be in [0, 2], got %g", c.Provider.Temperature)
	}
	if c.Generation.MaxAttempts < 1 {
		return fmt.Errorf("tarotbar: config: generation.max_attempts must be at least 1, got %d", c.Generation.MaxAttempts)
	}
	if c.Generation.BackoffBase <= 0 {
		return fmt.Errorf("tarotbar: config: generation.backoff_base must be positive")
	}
	if c.Generation.BackoffCap < c.Generation.BackoffBase {
		return fmt.Errorf("tarotbar: config: generation.backoff_cap must be >= backoff_base")
	}
	if c.Quota.FreeLimit < 0 {
		return fmt.Errorf("tarotbar: config: quota.free_limit must be non-negative, got %d", c.Quota.FreeLimit)
	}
	if c.Storage.LedgerPath == "" {
		return fmt.Errorf("tarotbar: config: storage.ledger_path is required")
	}
	return nil
}
