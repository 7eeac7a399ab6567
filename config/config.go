// Package config loads fluxnodes configuration from YAML with
// environment overrides.
//
// Precedence: defaults, then the YAML file, then environment variables.
// The API key is a secret and is normally supplied via LABS_API_KEY
// rather than written into a file.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/fluxnodes/types"
)

// Environment variable names recognized by Load.
const (
	EnvAPIKey    = "LABS_API_KEY"
	EnvBaseURL   = "LABS_BASE_URL"
	EnvRedisAddr = "LABS_REDIS_ADDR"
)

// Duration parses YAML values like "45s" or "8m" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return types.Errorf(types.ErrConfig, "invalid duration %q", s)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete fluxnodes configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Cache     CacheConfig     `yaml:"cache"`
	Journal   JournalConfig   `yaml:"journal"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Log       LogConfig       `yaml:"log"`
}

// APIConfig configures the Labs API client.
type APIConfig struct {
	BaseURL string   `yaml:"base_url"`
	Key     string   `yaml:"key"`
	Timeout Duration `yaml:"timeout"`
}

// CacheConfig configures the optional Redis result cache.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

// JournalConfig configures the optional generation history journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ArtifactsConfig configures artifact storage.
type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: "https://api.bfl.ai",
			Timeout: Duration(30 * time.Second),
		},
		Cache: CacheConfig{
			Addr: "localhost:6379",
			TTL:  Duration(8 * time.Minute),
		},
		Journal: JournalConfig{
			Path: "fluxnodes.db",
		},
		Artifacts: ArtifactsConfig{
			Dir: "artifacts",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, types.NewError(types.ErrConfig, "failed to read config file").WithCause(err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, types.NewError(types.ErrConfig, "failed to parse config file").WithCause(err)
		}
	}

	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.API.Key = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Cache.Addr = v
	}

	return &cfg, nil
}

// Validate checks that the configuration can actually submit jobs.
func (c *Config) Validate() error {
	if c.API.Key == "" {
		return types.Errorf(types.ErrConfig,
			"Labs API key not found; set the %s environment variable or api.key in the config file", EnvAPIKey)
	}
	return nil
}
