package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/gridlink-io/gridlink-engine/pkg/models"
)

// DefaultConfigFile is the YAML config read when present. Environment
// variables always override YAML values; secrets (the access token) must only
// come from environment variables.
const DefaultConfigFile = "config.yaml"

// Config holds all configuration for gridlink-engine.
type Config struct {
	// Env selects execution context. "local" loosens nothing except logging
	// format, but it does make saved-view references invalid (such view ids
	// are known not to exist against a local sandbox).
	Env     string `yaml:"env" env:"GRIDLINK_ENV" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	Dataverse DataverseConfig `yaml:"dataverse"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Export    ExportConfig    `yaml:"export"`
}

// DataverseConfig holds the Web API endpoint settings.
type DataverseConfig struct {
	// BaseURL is the Web API root, e.g. https://org.crm.dynamics.com/api/data/v9.2
	BaseURL string `yaml:"base_url" env:"DATAVERSE_BASE_URL" env-default:""`

	// AccessToken is attached as a bearer token. Acquiring and refreshing it
	// is the caller's concern; this subsystem only forwards it.
	AccessToken string `yaml:"-" env:"DATAVERSE_ACCESS_TOKEN"` // Secret - not in YAML

	// TimeoutSeconds bounds each HTTP call. Cancellation beyond this is the
	// transport's responsibility, not the engine's.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"DATAVERSE_TIMEOUT_SECONDS" env-default:"30"`
}

// RateLimitConfig tunes the outbound call throttle.
type RateLimitConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" env:"RATE_LIMIT_MAX_CONCURRENT" env-default:"5"`
	MinDelayMs    int `yaml:"min_delay_ms" env:"RATE_LIMIT_MIN_DELAY_MS" env-default:"200"`
}

// MinDelay returns the batch spacing as a duration.
func (c *RateLimitConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMs) * time.Millisecond
}

// ExportConfig controls the discovered-mapping export.
type ExportConfig struct {
	// ConfidenceThreshold is the minimum confidence a relationship needs to
	// be included in the export ("low", "medium", or "high").
	ConfidenceThreshold string `yaml:"confidence_threshold" env:"EXPORT_CONFIDENCE_THRESHOLD" env-default:"medium"`
	Path                string `yaml:"path" env:"EXPORT_PATH" env-default:"relationship-mappings.yaml"`
}

// Threshold returns the parsed confidence threshold.
func (c *ExportConfig) Threshold() models.Confidence {
	return models.Confidence(strings.ToLower(c.ConfidenceThreshold))
}

// Load reads configuration from config.yaml (when present) with environment
// variable overrides. The version parameter is injected at build time and set
// on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(DefaultConfigFile); err == nil {
		if err := cleanenv.ReadConfig(DefaultConfigFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", DefaultConfigFile, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Dataverse.BaseURL = strings.TrimRight(cfg.Dataverse.BaseURL, "/")

	return cfg, nil
}

func (c *Config) validate() error {
	if !models.IsValidConfidence(c.Export.Threshold()) {
		return fmt.Errorf("export confidence_threshold must be one of low, medium, high; got %q", c.Export.ConfidenceThreshold)
	}
	if c.RateLimit.MaxConcurrent <= 0 {
		return fmt.Errorf("rate_limit max_concurrent must be positive; got %d", c.RateLimit.MaxConcurrent)
	}
	if c.Dataverse.TimeoutSeconds <= 0 {
		return fmt.Errorf("dataverse timeout_seconds must be positive; got %d", c.Dataverse.TimeoutSeconds)
	}
	return nil
}

// IsLocal reports whether the engine runs against a local sandbox.
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

// Timeout returns the per-call HTTP timeout.
func (c *DataverseConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
