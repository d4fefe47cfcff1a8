// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds the settings the ADS client needs for network requests.
type HTTPConfig struct {
	// BaseURL is the ADS API root (e.g. "https://api.adsabs.harvard.edu/v1").
	BaseURL string `json:"api_base_url" yaml:"api_base_url" mapstructure:"api_base_url"`

	// Timeout is the per-request socket timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the retry budget for 429 and 5xx responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryBackoff is the base delay of the exponential backoff (default 0.5s).
	RetryBackoff time.Duration `json:"retry_backoff_factor" yaml:"retry_backoff_factor" mapstructure:"retry_backoff_factor"`

	// RateLimitDelay is the minimum spacing between requests (default 100ms).
	RateLimitDelay time.Duration `json:"rate_limit_delay" yaml:"rate_limit_delay" mapstructure:"rate_limit_delay"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`

	// Format is "console" or "json".
	Format string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`

	// File, when set, receives a rotated copy of the log.
	File string `json:"log_file,omitempty" yaml:"log_file,omitempty" mapstructure:"log_file"`
}

// Config is the resolved configuration of the CLI.
type Config struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
	LogConfig  `yaml:",inline" mapstructure:",squash"`

	// APIKey is the ADS bearer token.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// RowsPerRequest is the default page size (default 100).
	RowsPerRequest int `json:"rows_per_request" yaml:"rows_per_request" mapstructure:"rows_per_request"`

	// OutputFormat is the default export format (default csv).
	OutputFormat string `json:"output_format" yaml:"output_format" mapstructure:"output_format"`

	// ConfigFile is the YAML file the values were read from, if any.
	ConfigFile string `json:"-" yaml:"-" mapstructure:"-"`
}
