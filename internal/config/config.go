// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves CLI configuration from, highest priority first:
// explicit overrides (command-line flags), NASA_ADS_* environment
// variables (after loading .env), a YAML file, the .secrets directory
// (API key only), and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/nasa-ads/internal/ads"
	"github.com/pdiddy/nasa-ads/internal/httputil"
	"github.com/pdiddy/nasa-ads/internal/ratelimit"
	"github.com/pdiddy/nasa-ads/internal/secrets"
	"github.com/pdiddy/nasa-ads/internal/validate"
	"github.com/pdiddy/nasa-ads/pkg/types"
)

// EnvPrefix prefixes every configuration environment variable
// (NASA_ADS_API_KEY, NASA_ADS_TIMEOUT, ...).
const EnvPrefix = "NASA_ADS"

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "nasa_ads.yaml"

// Keys recognized in files, environment, and overrides.
const (
	KeyAPIKey         = "api_key"
	KeyBaseURL        = "api_base_url"
	KeyTimeout        = "timeout"
	KeyMaxRetries     = "max_retries"
	KeyRetryBackoff   = "retry_backoff_factor"
	KeyRateLimitDelay = "rate_limit_delay"
	KeyRowsPerRequest = "rows_per_request"
	KeyOutputFormat   = "output_format"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	KeyLogFile        = "log_file"
)

// Defaults returns the built-in value of every key.
func Defaults() map[string]any {
	return map[string]any{
		KeyAPIKey:         "",
		KeyBaseURL:        ads.DefaultBaseURL,
		KeyTimeout:        ads.DefaultTimeout,
		KeyMaxRetries:     httputil.DefaultMaxRetries,
		KeyRetryBackoff:   httputil.DefaultBaseDelay,
		KeyRateLimitDelay: ratelimit.DefaultMinDelay,
		KeyRowsPerRequest: types.DefaultRows,
		KeyOutputFormat:   "csv",
		KeyLogLevel:       "INFO",
		KeyLogFormat:      "console",
		KeyLogFile:        "",
	}
}

// Error marks a failure to load or validate configuration, as opposed to
// bad per-command input.
type Error struct {
	Err error
}

func (e *Error) Error() string { return "configuration error: " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// IsConfigError reports whether err is or wraps an *Error.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Options controls where Load looks for configuration.
type Options struct {
	// ConfigFile is an explicit YAML file. It must exist when set.
	ConfigFile string

	// SearchPaths are directories probed for DefaultFileName when
	// ConfigFile is empty. Nil means the working directory and
	// ~/.config/nasa-ads (as config.yaml).
	SearchPaths []string

	// EnvFile is loaded into the environment without overriding
	// variables that are already set. Empty means ".env".
	EnvFile string

	// SecretsDir holds the ads-api-key fallback. Empty means .secrets.
	SecretsDir string

	// Overrides win over every other source. Zero values are ignored.
	Overrides map[string]any

	Logger *zap.Logger
}

// Load resolves the configuration. It does not require an API key; call
// Validate before building a client.
func Load(opts Options) (*types.Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &Error{Err: fmt.Errorf("loading %s: %w", envFile, err)}
	}

	v := viper.New()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	file, err := findConfigFile(opts)
	if err != nil {
		return nil, &Error{Err: err}
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, &Error{Err: fmt.Errorf("reading %s: %w", file, err)}
		}
		logger.Debug("using config file", zap.String("path", file))
	}

	for k, val := range opts.Overrides {
		if !isZero(val) {
			v.Set(k, val)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, &Error{Err: fmt.Errorf("decoding configuration: %w", err)}
	}
	cfg.ConfigFile = file

	if cfg.APIKey == "" {
		dir := opts.SecretsDir
		if dir == "" {
			dir = secrets.DefaultDir
		}
		key, err := secrets.APIKey(dir, logger)
		if err != nil {
			return nil, &Error{Err: err}
		}
		if key != "" {
			logger.Debug("using API key from secrets directory", zap.String("dir", dir))
			cfg.APIKey = key
		}
	}
	return &cfg, nil
}

// findConfigFile returns the explicit file, the first existing default
// location, or "" when there is none.
func findConfigFile(opts Options) (string, error) {
	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return "", fmt.Errorf("config file %s: %w", opts.ConfigFile, err)
		}
		return opts.ConfigFile, nil
	}

	candidates := make([]string, 0, 2)
	if opts.SearchPaths != nil {
		for _, dir := range opts.SearchPaths {
			candidates = append(candidates, filepath.Join(dir, DefaultFileName))
		}
	} else {
		candidates = append(candidates, DefaultFileName)
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, ".config", "nasa-ads", "config.yaml"))
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", nil
}

// decodeHook reads bare numbers as seconds for duration fields, so
// "timeout: 30" and NASA_ADS_RETRY_BACKOFF_FACTOR=0.5 work alongside
// "30s" and "500ms".
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

func secondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	var secs float64
	switch d := data.(type) {
	case time.Duration:
		return d, nil
	case int:
		secs = float64(d)
	case int64:
		secs = float64(d)
	case float64:
		secs = d
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(d), 64)
		if err != nil {
			return data, nil
		}
		secs = f
	default:
		return data, nil
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

// Validate checks that cfg can drive a client: an API key is present and
// every numeric setting is in range.
func Validate(cfg *types.Config) error {
	if cfg.APIKey == "" {
		return &Error{Err: fmt.Errorf("API key not found; set %s_API_KEY, api_key in %s, or %s/%s",
			EnvPrefix, DefaultFileName, secrets.DefaultDir, secrets.APIKeyName)}
	}
	checks := []error{
		validate.APIKey(cfg.APIKey),
		validate.Timeout(cfg.Timeout),
		validate.Rows(cfg.RowsPerRequest),
		validate.OutputFormat(cfg.OutputFormat),
	}
	if cfg.MaxRetries < 0 {
		checks = append(checks, &validate.ValidationError{Field: KeyMaxRetries, Message: "max_retries must not be negative"})
	}
	if cfg.RetryBackoff < 0 {
		checks = append(checks, &validate.ValidationError{Field: KeyRetryBackoff, Message: "retry_backoff_factor must not be negative"})
	}
	if cfg.RateLimitDelay < 0 {
		checks = append(checks, &validate.ValidationError{Field: KeyRateLimitDelay, Message: "rate_limit_delay must not be negative"})
	}
	for _, err := range checks {
		if err != nil {
			return &Error{Err: err}
		}
	}
	return nil
}

// Masked returns a copy of cfg safe to print: the API key becomes "***",
// or "(not set)" when absent.
func Masked(cfg *types.Config) types.Config {
	out := *cfg
	if out.APIKey != "" {
		out.APIKey = "***"
	} else {
		out.APIKey = "(not set)"
	}
	return out
}

// ClientOptions translates cfg into ADS client options.
func ClientOptions(cfg *types.Config, logger *zap.Logger) []ads.Option {
	return []ads.Option{
		ads.WithBaseURL(cfg.BaseURL),
		ads.WithTimeout(cfg.Timeout),
		ads.WithMaxRetries(cfg.MaxRetries),
		ads.WithBackoff(cfg.RetryBackoff),
		ads.WithMinDelay(cfg.RateLimitDelay),
		ads.WithLogger(logger),
	}
}
