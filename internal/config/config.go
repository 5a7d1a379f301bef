package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/al-bashkir/wwsvc-go/wwsvc"
)

// Config represents the complete client configuration
type Config struct {
	Webware     WebwareConfig     `yaml:"webware"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Limits      LimitsConfig      `yaml:"limits"`
	Breaker     BreakerConfig     `yaml:"breaker"`
	Cursor      CursorConfig      `yaml:"cursor"`
	Log         LogConfig         `yaml:"log"`
}

// WebwareConfig defines the server and the application registration
type WebwareConfig struct {
	URL            string `yaml:"url" validate:"required,url"`                   // Base URL, e.g. https://webware.example.com:8443
	VendorHash     string `yaml:"vendor_hash" validate:"required"`               // Vendor hash issued by SoftENGINE
	AppHash        string `yaml:"app_hash" validate:"required"`                  // Application hash issued by SoftENGINE
	Secret         string `yaml:"secret" validate:"required"`                    // Application secret
	Revision       uint32 `yaml:"revision"`                                      // Application revision
	AllowInsecure  bool   `yaml:"allow_insecure"`                                // Skip TLS verification
	Timeout        int    `yaml:"timeout" validate:"gt=0,lte=600"`               // Request timeout in seconds
	ResultMaxLines uint32 `yaml:"result_max_lines" validate:"gt=0,lte=1000000"` // Rows per response outside a cursor
}

// CredentialsConfig holds an optional pre-provisioned service pass
type CredentialsConfig struct {
	ServicePass string `yaml:"service_pass" validate:"required_with=AppID"`
	AppID       string `yaml:"app_id" validate:"required_with=ServicePass"`
}

// LimitsConfig defines client-side throttling
type LimitsConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"` // 0 disables throttling
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

// BreakerConfig defines the circuit breaker
type BreakerConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio" validate:"gte=0,lte=1"`
	OpenTimeout  int     `yaml:"open_timeout" validate:"gte=0"` // Seconds before probing again
}

// CursorConfig defines pagination behaviour
type CursorConfig struct {
	PageSize  uint32 `yaml:"page_size" validate:"gt=0"`
	EmptyPage string `yaml:"empty_page" validate:"oneof=end continue"` // end, continue
}

// LogConfig defines logging settings
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"` // debug, info, warn, error
	Format string `yaml:"format" validate:"oneof=json text"`            // json, text
}

// Load reads and parses the configuration file. An empty path loads the
// defaults, so a configuration can come from the environment alone.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Webware: WebwareConfig{
			Revision:       1,
			Timeout:        60,
			ResultMaxLines: wwsvc.DefaultResultMaxLines,
		},
		Breaker: BreakerConfig{
			MinRequests:  3,
			FailureRatio: 0.6,
			OpenTimeout:  30,
		},
		Cursor: CursorConfig{
			PageSize:  wwsvc.DefaultPageSize,
			EmptyPage: "end",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("WWSVC_URL"); v != "" {
		c.Webware.URL = v
	}
	if v := os.Getenv("WWSVC_VENDOR_HASH"); v != "" {
		c.Webware.VendorHash = v
	}
	if v := os.Getenv("WWSVC_APP_HASH"); v != "" {
		c.Webware.AppHash = v
	}
	if v := os.Getenv("WWSVC_SECRET"); v != "" {
		c.Webware.Secret = v
	}
	if v := os.Getenv("WWSVC_REVISION"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("WWSVC_REVISION: %w", err)
		}
		c.Webware.Revision = uint32(n)
	}
	if v := os.Getenv("WWSVC_ALLOW_INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WWSVC_ALLOW_INSECURE: %w", err)
		}
		c.Webware.AllowInsecure = b
	}

	// Pre-provisioned service pass
	if v := os.Getenv("WWSVC_SERVICE_PASS"); v != "" {
		c.Credentials.ServicePass = v
	}
	if v := os.Getenv("WWSVC_APP_ID"); v != "" {
		c.Credentials.AppID = v
	}

	// Log overrides
	if v := os.Getenv("WWSVC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("WWSVC_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	return nil
}

// ClientOptions converts the configuration into client options.
func (c *Config) ClientOptions(logger *slog.Logger) wwsvc.Options {
	opts := wwsvc.Options{
		BaseURL:        c.Webware.URL,
		VendorHash:     c.Webware.VendorHash,
		AppHash:        c.Webware.AppHash,
		Secret:         c.Webware.Secret,
		Revision:       c.Webware.Revision,
		ResultMaxLines: c.Webware.ResultMaxLines,
		AllowInsecure:  c.Webware.AllowInsecure,
		Timeout:        time.Duration(c.Webware.Timeout) * time.Second,
		RateLimit:      c.Limits.RequestsPerSecond,
		RateBurst:      c.Limits.Burst,
		Breaker: wwsvc.BreakerOptions{
			Enabled:      c.Breaker.Enabled,
			MinRequests:  c.Breaker.MinRequests,
			FailureRatio: c.Breaker.FailureRatio,
			Timeout:      time.Duration(c.Breaker.OpenTimeout) * time.Second,
		},
		Logger: logger,
	}

	if c.Credentials.ServicePass != "" {
		creds := wwsvc.NewCredentials(c.Credentials.ServicePass, c.Credentials.AppID)
		opts.Credentials = &creds
	}

	return opts
}

// EmptyPagePolicy returns the configured paginator policy.
func (c *Config) EmptyPagePolicy() wwsvc.EmptyPagePolicy {
	if c.Cursor.EmptyPage == "continue" {
		return wwsvc.EmptyPageContinues
	}
	return wwsvc.EmptyPageEnds
}

// SetupLogging configures the global slog logger based on the LogConfig and
// returns it. Logs go to w, or stderr when w is nil.
func SetupLogging(cfg *LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Redact returns a copy of the config with secrets redacted for safe logging
func (c *Config) Redact() *Config {
	redacted := *c
	if redacted.Webware.Secret != "" {
		redacted.Webware.Secret = "[REDACTED]"
	}
	if redacted.Credentials.ServicePass != "" {
		redacted.Credentials.ServicePass = "[REDACTED]"
	}
	if redacted.Credentials.AppID != "" {
		redacted.Credentials.AppID = "[REDACTED]"
	}
	return &redacted
}
