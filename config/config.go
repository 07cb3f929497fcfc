package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	Version    = "dev"
	CommitHash = "unknown"
)

// Default configuration constants
const (
	DefaultPort             = "8080"
	DefaultRPCPath          = "/rpc"
	DefaultWSPath           = "/ws"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMaxBodyBytes     = 1 << 20 // 1 MiB
	DefaultBatchConcurrency = 8
	DefaultShutdownTimeout  = 10 * time.Second

	DefaultMetricsPort = "9090"
	DefaultMetricsPath = "/metrics"

	MinPortNumber = 1
	MaxPortNumber = 65535
)

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
	Port    string `json:"port"`
}

// SentryConfig contains configuration for Sentry error reporting.
type SentryConfig struct {
	DSN         string  `json:"dsn"`
	SampleRate  float64 `json:"sample_rate"`
	Environment string  `json:"environment"`
}

type Config struct {
	listenPort       string
	rpcPath          string
	wsPath           string
	logLevel         string
	logFormat        string
	maxBodyBytes     int64
	batchConcurrency int
	shutdownTimeout  time.Duration
	metricsConfig    *MetricsConfig
	sentryConfig     *SentryConfig
}

func SetBuildInfo(v, commit string) {
	Version = v
	CommitHash = commit
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", DefaultPort)
	v.SetDefault("RPC_PATH", DefaultRPCPath)
	v.SetDefault("WS_PATH", DefaultWSPath)
	v.SetDefault("LOG_LEVEL", DefaultLogLevel)
	v.SetDefault("LOG_FORMAT", DefaultLogFormat)
	v.SetDefault("MAX_BODY_BYTES", DefaultMaxBodyBytes)
	v.SetDefault("BATCH_CONCURRENCY", DefaultBatchConcurrency)
	v.SetDefault("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout)
	v.SetDefault("METRICS_ENABLED", false)
	v.SetDefault("METRICS_PORT", DefaultMetricsPort)
	v.SetDefault("METRICS_PATH", DefaultMetricsPath)
	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("SENTRY_SAMPLE_RATE", 1.0)
	v.SetDefault("ENVIRONMENT", "development")
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory if one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// just log without failing, local testing purpose only
		fmt.Fprintln(os.Stderr, "No .env file found")
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// FromViper builds a Config from an existing viper instance. Defaults are
// applied for unset keys.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	cfg := &Config{
		listenPort:       v.GetString("PORT"),
		rpcPath:          v.GetString("RPC_PATH"),
		wsPath:           v.GetString("WS_PATH"),
		logLevel:         strings.ToLower(v.GetString("LOG_LEVEL")),
		logFormat:        strings.ToLower(v.GetString("LOG_FORMAT")),
		maxBodyBytes:     v.GetInt64("MAX_BODY_BYTES"),
		batchConcurrency: v.GetInt("BATCH_CONCURRENCY"),
		shutdownTimeout:  v.GetDuration("SHUTDOWN_TIMEOUT"),
		metricsConfig: &MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
			Port:    v.GetString("METRICS_PORT"),
		},
		sentryConfig: &SentryConfig{
			DSN:         v.GetString("SENTRY_DSN"),
			SampleRate:  v.GetFloat64("SENTRY_SAMPLE_RATE"),
			Environment: v.GetString("ENVIRONMENT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validatePort("PORT", c.listenPort); err != nil {
		return err
	}
	if !strings.HasPrefix(c.rpcPath, "/") {
		return fmt.Errorf("RPC_PATH must start with '/' (got %q)", c.rpcPath)
	}
	if c.wsPath != "" {
		if !strings.HasPrefix(c.wsPath, "/") {
			return fmt.Errorf("WS_PATH must start with '/' (got %q)", c.wsPath)
		}
		if c.wsPath == c.rpcPath {
			return fmt.Errorf("WS_PATH must differ from RPC_PATH (both %s)", c.rpcPath)
		}
	}
	switch c.logFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console' (got %q)", c.logFormat)
	}
	if c.maxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive (got %d)", c.maxBodyBytes)
	}
	if c.shutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive (got %s)", c.shutdownTimeout)
	}
	if c.sentryConfig != nil && (c.sentryConfig.SampleRate < 0 || c.sentryConfig.SampleRate > 1) {
		return fmt.Errorf("SENTRY_SAMPLE_RATE must be between 0 and 1 (got %g)", c.sentryConfig.SampleRate)
	}
	if c.metricsConfig != nil && c.metricsConfig.Enabled {
		if err := validatePort("METRICS_PORT", c.metricsConfig.Port); err != nil {
			return err
		}
		if !strings.HasPrefix(c.metricsConfig.Path, "/") {
			return fmt.Errorf("METRICS_PATH must start with '/' (got %q)", c.metricsConfig.Path)
		}
		if c.metricsConfig.Port == c.listenPort {
			return fmt.Errorf("METRICS_PORT must differ from PORT (both %s)", c.listenPort)
		}
	}
	return nil
}

func validatePort(key, port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("%s must be a number (got %q)", key, port)
	}
	if n < MinPortNumber || n > MaxPortNumber {
		return fmt.Errorf("%s must be between %d and %d (got %d)", key, MinPortNumber, MaxPortNumber, n)
	}
	return nil
}

func (c Config) GetListenPort() string {
	return c.listenPort
}

func (c Config) GetListenAddr() string {
	return ":" + c.listenPort
}

func (c Config) GetRPCPath() string {
	return c.rpcPath
}

// GetWSPath returns the WebSocket endpoint path; empty disables it.
func (c Config) GetWSPath() string {
	return c.wsPath
}

func (c Config) GetLogLevel() string {
	return c.logLevel
}

func (c Config) GetLogFormat() string {
	return c.logFormat
}

func (c Config) GetMaxBodyBytes() int64 {
	return c.maxBodyBytes
}

// GetBatchConcurrency returns the bound on concurrently executing batch
// items; zero or negative means unbounded.
func (c Config) GetBatchConcurrency() int {
	return c.batchConcurrency
}

func (c Config) GetShutdownTimeout() time.Duration {
	return c.shutdownTimeout
}

func (c Config) GetMetricsConfig() *MetricsConfig {
	return c.metricsConfig
}

func (c Config) GetSentryConfig() *SentryConfig {
	return c.sentryConfig
}

// SetListenPort overrides the listen port, e.g. from a command line flag.
func (c *Config) SetListenPort(port string) error {
	if err := validatePort("PORT", port); err != nil {
		return err
	}
	c.listenPort = port
	return nil
}

// SetRPCPath overrides the JSON-RPC endpoint path.
func (c *Config) SetRPCPath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("RPC_PATH must start with '/' (got %q)", path)
	}
	if path == c.wsPath {
		return fmt.Errorf("RPC_PATH must differ from WS_PATH (both %s)", path)
	}
	c.rpcPath = path
	return nil
}
