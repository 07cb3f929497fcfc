package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.GetListenPort())
	assert.Equal(t, ":"+DefaultPort, cfg.GetListenAddr())
	assert.Equal(t, DefaultRPCPath, cfg.GetRPCPath())
	assert.Equal(t, DefaultWSPath, cfg.GetWSPath())
	assert.Equal(t, DefaultLogLevel, cfg.GetLogLevel())
	assert.Equal(t, DefaultLogFormat, cfg.GetLogFormat())
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.GetMaxBodyBytes())
	assert.Equal(t, DefaultBatchConcurrency, cfg.GetBatchConcurrency())
	assert.Equal(t, DefaultShutdownTimeout, cfg.GetShutdownTimeout())
	assert.False(t, cfg.GetMetricsConfig().Enabled)
	assert.Equal(t, DefaultMetricsPath, cfg.GetMetricsConfig().Path)
	assert.Empty(t, cfg.GetSentryConfig().DSN)
	assert.Equal(t, 1.0, cfg.GetSentryConfig().SampleRate)
	assert.Equal(t, "development", cfg.GetSentryConfig().Environment)
}

func TestFromViper_Environment(t *testing.T) {
	t.Setenv("PORT", "18080")
	t.Setenv("RPC_PATH", "/api/rpc")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("MAX_BODY_BYTES", "2048")
	t.Setenv("BATCH_CONCURRENCY", "0")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("METRICS_PORT", "19090")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "18080", cfg.GetListenPort())
	assert.Equal(t, "/api/rpc", cfg.GetRPCPath())
	assert.Equal(t, "debug", cfg.GetLogLevel())
	assert.Equal(t, "console", cfg.GetLogFormat())
	assert.Equal(t, int64(2048), cfg.GetMaxBodyBytes())
	assert.Equal(t, 0, cfg.GetBatchConcurrency())
	assert.Equal(t, 3*time.Second, cfg.GetShutdownTimeout())
	assert.True(t, cfg.GetMetricsConfig().Enabled)
	assert.Equal(t, "19090", cfg.GetMetricsConfig().Port)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"port not a number", "PORT", "http"},
		{"port out of range", "PORT", "70000"},
		{"path without slash", "RPC_PATH", "rpc"},
		{"ws path without slash", "WS_PATH", "ws"},
		{"ws path equals rpc path", "WS_PATH", DefaultRPCPath},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"zero body limit", "MAX_BODY_BYTES", 0},
		{"zero shutdown timeout", "SHUTDOWN_TIMEOUT", "0s"},
		{"sample rate above one", "SENTRY_SAMPLE_RATE", 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			_, err := FromViper(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestFromViper_MetricsPortCollision(t *testing.T) {
	v := viper.New()
	v.Set("METRICS_ENABLED", true)
	v.Set("METRICS_PORT", DefaultPort)
	_, err := FromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METRICS_PORT")
}

func TestSetters(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	require.NoError(t, cfg.SetListenPort("9999"))
	assert.Equal(t, "9999", cfg.GetListenPort())
	assert.Error(t, cfg.SetListenPort("0"))

	require.NoError(t, cfg.SetRPCPath("/x"))
	assert.Equal(t, "/x", cfg.GetRPCPath())
	assert.Error(t, cfg.SetRPCPath("x"))
	assert.Error(t, cfg.SetRPCPath(DefaultWSPath))
}

func TestFromViper_WSDisabled(t *testing.T) {
	v := viper.New()
	v.Set("WS_PATH", "")
	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Empty(t, cfg.GetWSPath())
}
