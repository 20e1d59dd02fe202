package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("floors summarizer poll interval at 5s", func(t *testing.T) {
		cfg := &Config{
			DatabaseURL:   "postgres://x",
			SessionTTLSec: 60,
			Summarizer:    SummarizerConfig{PollSeconds: 1},
		}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 5, cfg.Summarizer.PollSeconds)
	})

	t.Run("leaves poll interval alone above the floor", func(t *testing.T) {
		cfg := &Config{
			DatabaseURL:   "postgres://x",
			SessionTTLSec: 60,
			Summarizer:    SummarizerConfig{PollSeconds: 30},
		}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 30, cfg.Summarizer.PollSeconds)
	})

	t.Run("rejects non-positive session ttl", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "postgres://x", SessionTTLSec: 0}
		err := cfg.Validate()
		assert.Error(t, err)
	})

	t.Run("rejects empty database url", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "", SessionTTLSec: 60}
		err := cfg.Validate()
		assert.Error(t, err)
	})
}

func TestConfig_SessionTTL(t *testing.T) {
	cfg := &Config{SessionTTLSec: 90}
	assert.Equal(t, 90*time.Second, cfg.SessionTTL())
}

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	t.Run("applies defaults with no env set", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.APIPort)
		assert.Equal(t, 120, cfg.SessionTTLSec)
		assert.Equal(t, 5, cfg.Orchestrator.PollSeconds)
	})

	t.Run("env vars override defaults", func(t *testing.T) {
		t.Setenv("API_PORT", "9999")
		t.Setenv("SESSION_TTL_SECONDS", "300")
		t.Setenv("ADAPTER_AUTOSTART", "true")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 9999, cfg.APIPort)
		assert.Equal(t, 300, cfg.SessionTTLSec)
		assert.True(t, cfg.Adapter.Autostart)
	})

	t.Run("rejects invalid session ttl from env", func(t *testing.T) {
		t.Setenv("SESSION_TTL_SECONDS", "0")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestWatchAdapterPolicy_NoopWhenUnset(t *testing.T) {
	cfg := &Config{}
	stop, err := cfg.WatchAdapterPolicy(func(AdapterPolicy) {})
	require.NoError(t, err)
	assert.NotPanics(t, stop)
}
