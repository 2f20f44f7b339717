package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadClientConfig(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("API_EMAIL", "manager@mahuti.com")
		t.Setenv("API_PASSWORD", "secret")

		cfg, err := LoadClientConfig()

		require.NoError(t, err)
		require.Equal(t, "http://localhost:3001", cfg.API.BaseURL)
		require.Equal(t, 5, cfg.Sync.PollInterval)
		require.Equal(t, 50, cfg.Sync.HistoryCapacity)
		require.Equal(t, "Sunday", cfg.Week.Start)
		require.Empty(t, cfg.Metrics.Addr)
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Setenv("API_EMAIL", "manager@mahuti.com")
		t.Setenv("API_PASSWORD", "secret")
		t.Setenv("SYNC_POLL_INTERVAL", "2")
		t.Setenv("WEEK_START", "Monday")

		cfg, err := LoadClientConfig()

		require.NoError(t, err)
		require.Equal(t, 2, cfg.Sync.PollInterval)
		require.Equal(t, "Monday", cfg.Week.Start)
	})

	t.Run("reports missing credentials", func(t *testing.T) {
		t.Setenv("API_PASSWORD", "secret")

		_, err := LoadClientConfig()

		require.Error(t, err)
		require.Contains(t, err.Error(), "API_EMAIL")
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("reports first missing variable only", func(t *testing.T) {
		_, err := LoadConfig()

		require.Error(t, err)
		require.Contains(t, err.Error(), "DATABASE_DSN")
	})
}
