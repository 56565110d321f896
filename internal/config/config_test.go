package config_test

import (
	"testing"
	"time"

	"github.com/calebmorton/vanguard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Contains(t, cfg.Enrich.GeoURL, "%s")
	assert.NotEmpty(t, cfg.Client.StateDir)
	assert.NotEmpty(t, cfg.Client.UserAgent)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("VANGUARD_API_URL", "https://auth.example.com/")
	t.Setenv("VANGUARD_TIMEOUT", "3s")
	t.Setenv("VANGUARD_STATE_DIR", "/tmp/vanguard-test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://auth.example.com", cfg.API.BaseURL, "trailing slash trimmed")
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, "/tmp/vanguard-test", cfg.Client.StateDir)
	assert.Contains(t, cfg.Client.DeviceStorePath(), "device.json")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Run("non-http api url", func(t *testing.T) {
		t.Setenv("VANGUARD_API_URL", "ftp://nope")
		_, err := config.Load()
		assert.Error(t, err)
	})

	t.Run("geo url without placeholder", func(t *testing.T) {
		t.Setenv("VANGUARD_GEO_URL", "https://ipinfo.io/json")
		_, err := config.Load()
		assert.Error(t, err)
	})
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("VANGUARD_TIMEOUT", "soon")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
}
