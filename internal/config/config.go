package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API    APIConfig
	Enrich EnrichConfig
	Client ClientConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type EnrichConfig struct {
	IPEchoURL string
	GeoURL    string // must contain one %s verb for the IP
	Timeout   time.Duration
}

type ClientConfig struct {
	StateDir  string
	UserAgent string
	LogLevel  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	baseURL := getEnv("VANGUARD_API_URL", "http://localhost:8000")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("VANGUARD_API_URL must be an http(s) URL, got %q", baseURL)
	}

	geoURL := getEnv("VANGUARD_GEO_URL", "https://ipinfo.io/%s/json")
	if !strings.Contains(geoURL, "%s") {
		return nil, fmt.Errorf("VANGUARD_GEO_URL must contain a %%s placeholder for the IP")
	}

	stateDir := getEnv("VANGUARD_STATE_DIR", "")
	if stateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = os.TempDir()
		}
		stateDir = filepath.Join(base, "vanguard")
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(baseURL, "/"),
			Timeout: getEnvAsDuration("VANGUARD_TIMEOUT", 15*time.Second),
		},
		Enrich: EnrichConfig{
			IPEchoURL: getEnv("VANGUARD_IP_ECHO_URL", "https://api.ipify.org?format=json"),
			GeoURL:    geoURL,
			Timeout:   getEnvAsDuration("VANGUARD_ENRICH_TIMEOUT", 5*time.Second),
		},
		Client: ClientConfig{
			StateDir:  stateDir,
			UserAgent: getEnv("VANGUARD_USER_AGENT", "vanguard-cli/1.0"),
			LogLevel:  getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// DeviceStorePath is the durable store file holding the device identifier.
func (c *ClientConfig) DeviceStorePath() string {
	return filepath.Join(c.StateDir, "device.json")
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
