package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrMissingCredentials = errors.New("missing EXACT_ONLINE_CLIENT_ID or EXACT_ONLINE_CLIENT_SECRET")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Region-specific Exact Online base hosts.
var regionBaseURLs = map[string]string{
	"nl": "https://start.exactonline.nl",
	"uk": "https://start.exactonline.co.uk",
}

// DefaultRedirectURI is the OAuth2 callback used when none is configured.
const DefaultRedirectURI = "https://localhost:8080/callback"

// Config represents the application configuration
type Config struct {
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Region       string    `json:"region"`
	RedirectURI  string    `json:"redirect_uri"`
	StorageDir   string    `json:"storage_dir"`
	Log          LogConfig `json:"log"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// BaseURL returns the region-specific Exact Online base URL.
func (c *Config) BaseURL() string {
	return regionBaseURLs[c.Region]
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrMissingCredentials
	}

	if _, ok := regionBaseURLs[c.Region]; !ok {
		return fmt.Errorf("%w: unsupported region %q (use 'nl' or 'uk')", ErrInvalidConfig, c.Region)
	}

	if c.RedirectURI == "" {
		c.RedirectURI = DefaultRedirectURI
	}

	if c.StorageDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("%w: cannot resolve home directory: %v", ErrInvalidConfig, err)
		}
		c.StorageDir = filepath.Join(home, ".exactonline_mcp")
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Callers are expected to have loaded a .env file first if one exists.
func LoadFromEnv() (*Config, error) {
	config := &Config{
		ClientID:     getEnv("EXACT_ONLINE_CLIENT_ID", ""),
		ClientSecret: getEnv("EXACT_ONLINE_CLIENT_SECRET", ""),
		Region:       getEnv("EXACT_ONLINE_REGION", "nl"),
		RedirectURI:  getEnv("EXACT_ONLINE_REDIRECT_URI", DefaultRedirectURI),
		StorageDir:   getEnv("EXACT_ONLINE_STORAGE_DIR", ""),
		Log: LogConfig{
			Level:  getEnv("EXACT_ONLINE_LOG_LEVEL", "info"),
			Format: getEnv("EXACT_ONLINE_LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
