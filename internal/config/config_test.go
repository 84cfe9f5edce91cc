package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                 "8080",
		Env:                  "development",
		JWTSecret:            "secure-secret-at-least-32-chars-long",
		DBPassword:           "secure-password",
		DBSSLMode:            "disable",
		MediaMaxUploadSizeMB: 10,
		TracingSamplerRatio:  1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development config", func(_ *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"non-positive upload size", func(c *Config) { c.MediaMaxUploadSizeMB = 0 }, true},
		{"negative cache ttl", func(c *Config) { c.TweetCacheTTLSeconds = -1 }, true},
		{"sampler ratio above one", func(c *Config) { c.TracingSamplerRatio = 1.5 }, true},
		{"production with default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
			c.DBSSLMode = "require"
		}, true},
		{"production with disabled ssl", func(c *Config) { c.Env = "production" }, true},
		{"production with weak db password", func(c *Config) {
			c.Env = "prod"
			c.DBSSLMode = "require"
			c.DBPassword = "password"
		}, true},
		{"production fully configured", func(c *Config) {
			c.Env = "production"
			c.DBSSLMode = "verify-full"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	c := validConfig()
	c.TweetCacheTTLSeconds = 30
	c.ReconcileIntervalSeconds = 0
	assert.Equal(t, 30*time.Second, c.TweetCacheTTL())
	assert.Zero(t, c.ReconcileInterval())

	c.ReconcileIntervalSeconds = 60
	assert.Equal(t, time.Minute, c.ReconcileInterval())
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("DB_SSLMODE")

	os.Setenv("APP_ENV", "development")
	os.Setenv("PORT", "9999")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, 15, cfg.MediaMaxUploadSizeMB)
	assert.Equal(t, "/media", cfg.MediaBaseURL)
}
