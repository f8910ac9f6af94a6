package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/pool"
	"github.com/kbukum/httpkit/resilience"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.Equal(t, resilience.DefaultRetryPolicy(), cfg.Retry)
	assert.Equal(t, pool.Config{}, cfg.Pool, "pool settings are left alone for shared clients")
	require.NoError(t, cfg.Validate())

	none := Config{MaxRedirects: NoRedirects}
	none.ApplyDefaults()
	assert.Equal(t, NoRedirects, none.MaxRedirects)
	require.NoError(t, none.Validate())

	private := Config{PrivatePool: true}
	private.ApplyDefaults()
	assert.Equal(t, pool.DefaultConfig(), private.Pool)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
		{"max redirects below no-redirects", func(c *Config) { c.MaxRedirects = -2 }},
		{"relative base url", func(c *Config) { c.BaseURL = "/api" }},
		{"ftp base url", func(c *Config) { c.BaseURL = "ftp://files.example.com" }},
		{"bad retry", func(c *Config) { c.Retry.ScaleFactor = 0.5 }},
		{"bad auth", func(c *Config) { c.Auth = &AuthConfig{Type: AuthBearer} }},
		{"bad auth location", func(c *Config) { c.Auth = &AuthConfig{Type: AuthAPIKey, Key: "k", In: "cookie"} }},
		{"bad private pool", func(c *Config) {
			c.PrivatePool = true
			c.Pool = pool.DefaultConfig()
			c.Pool.MaxConnectionsPerServer = c.Pool.MaxConnections + 1
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindInvalidArgument), err.Error())
		})
	}
}

func TestConfig_ValidBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://api.example.com/v1"
	assert.NoError(t, cfg.Validate())
}
