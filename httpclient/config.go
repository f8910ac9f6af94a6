package httpclient

import (
	"time"

	"github.com/kbukum/httpkit/pool"
	"github.com/kbukum/httpkit/resilience"
	"github.com/kbukum/httpkit/validation"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRedirects = 10
)

// NoRedirects as Config.MaxRedirects returns redirect responses to the
// caller instead of following them.
const NoRedirects = -1

// Config configures one named client.
type Config struct {
	// BaseURL is resolved against by Client.URI. Optional.
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds a whole exchange, including reading the body. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// MaxRedirects caps followed redirects per request. Zero means the
	// default of 10; NoRedirects disables following.
	MaxRedirects int `yaml:"max_redirects" mapstructure:"max_redirects"`

	// UserAgent is sent when a request has none. Defaults to version.UserAgent().
	UserAgent string `yaml:"user_agent,omitempty" mapstructure:"user_agent"`

	// Headers are added to requests that do not already carry them.
	Headers map[string]string `yaml:"headers,omitempty" mapstructure:"headers"`

	// Auth configures authentication applied to every request.
	Auth *AuthConfig `yaml:"auth,omitempty" mapstructure:"auth"`

	// RateLimit paces requests. Nil disables rate limiting.
	RateLimit *resilience.RateLimiterConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`

	// Retry configures the driver returned by Client.RetryDriver.
	Retry resilience.RetryPolicy `yaml:"retry" mapstructure:"retry"`

	// PrivatePool gives the client its own connection pool built from Pool
	// instead of the shared one.
	PrivatePool bool `yaml:"private_pool" mapstructure:"private_pool"`

	// Pool configures the private pool. Ignored unless PrivatePool is set.
	Pool pool.Config `yaml:"pool" mapstructure:"pool"`
}

// DefaultConfig returns a client configuration with every default applied.
func DefaultConfig() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
	c.Retry.ApplyDefaults()
	if c.PrivatePool {
		c.Pool.ApplyDefaults()
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	err := validation.New().
		HTTPURL("base_url", c.BaseURL).
		Min("max_redirects", c.MaxRedirects, NoRedirects).
		Err()
	if err != nil {
		return err
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	if _, err := c.Auth.Filter(); err != nil {
		return err
	}
	if c.PrivatePool {
		return c.Pool.Validate()
	}
	return nil
}
