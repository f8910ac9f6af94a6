package config

import (
	"maps"
	"slices"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/observability"
	"github.com/kbukum/httpkit/pool"
	"github.com/kbukum/httpkit/resilience"
	"github.com/kbukum/httpkit/validation"
)

// Environments accepted by ServiceConfig.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// ServiceConfig is the configuration of a process using httpkit clients.
// Projects embed it in their own config structs:
//
//	type MyConfig struct {
//		config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//		Feature bool `yaml:"feature" mapstructure:"feature"`
//	}
type ServiceConfig struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string `yaml:"version,omitempty" mapstructure:"version"`

	Logging   logger.Config        `yaml:"logging" mapstructure:"logging"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`

	// Pool configures the connection pool shared by clients without a
	// private pool.
	Pool pool.Config `yaml:"pool" mapstructure:"pool"`

	// Retry is the policy of clients that do not set their own.
	Retry resilience.RetryPolicy `yaml:"retry" mapstructure:"retry"`

	// Clients are the named HTTP clients.
	Clients map[string]httpclient.Config `yaml:"clients,omitempty" mapstructure:"clients"`
}

// GetServiceConfig returns the base ServiceConfig. When embedded, the method
// is promoted to the embedding struct.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults fills in defaults, including those of every client. A
// client without a retry policy inherits Retry.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	c.Logging.ApplyDefaults()
	c.Pool.ApplyDefaults()
	c.Retry.ApplyDefaults()
	for name, client := range c.Clients {
		if client.Retry == (resilience.RetryPolicy{}) {
			client.Retry = c.Retry
		}
		client.ApplyDefaults()
		c.Clients[name] = client
	}
}

// Validate checks the whole configuration.
func (c *ServiceConfig) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	for _, name := range c.ClientNames() {
		client := c.Clients[name]
		if err := client.Validate(); err != nil {
			return errors.InvalidArgument("clients.%s is invalid", name).WithCause(err)
		}
	}
	return nil
}

// ClientNames returns the configured client names, sorted.
func (c *ServiceConfig) ClientNames() []string {
	return slices.Sorted(maps.Keys(c.Clients))
}

// NewRegistry returns a client registry with every configured client
// registered, in name order.
func (c *ServiceConfig) NewRegistry(opts ...httpclient.Option) (*httpclient.Registry, error) {
	reg := httpclient.NewRegistry(c.Pool, opts...)
	for _, name := range c.ClientNames() {
		if _, err := reg.Register(name, c.Clients[name]); err != nil {
			return nil, errors.Join(err, reg.Pools().DestroyAll())
		}
	}
	return reg, nil
}

const redacted = "********"

// Redacted returns a copy with credentials masked, for display.
func (c ServiceConfig) Redacted() ServiceConfig {
	clients := make(map[string]httpclient.Config, len(c.Clients))
	for name, client := range c.Clients {
		if client.Auth != nil {
			auth := *client.Auth
			mask(&auth.Token)
			mask(&auth.Password)
			mask(&auth.Key)
			if auth.JWT != nil {
				jwt := *auth.JWT
				mask(&jwt.Secret)
				auth.JWT = &jwt
			}
			client.Auth = &auth
		}
		clients[name] = client
	}
	c.Clients = clients
	return c
}

func mask(s *string) {
	if *s != "" {
		*s = redacted
	}
}
