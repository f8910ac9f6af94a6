package pool

import (
	"time"

	"github.com/kbukum/httpkit/validation"
)

const (
	defaultConnectTimeout          = 5 * time.Second
	defaultIdleTimeout             = time.Minute
	defaultKeepAlive               = 30 * time.Second
	defaultTLSHandshakeTimeout     = 10 * time.Second
	defaultMaxConnections          = 200
	defaultMaxConnectionsPerServer = 20
)

// Config describes a connection pool.
type Config struct {
	// ConnectTimeout bounds establishing a TCP connection.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" validate:"gte=0"`
	// IdleTimeout closes connections idle for longer than this.
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"gte=0"`
	// KeepAlive is the TCP keep-alive period.
	KeepAlive time.Duration `yaml:"keep_alive" mapstructure:"keep_alive" validate:"gte=0"`
	// TLSHandshakeTimeout bounds the TLS handshake.
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout" mapstructure:"tls_handshake_timeout" validate:"gte=0"`
	// ResponseHeaderTimeout bounds the wait for response headers. Zero means no limit.
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout" mapstructure:"response_header_timeout" validate:"gte=0"`
	// MaxConnections bounds the requests in flight across all servers.
	MaxConnections int `yaml:"max_connections" mapstructure:"max_connections" validate:"gte=0"`
	// MaxConnectionsPerServer bounds the connections to a single host.
	MaxConnectionsPerServer int `yaml:"max_connections_per_server" mapstructure:"max_connections_per_server" validate:"gte=0"`
	// MaxIdleConnections bounds the idle connections kept across all hosts.
	MaxIdleConnections int `yaml:"max_idle_connections" mapstructure:"max_idle_connections" validate:"gte=0"`
	// DisableHTTP2 turns off the HTTP/2 upgrade attempt.
	DisableHTTP2 bool `yaml:"disable_http2" mapstructure:"disable_http2"`
	// TLS configures the client side of TLS connections.
	TLS *TLSConfig `yaml:"tls,omitempty" mapstructure:"tls"`
}

// DefaultConfig returns the default pool settings.
func DefaultConfig() Config {
	c := Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = defaultKeepAlive
	}
	if c.TLSHandshakeTimeout == 0 {
		c.TLSHandshakeTimeout = defaultTLSHandshakeTimeout
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = defaultMaxConnections
	}
	if c.MaxConnectionsPerServer == 0 {
		c.MaxConnectionsPerServer = min(defaultMaxConnectionsPerServer, c.MaxConnections)
	}
	if c.MaxIdleConnections == 0 {
		c.MaxIdleConnections = c.MaxConnections
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	v := validation.New()
	if c.MaxConnections > 0 {
		v.Range("max_connections_per_server", c.MaxConnectionsPerServer, 0, c.MaxConnections)
		v.Range("max_idle_connections", c.MaxIdleConnections, 0, c.MaxConnections)
	}
	return v.Err()
}
