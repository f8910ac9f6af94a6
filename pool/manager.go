package pool

import (
	"context"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/observability"
)

// ErrDestroyed is returned by a Manager once Destroy has been called.
var ErrDestroyed = errors.New(errors.KindIllegalState, "connection pool manager has been destroyed")

// Manager owns one Pool on behalf of the clients bound to it. The pool is
// created on first use. Destroy closes the registered clients, then the
// pool, exactly once.
type Manager struct {
	name    string
	shared  bool
	config  Config
	log     *logger.Logger
	metrics *observability.ClientMetrics

	mu      sync.Mutex
	pool    *Pool
	clients []io.Closer

	destroyOnce sync.Once
	destroyed   atomic.Bool
	destroyErr  error
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithMetrics records pool lifecycle events on metrics.
func WithMetrics(metrics *observability.ClientMetrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager returns a manager for a pool built from cfg.
func NewManager(name string, shared bool, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		name:   name,
		shared: shared,
		config: cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Get("pool")
	}
	return m
}

// Name returns the manager name.
func (m *Manager) Name() string { return m.name }

// Shared reports whether the manager serves every client not asking for a
// private pool.
func (m *Manager) Shared() bool { return m.shared }

// Get returns the pool, creating it on first call. A failed creation is not
// cached, so a later call retries it.
func (m *Manager) Get() (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed.Load() {
		return nil, ErrDestroyed
	}
	if m.pool != nil {
		return m.pool, nil
	}

	p, err := New(m.name, m.config)
	if err != nil {
		return nil, err
	}
	m.pool = p

	cfg := p.Config()
	m.log.Info("connection pool created", logger.Fields(
		logger.FieldPool, m.name,
		"shared", m.shared,
		"max_connections", cfg.MaxConnections,
		"max_connections_per_server", cfg.MaxConnectionsPerServer,
	))
	m.metrics.PoolEvent(context.Background(), m.name, m.shared, observability.PoolCreated)
	return p, nil
}

// AddClient registers a client to be closed before the pool on Destroy.
func (m *Manager) AddClient(c io.Closer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed.Load() {
		return ErrDestroyed
	}
	m.clients = append(m.clients, c)
	return nil
}

// Clients returns the number of registered clients.
func (m *Manager) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// IsDestroyed reports whether Destroy has been called.
func (m *Manager) IsDestroyed() bool { return m.destroyed.Load() }

// Destroy closes the registered clients, newest first, and then the pool.
// It is safe to call from several goroutines; only the first call does any
// work and every call returns its result.
func (m *Manager) Destroy() error {
	m.destroyOnce.Do(func() {
		m.mu.Lock()
		m.destroyed.Store(true)
		p := m.pool
		clients := m.clients
		m.clients = nil
		m.mu.Unlock()

		var errs []error
		for _, c := range slices.Backward(clients) {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if p != nil {
			p.Close()
			m.metrics.PoolEvent(context.Background(), m.name, m.shared, observability.PoolDestroyed)
		}
		m.destroyErr = errors.Join(errs...)

		m.log.Info("connection pool destroyed", logger.Fields(
			logger.FieldPool, m.name,
			"shared", m.shared,
			"clients", len(clients),
			"created", p != nil,
		))
	})
	return m.destroyErr
}
