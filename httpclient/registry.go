package httpclient

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/kbukum/httpkit/component"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/pool"
)

// ComponentName is the name a Registry registers under.
const ComponentName = "http-clients"

// Registry creates named clients and owns their connection pools. Clients
// share one pool unless configured with PrivatePool. Stopping the registry
// closes every client and destroys every pool.
type Registry struct {
	pools *pool.Registry
	opts  []Option
	log   *logger.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	stopped atomic.Bool
}

var (
	_ component.Component   = (*Registry)(nil)
	_ component.Describable = (*Registry)(nil)
)

// NewRegistry returns a registry whose shared pool uses sharedPool. opts
// apply to every client it creates.
func NewRegistry(sharedPool pool.Config, opts ...Option) *Registry {
	s := newSettings(opts)
	return &Registry{
		pools:   pool.NewRegistry(sharedPool, pool.WithLogger(s.log), pool.WithMetrics(s.metrics)),
		opts:    opts,
		log:     s.log,
		clients: make(map[string]*Client),
	}
}

// Pools returns the underlying pool registry.
func (r *Registry) Pools() *pool.Registry { return r.pools }

// Register creates the client name from cfg. Binding a name to a different
// kind of pool than before is an invalid-argument error; registering a name
// twice is an illegal-state error. A client that cannot be created leaves no
// pool binding behind.
func (r *Registry) Register(name string, cfg Config) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[name]; ok {
		if _, err := r.pools.Bind(name, cfg.PrivatePool, poolConfig(cfg)); err != nil {
			return nil, err
		}
		return nil, errors.IllegalState("client %q is already registered", name).WithOp("httpclient.register")
	}

	_, bound := r.pools.Lookup(name)
	m, err := r.pools.Bind(name, cfg.PrivatePool, poolConfig(cfg))
	if err != nil {
		return nil, err
	}
	c, err := New(name, cfg, m, r.opts...)
	if err != nil && !bound {
		if uerr := r.pools.Unbind(name); uerr != nil {
			r.log.WithError(uerr).Warn("releasing pool of rejected client", logger.Fields(logger.FieldClient, name))
		}
	}
	if err != nil {
		return nil, err
	}
	r.clients[name] = c
	return c, nil
}

func poolConfig(cfg Config) pool.Config {
	pc := cfg.Pool
	pc.ApplyDefaults()
	return pc
}

// Client returns the client registered under name.
func (r *Registry) Client(name string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[name]
	if !ok {
		return nil, errors.InvalidArgument("unknown client %q", name).WithOp("httpclient.client")
	}
	return c, nil
}

// Names returns the registered client names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.clients))
}

// Name implements component.Component.
func (r *Registry) Name() string { return ComponentName }

// Start creates the shared pool so the first request does not pay for it.
func (r *Registry) Start(context.Context) error {
	if r.stopped.Load() {
		return pool.ErrDestroyed
	}
	_, err := r.pools.Shared().Get()
	return err
}

// Stop destroys the private pools, newest first, and then the shared pool.
// Later calls return the result of the first.
func (r *Registry) Stop(context.Context) error {
	if r.stopped.CompareAndSwap(false, true) {
		r.log.Info("shutting down http clients", logger.Fields("clients", len(r.Names())))
	}
	return r.pools.DestroyAll()
}

// Health reports unhealthy once the registry has been stopped.
func (r *Registry) Health(context.Context) component.Health {
	if r.stopped.Load() || r.pools.Destroyed() {
		return component.Health{Name: ComponentName, Status: component.StatusUnhealthy, Message: "connection pools destroyed"}
	}
	return component.Health{Name: ComponentName, Status: component.StatusHealthy}
}

// Describe implements component.Describable.
func (r *Registry) Describe() component.Description {
	return component.Description{
		Name:    ComponentName,
		Type:    "http-clients",
		Details: fmt.Sprintf("clients=%d private_pools=%d", len(r.Names()), r.pools.PrivateCount()),
	}
}
