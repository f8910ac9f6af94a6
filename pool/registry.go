package pool

import (
	"maps"
	"slices"
	"sync"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
)

// SharedName names the shared manager.
const SharedName = "shared"

// Registry binds client names to managers: every client uses the shared
// manager unless it asks for a private one. A client keeps its binding for
// the life of the registry.
type Registry struct {
	mu        sync.Mutex
	shared    *Manager
	bindings  map[string]*Manager
	private   []*Manager
	opts      []Option
	destroyed bool

	destroyOnce sync.Once
	destroyErr  error
}

// NewRegistry returns a registry whose shared manager uses sharedConfig.
// opts apply to every manager the registry creates.
func NewRegistry(sharedConfig Config, opts ...Option) *Registry {
	return &Registry{
		shared:   NewManager(SharedName, true, sharedConfig, opts...),
		bindings: make(map[string]*Manager),
		opts:     opts,
	}
}

// Shared returns the shared manager.
func (r *Registry) Shared() *Manager { return r.shared }

// Bind returns the manager for client. With private set a new manager
// built from cfg is created for it; otherwise cfg is ignored and the shared
// manager is used. Binding a client again with the same choice returns the
// existing manager; switching between shared and private is an
// invalid-argument error.
func (r *Registry) Bind(client string, private bool, cfg Config) (*Manager, error) {
	if client == "" {
		return nil, errors.InvalidArgument("client name is empty").WithOp("pool.bind")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return nil, ErrDestroyed
	}

	if existing, ok := r.bindings[client]; ok {
		if existing.Shared() == private {
			return nil, errors.InvalidArgument("client %q is already bound to %s, cannot bind it to %s",
				client, describe(!private), describe(private)).WithOp("pool.bind")
		}
		return existing, nil
	}

	m := r.shared
	if private {
		m = NewManager(client, false, cfg, r.opts...)
		r.private = append(r.private, m)
	}
	r.bindings[client] = m

	logger.Get("pool").Debug("client bound", logger.Fields(
		logger.FieldClient, client,
		logger.FieldPool, m.Name(),
		"shared", m.Shared(),
	))
	return m, nil
}

// Unbind removes the binding of client so that it can be bound again,
// destroying its manager if it was private. It undoes a Bind whose client
// could not be created; unknown names are ignored.
func (r *Registry) Unbind(client string) error {
	r.mu.Lock()
	m, ok := r.bindings[client]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.bindings, client)
	if !m.Shared() {
		r.private = slices.DeleteFunc(r.private, func(p *Manager) bool { return p == m })
	}
	r.mu.Unlock()

	logger.Get("pool").Debug("client unbound", logger.Fields(
		logger.FieldClient, client,
		logger.FieldPool, m.Name(),
	))
	if m.Shared() {
		return nil
	}
	return m.Destroy()
}

func describe(private bool) string {
	if private {
		return "a private pool"
	}
	return "the shared pool"
}

// Lookup returns the manager bound to client.
func (r *Registry) Lookup(client string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.bindings[client]
	return m, ok
}

// Clients returns the bound client names, sorted.
func (r *Registry) Clients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.bindings))
}

// PrivateCount returns the number of private managers.
func (r *Registry) PrivateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.private)
}

// DestroyAll destroys the private managers in reverse creation order and
// then the shared manager. No client can be bound afterwards. Every call
// waits for the first to finish and returns its result.
func (r *Registry) DestroyAll() error {
	r.destroyOnce.Do(func() {
		r.mu.Lock()
		r.destroyed = true
		private := slices.Clone(r.private)
		r.mu.Unlock()

		var errs []error
		for _, m := range slices.Backward(private) {
			if err := m.Destroy(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := r.shared.Destroy(); err != nil {
			errs = append(errs, err)
		}
		r.destroyErr = errors.Join(errs...)
	})
	return r.destroyErr
}

// Destroyed reports whether DestroyAll has been called.
func (r *Registry) Destroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}
