package pool

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
)

func newRegistry() *Registry {
	return NewRegistry(Config{MaxConnections: 8}, WithLogger(logger.Nop()))
}

func TestRegistry_SharedByDefault(t *testing.T) {
	r := newRegistry()

	a, err := r.Bind("users", false, Config{})
	require.NoError(t, err)
	b, err := r.Bind("orders", false, Config{MaxConnections: 1})
	require.NoError(t, err)

	assert.Same(t, r.Shared(), a)
	assert.Same(t, a, b)
	assert.Equal(t, SharedName, a.Name())
	assert.Equal(t, []string{"orders", "users"}, r.Clients())
	assert.Equal(t, 0, r.PrivateCount())
}

func TestRegistry_PrivatePool(t *testing.T) {
	r := newRegistry()

	m, err := r.Bind("billing", true, Config{MaxConnections: 2})
	require.NoError(t, err)
	assert.False(t, m.Shared())
	assert.Equal(t, "billing", m.Name())
	assert.NotSame(t, r.Shared(), m)

	p, err := m.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, p.Limit())

	again, err := r.Bind("billing", true, Config{})
	require.NoError(t, err)
	assert.Same(t, m, again)

	got, ok := r.Lookup("billing")
	require.True(t, ok)
	assert.Same(t, m, got)
	assert.Equal(t, 1, r.PrivateCount())
}

func TestRegistry_ConflictingBinding(t *testing.T) {
	r := newRegistry()

	_, err := r.Bind("users", false, Config{})
	require.NoError(t, err)
	_, err = r.Bind("users", true, Config{})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
	assert.Contains(t, err.Error(), "already bound to the shared pool")

	_, err = r.Bind("billing", true, Config{})
	require.NoError(t, err)
	_, err = r.Bind("billing", false, Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already bound to a private pool")
}

func TestRegistry_EmptyClientName(t *testing.T) {
	_, err := newRegistry().Bind("", false, Config{})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}

func TestRegistry_DestroyAllOrder(t *testing.T) {
	r := newRegistry()

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"a", "b"} {
		m, err := r.Bind(name, true, Config{})
		require.NoError(t, err)
		require.NoError(t, m.AddClient(&recordingCloser{name: name, order: &order, mu: &mu}))
	}
	shared, err := r.Bind("c", false, Config{})
	require.NoError(t, err)
	require.NoError(t, shared.AddClient(&recordingCloser{name: "c", order: &order, mu: &mu}))

	require.NoError(t, r.DestroyAll())
	assert.Equal(t, []string{"b", "a", "c"}, order)
	assert.True(t, r.Shared().IsDestroyed())
	assert.True(t, r.Destroyed())

	require.NoError(t, r.DestroyAll())
	assert.Len(t, order, 3)

	_, err = r.Bind("d", false, Config{})
	assert.ErrorIs(t, err, ErrDestroyed)
}

func TestRegistry_SharedDestroyedOnceUnderConcurrentShutdown(t *testing.T) {
	r := newRegistry()
	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"x", "y", "z"} {
		m, err := r.Bind(name, false, Config{})
		require.NoError(t, err)
		require.NoError(t, m.AddClient(&recordingCloser{name: name, order: &order, mu: &mu}))
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			_ = r.DestroyAll()
			_ = r.Shared().Destroy()
		})
	}
	wg.Wait()

	assert.Equal(t, []string{"z", "y", "x"}, order)
}

func TestRegistry_DestroyAllRepeatsFirstError(t *testing.T) {
	r := newRegistry()
	var (
		mu    sync.Mutex
		order []string
	)
	failure := fmt.Errorf("close failed")
	m, err := r.Bind("a", true, Config{})
	require.NoError(t, err)
	require.NoError(t, m.AddClient(&recordingCloser{name: "a", order: &order, mu: &mu, err: failure}))

	first := r.DestroyAll()
	require.ErrorIs(t, first, failure)
	assert.Equal(t, first, r.DestroyAll())
	assert.Len(t, order, 1)
}

func TestRegistry_Unbind(t *testing.T) {
	r := newRegistry()

	private, err := r.Bind("billing", true, Config{MaxConnections: 2})
	require.NoError(t, err)
	_, err = private.Get()
	require.NoError(t, err)

	require.NoError(t, r.Unbind("billing"))
	assert.True(t, private.IsDestroyed())
	assert.Equal(t, 0, r.PrivateCount())
	assert.Empty(t, r.Clients())

	shared, err := r.Bind("billing", false, Config{})
	require.NoError(t, err, "a released name can be bound again with another choice")
	assert.Same(t, r.Shared(), shared)

	require.NoError(t, r.Unbind("billing"))
	assert.False(t, r.Shared().IsDestroyed())
	require.NoError(t, r.Unbind("never-bound"))

	again, err := r.Bind("billing", true, Config{})
	require.NoError(t, err)
	assert.NotSame(t, private, again)
	assert.Equal(t, 1, r.PrivateCount())
}
