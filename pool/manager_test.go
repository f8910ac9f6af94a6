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

type recordingCloser struct {
	name  string
	order *[]string
	mu    *sync.Mutex
	err   error
}

func (c *recordingCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.order = append(*c.order, c.name)
	return c.err
}

func newManager(shared bool) *Manager {
	return NewManager("test", shared, Config{MaxConnections: 4}, WithLogger(logger.Nop()))
}

func TestManager_GetIsLazyAndCached(t *testing.T) {
	m := newManager(true)
	assert.Equal(t, "test", m.Name())
	assert.True(t, m.Shared())

	p1, err := m.Get()
	require.NoError(t, err)
	p2, err := m.Get()
	require.NoError(t, err)
	assert.Same(t, p1, p2)
}

func TestManager_GetInvalidConfigNotCached(t *testing.T) {
	m := NewManager("bad", false, Config{MaxConnections: -1}, WithLogger(logger.Nop()))
	_, err := m.Get()
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))

	_, err = m.Get()
	assert.Error(t, err)
}

func TestManager_DestroyClosesClientsThenPool(t *testing.T) {
	m := newManager(false)
	p, err := m.Get()
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []string
	)
	require.NoError(t, m.AddClient(&recordingCloser{name: "first", order: &order, mu: &mu}))
	require.NoError(t, m.AddClient(&recordingCloser{name: "second", order: &order, mu: &mu}))
	assert.Equal(t, 2, m.Clients())

	require.NoError(t, m.Destroy())
	assert.Equal(t, []string{"second", "first"}, order)
	assert.True(t, p.Closed())
	assert.True(t, m.IsDestroyed())
	assert.Equal(t, 0, m.Clients())
}

func TestManager_DestroyTwiceEqualsOnce(t *testing.T) {
	m := newManager(true)
	var (
		mu    sync.Mutex
		order []string
	)
	closeErr := fmt.Errorf("close failed")
	require.NoError(t, m.AddClient(&recordingCloser{name: "c", order: &order, mu: &mu, err: closeErr}))

	err1 := m.Destroy()
	err2 := m.Destroy()
	assert.ErrorIs(t, err1, closeErr)
	assert.Equal(t, err1, err2)
	assert.Equal(t, []string{"c"}, order, "clients closed once")
}

func TestManager_ConcurrentDestroy(t *testing.T) {
	m := newManager(true)
	_, err := m.Get()
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []string
	)
	require.NoError(t, m.AddClient(&recordingCloser{name: "c", order: &order, mu: &mu}))

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() { _ = m.Destroy() })
	}
	wg.Wait()

	assert.Len(t, order, 1)
	assert.True(t, m.IsDestroyed())
}

func TestManager_UseAfterDestroy(t *testing.T) {
	m := newManager(false)
	require.NoError(t, m.Destroy())

	_, err := m.Get()
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.True(t, errors.IsKind(err, errors.KindIllegalState))

	err = m.AddClient(&recordingCloser{})
	assert.ErrorIs(t, err, ErrDestroyed)
}

func TestManager_DestroyWithoutPool(t *testing.T) {
	m := newManager(false)
	assert.NoError(t, m.Destroy())
	assert.True(t, m.IsDestroyed())
}
