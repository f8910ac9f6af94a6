// Package pool manages the connection pools behind named HTTP clients.
//
// A Pool wraps an *http.Transport and a weighted semaphore bounding the
// requests in flight. A Manager creates its Pool lazily and tears it down
// once, closing the clients it serves first. A Registry hands every client
// either the shared Manager or a private one:
//
//	reg := pool.NewRegistry(pool.DefaultConfig())
//	m, err := reg.Bind("billing", true, pool.Config{MaxConnections: 10})
//	p, err := m.Get()
//	...
//	defer reg.DestroyAll()
package pool
