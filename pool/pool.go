package pool

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/kbukum/httpkit/errors"
)

// ErrClosed is returned when acquiring a slot from a closed pool.
var ErrClosed = errors.New(errors.KindIllegalState, "connection pool is closed")

// Pool owns an HTTP transport and bounds the number of requests in flight
// through it.
type Pool struct {
	name      string
	config    Config
	transport *http.Transport
	slots     *semaphore.Weighted
	inFlight  atomic.Int64
	closed    atomic.Bool
}

// New builds a pool from cfg. Zero-value fields take their defaults.
func New(name string, cfg Config) (*Pool, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tlsConfig, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: cfg.KeepAlive,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     !cfg.DisableHTTP2,
		MaxIdleConns:          cfg.MaxIdleConnections,
		MaxIdleConnsPerHost:   cfg.MaxConnectionsPerServer,
		MaxConnsPerHost:       cfg.MaxConnectionsPerServer,
		IdleConnTimeout:       cfg.IdleTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		TLSClientConfig:       tlsConfig,
	}
	if cfg.DisableHTTP2 {
		// A non-nil empty map keeps net/http from negotiating h2.
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}

	return &Pool{
		name:      name,
		config:    cfg,
		transport: transport,
		slots:     semaphore.NewWeighted(int64(cfg.MaxConnections)),
	}, nil
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Config returns the effective configuration, defaults applied.
func (p *Pool) Config() Config { return p.config }

// Transport returns the transport shared by every client of the pool.
func (p *Pool) Transport() *http.Transport { return p.transport }

// Acquire waits for a request slot. The returned release function frees the
// slot and may be called more than once.
func (p *Pool) Acquire(ctx context.Context) (release func(), err error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	if err := p.slots.Acquire(ctx, 1); err != nil {
		if cerr := errors.FromContext("pool.acquire", err); cerr != nil {
			return nil, cerr
		}
		return nil, errors.Interrupted("pool.acquire", err)
	}
	return p.granted(), nil
}

// TryAcquire takes a slot only if one is free.
func (p *Pool) TryAcquire() (release func(), ok bool) {
	if p.closed.Load() || !p.slots.TryAcquire(1) {
		return nil, false
	}
	return p.granted(), true
}

func (p *Pool) granted() func() {
	p.inFlight.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			p.inFlight.Add(-1)
			p.slots.Release(1)
		})
	}
}

// InFlight returns the number of slots currently held.
func (p *Pool) InFlight() int64 { return p.inFlight.Load() }

// Limit returns the maximum number of slots.
func (p *Pool) Limit() int { return p.config.MaxConnections }

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool { return p.closed.Load() }

// Close rejects new slots and closes idle connections. Requests already
// holding a slot finish normally. Close is idempotent.
func (p *Pool) Close() {
	if p.closed.CompareAndSwap(false, true) {
		p.transport.CloseIdleConnections()
	}
}
