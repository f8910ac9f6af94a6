package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/httpkit/body"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/observability"
	"github.com/kbukum/httpkit/pool"
	"github.com/kbukum/httpkit/resilience"
	"github.com/kbukum/httpkit/uri"
	"github.com/kbukum/httpkit/version"
)

// ErrClientClosed is returned by RoundTrip once the client has been closed.
var ErrClientClosed = errors.New(errors.KindIllegalState, "http client is closed")

// Client sends Requests over a connection pool owned by a pool.Manager.
// It implements Transport.
type Client struct {
	name    string
	config  Config
	manager *pool.Manager
	filters []RequestFilter
	limiter *resilience.RateLimiter
	driver  *resilience.RetryDriver
	log     *logger.Logger
	metrics *observability.ClientMetrics

	closed atomic.Bool
}

type settings struct {
	log     *logger.Logger
	metrics *observability.ClientMetrics
	filters []RequestFilter
}

// Option configures a Client or a Registry.
type Option func(*settings)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithMetrics records requests, retries and pool events on metrics.
func WithMetrics(m *observability.ClientMetrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithFilters adds request filters that run before the ones derived from
// the client configuration.
func WithFilters(filters ...RequestFilter) Option {
	return func(s *settings) { s.filters = append(s.filters, filters...) }
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.Get("httpclient")
	}
	return s
}

// New returns a client named name using the pool of manager. The client
// registers itself with the manager, which closes it on Destroy.
func New(name string, cfg Config, manager *pool.Manager, opts ...Option) (*Client, error) {
	if name == "" {
		return nil, errors.InvalidArgument("client name is empty").WithOp("httpclient.new")
	}
	if manager == nil {
		return nil, errors.InvalidArgument("client %q has no pool manager", name).WithOp("httpclient.new")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := newSettings(opts)
	c := &Client{
		name:    name,
		config:  cfg,
		manager: manager,
		log:     s.log.WithFields(logger.Fields(logger.FieldClient, name)),
		metrics: s.metrics,
	}

	filters, err := configFilters(cfg)
	if err != nil {
		return nil, err
	}
	c.filters = slices.Concat(s.filters, filters)

	if cfg.RateLimit != nil {
		rl := *cfg.RateLimit
		rl.Name = name
		if rl.OnLimit == nil {
			rl.OnLimit = func(n string) { c.log.Debug("rate limited", logger.Fields(logger.FieldClient, n)) }
		}
		c.limiter = resilience.NewRateLimiter(rl)
	}

	c.driver = resilience.NewRetryDriverWithPolicy(cfg.Retry).
		StopOn(NotRetryable).
		WithLogger(c.log).
		OnRetry(func(int) { c.metrics.Retried(context.Background(), name) })

	if err := manager.AddClient(c); err != nil {
		return nil, err
	}
	return c, nil
}

func configFilters(cfg Config) ([]RequestFilter, error) {
	ua := cfg.UserAgent
	if ua == "" {
		ua = version.UserAgent()
	}
	filters := []RequestFilter{UserAgentFilter(ua), RequestIDFilter()}
	if len(cfg.Headers) > 0 {
		filters = append(filters, DefaultHeadersFilter(cfg.Headers))
	}
	auth, err := cfg.Auth.Filter()
	if err != nil {
		return nil, err
	}
	if auth != nil {
		filters = append(filters, auth)
	}
	return filters, nil
}

// Name returns the client name.
func (c *Client) Name() string { return c.name }

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.config }

// Manager returns the pool manager the client is bound to.
func (c *Client) Manager() *pool.Manager { return c.manager }

// RetryDriver returns the driver built from the retry policy. It stops on
// failures matched by NotRetryable.
func (c *Client) RetryDriver() *resilience.RetryDriver { return c.driver }

// URI returns a builder starting at the base URL with path appended. Without
// a base URL, path is parsed as an absolute URI.
func (c *Client) URI(path string) *uri.Builder {
	if c.config.BaseURL == "" {
		return uri.Parse(path)
	}
	return uri.Parse(c.config.BaseURL).AppendPath(path)
}

// Close marks the client closed. Later calls to RoundTrip fail; responses
// already returned stay readable.
func (c *Client) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.log.Debug("http client closed")
	}
	return nil
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool { return c.closed.Load() }

// RoundTrip sends req once. The caller must close the returned Response,
// which releases the pool slot held for it.
func (c *Client) RoundTrip(ctx context.Context, req *Request) (Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if req == nil {
		return nil, errors.InvalidArgument("request is nil").WithOp("httpclient.round_trip")
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanClientRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(observability.AttrClientName, c.name),
			attribute.String(observability.AttrPoolName, c.manager.Name()),
			attribute.String(observability.AttrMethod, req.Method()),
			attribute.String(observability.AttrURL, req.uri.Redacted()),
			attribute.Bool(observability.AttrFollowRedirect, req.FollowRedirects()),
		))
	defer span.End()

	start := time.Now()
	c.metrics.RequestStarted(ctx, c.name)

	resp, err := c.roundTrip(ctx, req)

	elapsed := time.Since(start)
	fields := logger.Fields(
		logger.FieldMethod, req.Method(),
		logger.FieldURI, req.uri.Redacted(),
		logger.FieldDuration, elapsed.Milliseconds(),
	)
	if err != nil {
		span.SetAttributes(attribute.String(observability.AttrErrorKind, string(errors.KindOf(err))))
		observability.SetSpanError(span, err)
		c.metrics.RequestFinished(ctx, c.name, req.Method(), observability.OutcomeError, 0, elapsed)
		c.log.WithError(err).Debug("request failed", fields)
		return nil, err
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int(observability.AttrStatusCode, status))
	outcome := observability.OutcomeSuccess
	if status >= http.StatusBadRequest {
		outcome = observability.OutcomeStatus
	}
	c.metrics.RequestFinished(ctx, c.name, req.Method(), outcome, status, elapsed)
	fields[logger.FieldStatus] = status
	c.log.Debug("response received", fields)
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, req *Request) (Response, error) {
	req, err := applyFilters(ctx, req, c.filters)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	p, err := c.manager.Get()
	if err != nil {
		return nil, err
	}
	release, err := p.Acquire(ctx)
	if err != nil {
		c.metrics.PoolEvent(ctx, p.Name(), c.manager.Shared(), observability.PoolRejected)
		return nil, err
	}

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		release()
		return nil, err
	}

	resp, err := c.httpClient(p).Do(httpReq)
	if err != nil {
		release()
		return nil, classify(ctx, "httpclient.round_trip", err)
	}
	return newHTTPResponse(resp, release), nil
}

type redirectPolicyKey struct{}

type redirectPolicy struct {
	follow        bool
	preserveAuth  bool
	authorization []string
}

func (c *Client) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	policy := &redirectPolicy{
		follow:        req.FollowRedirects(),
		preserveAuth:  req.PreserveAuthorizationOnRedirect(),
		authorization: req.headers.Values("Authorization"),
	}
	ctx = context.WithValue(ctx, redirectPolicyKey{}, policy)

	rc, size, err := body.Open(req.Body())
	if err != nil {
		return nil, err
	}
	var reader io.Reader = http.NoBody
	if rc != nil {
		reader = rc
	}

	u := *req.uri
	httpReq, err := http.NewRequestWithContext(ctx, req.Method(), u.String(), reader)
	if err != nil {
		if rc != nil {
			_ = rc.Close()
		}
		return nil, errors.InvalidArgument("cannot build request for %s", u.Redacted()).WithCause(err)
	}
	// Keep the exact URL rather than a reparse of its string form.
	httpReq.URL = &u
	httpReq.Header = req.headers.HTTPHeader()
	if rc != nil {
		httpReq.ContentLength = size
		if size < 0 {
			httpReq.ContentLength = -1
		}
	}

	src := req.Body()
	switch src.(type) {
	case *body.StaticSource, *body.FileSource, *body.DynamicSource:
		httpReq.GetBody = func() (io.ReadCloser, error) {
			rc, _, err := body.Open(src)
			return rc, err
		}
	}

	observability.InjectHeaders(ctx, propagation.HeaderCarrier(httpReq.Header))
	return httpReq, nil
}

func (c *Client) httpClient(p *pool.Pool) *http.Client {
	return &http.Client{
		Transport:     p.Transport(),
		Timeout:       c.config.Timeout,
		CheckRedirect: c.checkRedirect,
	}
}

func (c *Client) checkRedirect(next *http.Request, via []*http.Request) error {
	policy, _ := next.Context().Value(redirectPolicyKey{}).(*redirectPolicy)
	if policy == nil || !policy.follow || c.config.MaxRedirects == NoRedirects {
		return http.ErrUseLastResponse
	}
	if len(via) > c.config.MaxRedirects {
		return &errors.Error{
			Kind:    errors.KindTransport,
			Op:      "httpclient.redirect",
			Message: "stopped after too many redirects",
			Details: map[string]any{"max_redirects": c.config.MaxRedirects},
		}
	}
	for k := range next.Header {
		if strings.EqualFold(k, "Authorization") {
			delete(next.Header, k)
		}
	}
	if policy.preserveAuth && len(policy.authorization) > 0 {
		next.Header["Authorization"] = slices.Clone(policy.authorization)
	}
	c.log.Debug("following redirect", logger.Fields(logger.FieldURI, next.URL.Redacted(), "hops", len(via)))
	return nil
}

// classify maps a failure from http.Client.Do onto an error kind. Errors
// already carrying a kind, such as a consumed body, pass through.
func classify(ctx context.Context, op string, err error) error {
	var e *errors.Error
	if errors.As(err, &e) {
		return e
	}
	if cerr := errors.FromContext(op, ctx.Err()); cerr != nil {
		return cerr.WithCause(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return errors.Timeout(op, err)
	}
	return errors.Transport(err).WithOp(op)
}
