package httpclient

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/httpkit/body"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/observability"
	"github.com/kbukum/httpkit/resilience"
)

// ResponseHandler turns the outcome of one attempt into a typed result.
// A transport calls exactly one of its methods per attempt: Handle when a
// response arrived, HandleError when none did.
type ResponseHandler[T any] interface {
	Handle(req *Request, resp Response) (T, error)
	HandleError(req *Request, err error) (T, error)
}

// HandlerFuncs builds a ResponseHandler from two functions. A nil OnError
// returns the transport failure unchanged.
type HandlerFuncs[T any] struct {
	OnResponse func(req *Request, resp Response) (T, error)
	OnError    func(req *Request, err error) (T, error)
}

func (h HandlerFuncs[T]) Handle(req *Request, resp Response) (T, error) {
	return h.OnResponse(req, resp)
}

func (h HandlerFuncs[T]) HandleError(req *Request, err error) (T, error) {
	if h.OnError == nil {
		var zero T
		return zero, err
	}
	return h.OnError(req, err)
}

// Transport sends a request and returns the response, or the failure that
// prevented one. Client is the net/http implementation.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (Response, error)
}

// Execute sends req once and passes the outcome to h. The response is
// closed after Handle returns.
func Execute[T any](ctx context.Context, t Transport, req *Request, h ResponseHandler[T]) (T, error) {
	resp, err := t.RoundTrip(ctx, req)
	if err != nil {
		return h.HandleError(req, err)
	}
	defer func() { _ = resp.Close() }()
	return h.Handle(req, resp)
}

// ExecuteWithRetry runs Execute under driver. A request whose body cannot be
// replayed is attempted once. A stream body becomes unreplayable once an
// attempt has read it, so the loop ends there with that attempt's error.
func ExecuteWithRetry[T any](ctx context.Context, t Transport, driver *resilience.RetryDriver, req *Request, h ResponseHandler[T]) (T, error) {
	d := driver.StopOnErrors(body.ErrGeneratorConsumed, body.ErrStreamConsumed).
		StopOn(func(error) bool { return !body.IsReplayable(req.Body()) })
	if !body.IsReplayable(req.Body()) {
		d = d.MaxAttempts(1)
	}
	return resilience.Retry(ctx, d, req.Method()+" "+req.uri.Redacted(), func(ctx context.Context) (T, error) {
		return Execute(ctx, t, req, h)
	})
}

// NotRetryable matches failures that another attempt cannot fix: invalid
// arguments, illegal state, cancellation, undecodable bodies and
// unexpected statuses other than 429 and 5xx.
func NotRetryable(err error) bool {
	switch errors.KindOf(err) {
	case errors.KindInvalidArgument, errors.KindIllegalState, errors.KindInterrupted, errors.KindDecode:
		return true
	case errors.KindUnexpectedStatus:
		return !errors.IsRetryable(err)
	}
	return false
}

// Send runs ExecuteWithRetry with the client's retry driver, recording the
// attempt count on a retry span.
func Send[T any](ctx context.Context, c *Client, req *Request, h ResponseHandler[T]) (T, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRetry,
		trace.WithAttributes(attribute.String(observability.AttrClientName, c.Name())))
	defer span.End()

	driver := c.RetryDriver().OnRetry(func(attempt int) {
		span.SetAttributes(attribute.Int(observability.AttrAttempt, attempt))
		c.metrics.Retried(ctx, c.name)
	})
	v, err := ExecuteWithRetry(ctx, c, driver, req, h)
	observability.SetSpanError(span, err)
	return v, err
}
