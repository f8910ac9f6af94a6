package httpclient

import (
	"context"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
)

// HeaderRequestID carries the request id set by RequestIDFilter.
const HeaderRequestID = "X-Request-Id"

// RequestFilter rewrites a request before it is sent. Filters run in order
// on every attempt; each receives the previous filter's output.
type RequestFilter interface {
	FilterRequest(ctx context.Context, req *Request) (*Request, error)
}

// RequestFilterFunc adapts a function to RequestFilter.
type RequestFilterFunc func(ctx context.Context, req *Request) (*Request, error)

func (f RequestFilterFunc) FilterRequest(ctx context.Context, req *Request) (*Request, error) {
	return f(ctx, req)
}

func applyFilters(ctx context.Context, req *Request, filters []RequestFilter) (*Request, error) {
	for _, f := range filters {
		next, err := f.FilterRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, errors.IllegalState("request filter %T returned no request", f)
		}
		req = next
	}
	return req, nil
}

// UserAgentFilter sets the User-Agent header unless the request has one.
func UserAgentFilter(userAgent string) RequestFilter {
	return RequestFilterFunc(func(_ context.Context, req *Request) (*Request, error) {
		if req.headers.Has("User-Agent") || userAgent == "" {
			return req, nil
		}
		return FromRequest(req).SetHeader("User-Agent", userAgent).Build()
	})
}

// DefaultHeadersFilter adds each header the request does not already carry.
func DefaultHeadersFilter(headers map[string]string) RequestFilter {
	names := slices.Sorted(maps.Keys(headers))
	return RequestFilterFunc(func(_ context.Context, req *Request) (*Request, error) {
		var b *Builder
		for _, name := range names {
			if req.headers.Has(name) {
				continue
			}
			if b == nil {
				b = FromRequest(req)
			}
			b.AddHeader(name, headers[name])
		}
		if b == nil {
			return req, nil
		}
		return b.Build()
	})
}

// RequestIDFilter sets X-Request-Id unless present, taking the id from the
// context (see logger.ContextWithRequestID) or generating a UUID.
func RequestIDFilter() RequestFilter {
	return RequestFilterFunc(func(ctx context.Context, req *Request) (*Request, error) {
		if req.headers.Has(HeaderRequestID) {
			return req, nil
		}
		id, ok := logger.RequestIDFromContext(ctx)
		if !ok {
			id = uuid.NewString()
		}
		return FromRequest(req).SetHeader(HeaderRequestID, id).Build()
	})
}
