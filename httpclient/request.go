package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kbukum/httpkit/body"
	"github.com/kbukum/httpkit/errors"
)

// Request is an immutable description of an outbound HTTP request.
// Create one with a Builder.
type Request struct {
	method                          string
	uri                             *url.URL
	headers                         Headers
	body                            body.Source
	followRedirects                 bool
	preserveAuthorizationOnRedirect bool
}

// Method returns the HTTP method.
func (r *Request) Method() string { return r.method }

// URI returns a copy of the request URI.
func (r *Request) URI() *url.URL {
	u := *r.uri
	return &u
}

// Header returns the first value of the named header.
func (r *Request) Header(name string) string { return r.headers.Get(name) }

// Headers returns the header multimap.
func (r *Request) Headers() Headers { return r.headers }

// Body returns the body source, nil when the request has no body.
func (r *Request) Body() body.Source { return r.body }

// FollowRedirects reports whether the transport should follow redirects.
func (r *Request) FollowRedirects() bool { return r.followRedirects }

// PreserveAuthorizationOnRedirect reports whether the Authorization header
// is sent again to a redirect target.
func (r *Request) PreserveAuthorizationOnRedirect() bool {
	return r.preserveAuthorizationOnRedirect
}

// Equal compares every field. Bodies compare as described by body.Equal.
func (r *Request) Equal(o *Request) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.method == o.method &&
		r.uri.String() == o.uri.String() &&
		r.headers.Equal(o.headers) &&
		body.Equal(r.body, o.body) &&
		r.followRedirects == o.followRedirects &&
		r.preserveAuthorizationOnRedirect == o.preserveAuthorizationOnRedirect
}

// Hash is consistent with Equal.
func (r *Request) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(r.method)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(r.uri.String())
	_, _ = d.Write([]byte{0, boolByte(r.followRedirects), boolByte(r.preserveAuthorizationOnRedirect)})
	return d.Sum64() ^ r.headers.Hash() ^ body.Hash(r.body)*31
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (r *Request) String() string {
	return fmt.Sprintf("Request{method=%s, uri=%s, headers=%s, body=%s, followRedirects=%t, preserveAuthorizationOnRedirect=%t}",
		r.method, r.uri, r.headers, body.KindOf(r.body), r.followRedirects, r.preserveAuthorizationOnRedirect)
}

// Builder accumulates request fields. Validation happens in Build.
type Builder struct {
	method                          string
	uri                             *url.URL
	headers                         Headers
	body                            body.Source
	followRedirects                 bool
	preserveAuthorizationOnRedirect bool
}

// NewBuilder returns a builder that follows redirects by default.
func NewBuilder() *Builder {
	return &Builder{followRedirects: true}
}

func PrepareGet() *Builder    { return NewBuilder().SetMethod(http.MethodGet) }
func PreparePost() *Builder   { return NewBuilder().SetMethod(http.MethodPost) }
func PreparePut() *Builder    { return NewBuilder().SetMethod(http.MethodPut) }
func PrepareDelete() *Builder { return NewBuilder().SetMethod(http.MethodDelete) }
func PrepareHead() *Builder   { return NewBuilder().SetMethod(http.MethodHead) }
func PreparePatch() *Builder  { return NewBuilder().SetMethod(http.MethodPatch) }

// FromRequest returns a builder holding every field of r.
func FromRequest(r *Request) *Builder {
	return &Builder{
		method:                          r.method,
		uri:                             r.URI(),
		headers:                         r.headers.clone(),
		body:                            r.body,
		followRedirects:                 r.followRedirects,
		preserveAuthorizationOnRedirect: r.preserveAuthorizationOnRedirect,
	}
}

func (b *Builder) SetMethod(method string) *Builder {
	b.method = method
	return b
}

func (b *Builder) SetURI(u *url.URL) *Builder {
	b.uri = u
	return b
}

// AddHeader appends a value, keeping any existing values for name.
func (b *Builder) AddHeader(name, value string) *Builder {
	b.headers.add(name, value)
	return b
}

// SetHeader replaces every value for name.
func (b *Builder) SetHeader(name string, values ...string) *Builder {
	b.headers.set(name, values...)
	return b
}

// RemoveHeader drops every value for name.
func (b *Builder) RemoveHeader(name string) *Builder {
	b.headers.remove(name)
	return b
}

// AddHeaders appends every entry of h.
func (b *Builder) AddHeaders(h Headers) *Builder {
	h.Each(func(name HeaderName, value string) {
		b.headers.add(name.String(), value)
	})
	return b
}

func (b *Builder) SetBodySource(src body.Source) *Builder {
	b.body = src
	return b
}

func (b *Builder) SetFollowRedirects(follow bool) *Builder {
	b.followRedirects = follow
	return b
}

func (b *Builder) SetPreserveAuthorizationOnRedirect(preserve bool) *Builder {
	b.preserveAuthorizationOnRedirect = preserve
	return b
}

// Build validates the accumulated fields and returns an immutable Request.
func (b *Builder) Build() (*Request, error) {
	if b.method == "" {
		return nil, errors.InvalidArgument("method is empty").WithOp("request.build")
	}
	if err := validateURI(b.uri); err != nil {
		return nil, err.WithOp("request.build")
	}
	r := &Request{
		method:                          b.method,
		headers:                         b.headers.clone(),
		body:                            b.body,
		followRedirects:                 b.followRedirects,
		preserveAuthorizationOnRedirect: b.preserveAuthorizationOnRedirect,
	}
	u := *b.uri
	r.uri = &u
	return r, nil
}

func validateURI(u *url.URL) *errors.Error {
	if u == nil {
		return errors.InvalidArgument("uri is nil")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return errors.InvalidArgument("uri scheme must be http or https: %s", u)
	}
	if u.Hostname() == "" {
		return errors.InvalidArgument("uri does not have a host: %s", u)
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return errors.InvalidArgument("uri has an invalid port: %s", u)
		}
		if port == 0 {
			return errors.InvalidArgument("Cannot make requests to HTTP port 0")
		}
		if port > 65535 {
			return errors.InvalidArgument("port must be in the range 1-65535: %d", port)
		}
	}
	return nil
}
