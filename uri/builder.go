package uri

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/kbukum/httpkit/errors"
)

// Builder assembles absolute http(s) URIs with RFC 3986 compatible encoding.
//
// Setters never fail; the first invalid argument is remembered and returned
// by Build.
type Builder struct {
	scheme   string
	userInfo string
	host     string
	port     int
	components
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{port: -1}
}

// From returns a builder initialized from an absolute URI. The encoded path
// and query of u are preserved verbatim until they are changed.
func From(u *url.URL) *Builder {
	b := New()
	if u == nil {
		b.fail(errors.InvalidArgument("uri is nil"))
		return b
	}
	if u.Scheme == "" {
		b.fail(errors.InvalidArgument("URI does not have a scheme: %s", u))
		return b
	}
	if u.Hostname() == "" {
		b.fail(errors.InvalidArgument("URI does not have a host: %s", u))
		return b
	}

	b.scheme = u.Scheme
	if u.User != nil {
		b.userInfo = u.User.String()
	}
	b.host = u.Hostname()
	if strings.Contains(b.host, ":") {
		b.host = bracketIPv6(b.host)
	}
	if p := u.Port(); p != "" {
		port, err := parsePort(p)
		if err != nil {
			b.fail(err)
		}
		b.port = port
	}
	b.load(u)
	return b
}

// Parse is From for a URI string.
func Parse(rawURI string) *Builder {
	u, err := url.Parse(rawURI)
	if err != nil {
		b := New()
		b.fail(errors.InvalidArgument("invalid URI %q", rawURI).WithCause(err))
		return b
	}
	return From(u)
}

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	cp := *b
	cp.components = b.components.clone()
	return &cp
}

func (b *Builder) Scheme(scheme string) *Builder {
	b.scheme = scheme
	return b
}

// UserInfo sets the already-encoded user information ("user:pass").
func (b *Builder) UserInfo(userInfo string) *Builder {
	b.userInfo = userInfo
	return b
}

// Host sets the host. IPv6 literals must be passed without brackets.
func (b *Builder) Host(host string) *Builder {
	h, err := normalizeHost(host)
	if err != nil {
		b.fail(err)
		return b
	}
	b.host = h
	return b
}

func (b *Builder) Port(port int) *Builder {
	if err := checkPort(port); err != nil {
		b.fail(err)
		return b
	}
	b.port = port
	return b
}

// DefaultPort removes any explicit port.
func (b *Builder) DefaultPort() *Builder {
	b.port = -1
	return b
}

// HostAndPort sets host and port from "host[:port]". A missing port resets
// the port to the scheme default.
func (b *Builder) HostAndPort(hostPort string) *Builder {
	host, port, err := splitHostPort(hostPort)
	if err != nil {
		b.fail(err)
		return b
	}
	b.host = host
	b.port = port
	return b
}

// ReplacePath replaces the path with the given unencoded path.
func (b *Builder) ReplacePath(path string) *Builder {
	b.replacePath(path)
	return b
}

// AppendPath appends an unencoded path. '/' characters are treated as
// separators; a duplicate slash at the seam is dropped.
func (b *Builder) AppendPath(path string) *Builder {
	b.appendPath(path)
	return b
}

// AddParameter appends values for name. With no values a flag parameter
// ("?name") is added.
func (b *Builder) AddParameter(name string, values ...string) *Builder {
	b.addParameter(name, values)
	return b
}

// ReplaceParameter removes every value of name and appends the given values.
func (b *Builder) ReplaceParameter(name string, values ...string) *Builder {
	b.replaceParameter(name, values)
	return b
}

// ReplaceRawQuery sets an already-encoded query string.
func (b *Builder) ReplaceRawQuery(rawQuery string) *Builder {
	b.replaceRawQuery(rawQuery)
	return b
}

// String renders the URI without validation.
func (b *Builder) String() string {
	var sb strings.Builder
	sb.WriteString(b.scheme)
	sb.WriteString("://")
	if b.userInfo != "" {
		sb.WriteString(b.userInfo)
		sb.WriteByte('@')
	}
	sb.WriteString(b.host)
	if b.port != -1 && b.port != defaultPortFor(b.scheme) {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(b.port))
	}

	path := b.encodedPath()
	query := b.encodedQuery()
	if path == "" && query != "" {
		path = "/"
	}
	sb.WriteString(path)
	if query != "" || b.emptyQuery() {
		sb.WriteByte('?')
		sb.WriteString(query)
	}
	return sb.String()
}

// Build validates the builder and returns the URI.
func (b *Builder) Build() (*url.URL, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.scheme == "" {
		return nil, errors.IllegalState("scheme has not been set")
	}
	if b.host == "" {
		return nil, errors.IllegalState("host has not been set")
	}
	u, err := url.Parse(b.String())
	if err != nil {
		return nil, errors.InvalidArgument("invalid URI %q", b.String()).WithCause(err)
	}
	return u, nil
}

// MustBuild is Build that panics on error. Intended for constants and tests.
func (b *Builder) MustBuild() *url.URL {
	u, err := b.Build()
	if err != nil {
		panic(err)
	}
	return u
}
