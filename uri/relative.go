package uri

import (
	"net/url"
	"strings"

	"github.com/kbukum/httpkit/errors"
)

// RelativeBuilder assembles path-and-query references that are resolved
// against a base URI. The rendered form never starts with '/'.
type RelativeBuilder struct {
	components
}

// NewRelative returns an empty relative builder.
func NewRelative() *RelativeBuilder {
	return &RelativeBuilder{}
}

// RelativeFrom returns a relative builder holding the path and query of u.
func RelativeFrom(u *url.URL) *RelativeBuilder {
	b := NewRelative()
	if u == nil {
		b.fail(errors.InvalidArgument("uri is nil"))
		return b
	}
	b.load(u)
	return b
}

// Clone returns an independent copy of the builder.
func (b *RelativeBuilder) Clone() *RelativeBuilder {
	return &RelativeBuilder{components: b.components.clone()}
}

// ReplacePath replaces the path with the given unencoded path.
func (b *RelativeBuilder) ReplacePath(path string) *RelativeBuilder {
	b.replacePath(path)
	return b
}

// AppendPath appends an unencoded path.
func (b *RelativeBuilder) AppendPath(path string) *RelativeBuilder {
	b.appendPath(path)
	return b
}

func (b *RelativeBuilder) AddParameter(name string, values ...string) *RelativeBuilder {
	b.addParameter(name, values)
	return b
}

func (b *RelativeBuilder) ReplaceParameter(name string, values ...string) *RelativeBuilder {
	b.replaceParameter(name, values)
	return b
}

func (b *RelativeBuilder) ReplaceRawQuery(rawQuery string) *RelativeBuilder {
	b.replaceRawQuery(rawQuery)
	return b
}

func (b *RelativeBuilder) String() string {
	path := strings.TrimPrefix(b.encodedPath(), "/")
	query := b.encodedQuery()
	if query == "" && !b.emptyQuery() {
		return path
	}
	return path + "?" + query
}

// Build returns the relative reference.
func (b *RelativeBuilder) Build() (*url.URL, error) {
	if b.err != nil {
		return nil, b.err
	}
	rawPath := strings.TrimPrefix(b.encodedPath(), "/")
	path, err := decode(rawPath)
	if err != nil {
		return nil, err
	}
	return &url.URL{
		Path:       path,
		RawPath:    rawPath,
		RawQuery:   b.encodedQuery(),
		ForceQuery: b.emptyQuery(),
	}, nil
}
