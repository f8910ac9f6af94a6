package uri

import (
	"net/url"
	"strings"
)

type param struct {
	name  string
	value string
	flag  bool
}

// components holds the path and query shared by Builder and RelativeBuilder.
// A path or query parsed from an existing URI is rendered verbatim until the
// caller mutates it.
type components struct {
	path      string // decoded
	rawPath   string
	keepPath  bool
	params    []param // decoded
	rawQuery  string
	keepQuery bool
	// forceQuery keeps the '?' of a parsed URI whose query is empty.
	forceQuery bool
	err        error
}

func (c *components) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *components) load(u *url.URL) {
	raw := u.EscapedPath()
	path, err := decode(raw)
	if err != nil {
		c.fail(err)
		return
	}
	c.path = path
	c.rawPath = raw
	c.keepPath = true
	c.rawQuery = u.RawQuery
	c.keepQuery = true
	c.forceQuery = u.ForceQuery
}

func (c *components) replacePath(path string) {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	c.path = path
	c.keepPath = false
}

func (c *components) appendPath(path string) {
	var sb strings.Builder
	sb.WriteString(c.path)
	if !strings.HasSuffix(c.path, "/") {
		sb.WriteByte('/')
	}
	sb.WriteString(strings.TrimPrefix(path, "/"))
	c.path = sb.String()
	c.keepPath = false
}

// materialize parses a retained raw query into decoded parameters.
func (c *components) materialize() {
	if !c.keepQuery {
		return
	}
	params, err := parseQuery(c.rawQuery)
	if err != nil {
		c.fail(err)
	}
	c.params = params
	c.keepQuery = false
	c.forceQuery = false
}

func (c *components) addParameter(name string, values []string) {
	c.materialize()
	if len(values) == 0 {
		c.params = append(c.params, param{name: name, flag: true})
		return
	}
	for _, v := range values {
		c.params = append(c.params, param{name: name, value: v})
	}
}

func (c *components) replaceParameter(name string, values []string) {
	c.materialize()
	kept := c.params[:0]
	for _, p := range c.params {
		if p.name != name {
			kept = append(kept, p)
		}
	}
	c.params = kept
	c.addParameter(name, values)
}

func (c *components) replaceRawQuery(raw string) {
	c.params = nil
	c.rawQuery = raw
	c.keepQuery = true
	c.forceQuery = false
}

// emptyQuery reports whether an unmodified parsed query was a bare '?'.
func (c *components) emptyQuery() bool {
	return c.keepQuery && c.forceQuery && c.rawQuery == ""
}

func (c *components) encodedPath() string {
	if c.keepPath {
		return c.rawPath
	}
	return encode(c.path, allowedPath)
}

func (c *components) encodedQuery() string {
	if c.keepQuery {
		return c.rawQuery
	}
	var sb strings.Builder
	for i, p := range c.params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(encode(p.name, allowedQuery))
		if !p.flag {
			sb.WriteByte('=')
			sb.WriteString(encode(p.value, allowedQuery))
		}
	}
	return sb.String()
}

func (c *components) clone() components {
	cp := *c
	cp.params = append([]param(nil), c.params...)
	return cp
}
