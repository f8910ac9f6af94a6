package httpclient

import (
	"net/http"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// HeaderName is a case-insensitive header key that remembers the casing it
// was created with.
type HeaderName struct {
	name string
	key  string
}

// NewHeaderName wraps name.
func NewHeaderName(name string) HeaderName {
	return HeaderName{name: name, key: strings.ToLower(name)}
}

// String returns the name with its original casing.
func (h HeaderName) String() string { return h.name }

// Key returns the lower-cased lookup key.
func (h HeaderName) Key() string { return h.key }

// Equal compares names ignoring case.
func (h HeaderName) Equal(o HeaderName) bool { return h.key == o.key }

// Hash is consistent with Equal.
func (h HeaderName) Hash() uint64 { return xxhash.Sum64String(h.key) }

// Headers is an ordered, case-insensitive header multimap. Names are kept in
// first-insertion order and values per name in insertion order. The zero
// value is empty. Headers values obtained from a Request are never mutated.
type Headers struct {
	names  []HeaderName
	values map[string][]string
}

// Len returns the number of distinct names.
func (h Headers) Len() int { return len(h.names) }

// Names returns the distinct names in first-insertion order.
func (h Headers) Names() []HeaderName { return slices.Clone(h.names) }

// Get returns the first value for name, or "".
func (h Headers) Get(name string) string {
	if vs := h.values[strings.ToLower(name)]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values returns every value for name in insertion order.
func (h Headers) Values(name string) []string {
	return slices.Clone(h.values[strings.ToLower(name)])
}

// Has reports whether name is present.
func (h Headers) Has(name string) bool {
	_, ok := h.values[strings.ToLower(name)]
	return ok
}

// Each calls fn for every entry, grouped by name.
func (h Headers) Each(fn func(name HeaderName, value string)) {
	for _, n := range h.names {
		for _, v := range h.values[n.key] {
			fn(n, v)
		}
	}
}

// Equal compares names case-insensitively and values per name in order.
// The relative order of different names is not significant.
func (h Headers) Equal(o Headers) bool {
	if len(h.names) != len(o.names) {
		return false
	}
	for key, vs := range h.values {
		if !slices.Equal(vs, o.values[key]) {
			return false
		}
	}
	return true
}

// Hash is consistent with Equal.
func (h Headers) Hash() uint64 {
	var sum uint64
	for key, vs := range h.values {
		d := xxhash.New()
		_, _ = d.WriteString(key)
		for _, v := range vs {
			_, _ = d.Write([]byte{0})
			_, _ = d.WriteString(v)
		}
		sum += d.Sum64()
	}
	return sum
}

// HTTPHeader converts to net/http form, keeping the original name casing.
func (h Headers) HTTPHeader() http.Header {
	out := make(http.Header, len(h.names))
	for _, n := range h.names {
		out[n.name] = slices.Clone(h.values[n.key])
	}
	return out
}

// String renders the headers for logs.
func (h Headers) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, n := range h.names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(n.name)
		sb.WriteString("=[")
		sb.WriteString(strings.Join(h.values[n.key], ", "))
		sb.WriteByte(']')
	}
	sb.WriteByte('}')
	return sb.String()
}

// HeadersFrom copies an http.Header. Names are visited in sorted order since
// http.Header does not preserve insertion order.
func HeadersFrom(src http.Header) Headers {
	var h Headers
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		for _, v := range src[k] {
			h.add(k, v)
		}
	}
	return h
}

func (h Headers) clone() Headers {
	out := Headers{names: slices.Clone(h.names)}
	if h.values != nil {
		out.values = make(map[string][]string, len(h.values))
		for k, vs := range h.values {
			out.values[k] = slices.Clone(vs)
		}
	}
	return out
}

func (h *Headers) add(name, value string) {
	n := NewHeaderName(name)
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	if _, ok := h.values[n.key]; !ok {
		h.names = append(h.names, n)
	}
	h.values[n.key] = append(h.values[n.key], value)
}

func (h *Headers) set(name string, values ...string) {
	h.remove(name)
	for _, v := range values {
		h.add(name, v)
	}
}

func (h *Headers) remove(name string) {
	key := strings.ToLower(name)
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	h.names = slices.DeleteFunc(h.names, func(n HeaderName) bool { return n.key == key })
}
