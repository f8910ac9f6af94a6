package httpclient

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderName_CaseInsensitive(t *testing.T) {
	a := NewHeaderName("Content-Type")
	b := NewHeaderName("content-type")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, "Content-Type", a.String())
	assert.Equal(t, "content-type", b.String())
	assert.False(t, a.Equal(NewHeaderName("Content-Length")))
}

func TestHeaders_OrderAndMultipleValues(t *testing.T) {
	var h Headers
	h.add("X-B", "1")
	h.add("x-a", "2")
	h.add("X-b", "3")

	names := h.Names()
	require.Len(t, names, 2)
	assert.Equal(t, "X-B", names[0].String(), "first insertion keeps its casing")
	assert.Equal(t, "x-a", names[1].String())
	assert.Equal(t, []string{"1", "3"}, h.Values("x-b"))
	assert.Equal(t, "1", h.Get("X-B"))
	assert.True(t, h.Has("X-A"))
	assert.Equal(t, "", h.Get("missing"))
}

func TestHeaders_SetAndRemove(t *testing.T) {
	var h Headers
	h.add("Accept", "text/plain")
	h.add("Accept", "text/html")
	h.add("X-Other", "v")

	h.set("ACCEPT", "application/json")
	assert.Equal(t, []string{"application/json"}, h.Values("accept"))

	h.remove("x-other")
	assert.False(t, h.Has("X-Other"))
	assert.Equal(t, 1, h.Len())
}

func TestHeaders_EqualIgnoresNameOrderAndCase(t *testing.T) {
	var a, b Headers
	a.add("A", "1")
	a.add("B", "2")
	b.add("b", "2")
	b.add("a", "1")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())

	b.add("a", "3")
	assert.False(t, a.Equal(b))
}

func TestHeaders_HTTPHeaderRoundTrip(t *testing.T) {
	src := http.Header{}
	src.Add("X-Trace", "abc")
	src.Add("Accept", "a")
	src.Add("Accept", "b")

	h := HeadersFrom(src)
	assert.Equal(t, []string{"a", "b"}, h.Values("accept"))

	out := h.HTTPHeader()
	assert.Equal(t, []string{"a", "b"}, out["Accept"])
	assert.Equal(t, "abc", out.Get("X-Trace"))
}

func TestHeaders_Each(t *testing.T) {
	var h Headers
	h.add("A", "1")
	h.add("B", "2")
	h.add("a", "3")

	var got []string
	h.Each(func(name HeaderName, value string) {
		got = append(got, name.String()+"="+value)
	})
	assert.Equal(t, []string{"A=1", "A=3", "B=2"}, got)
}
