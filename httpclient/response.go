package httpclient

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// Response is what a Transport hands to a ResponseHandler. The body is
// streamed; the caller of RoundTrip closes the response.
type Response interface {
	// StatusCode returns the HTTP status code.
	StatusCode() int
	// StatusMessage returns the reason phrase, e.g. "Not Found".
	StatusMessage() string
	// Header returns the first value of the named header.
	Header(name string) string
	// Headers returns every response header.
	Headers() Headers
	// Body returns the response body stream.
	Body() io.Reader
	// BytesRead returns the number of body bytes read so far.
	BytesRead() int64
	// Close releases the body and the connection slot.
	Close() error
}

// httpResponse adapts *http.Response.
type httpResponse struct {
	resp    *http.Response
	headers Headers
	body    *countingReader

	closeOnce sync.Once
	closeErr  error
	release   func()
}

func newHTTPResponse(resp *http.Response, release func()) *httpResponse {
	return &httpResponse{
		resp:    resp,
		headers: HeadersFrom(resp.Header),
		body:    &countingReader{r: resp.Body},
		release: release,
	}
}

func (r *httpResponse) StatusCode() int { return r.resp.StatusCode }

func (r *httpResponse) StatusMessage() string {
	// resp.Status is "200 OK"; keep the reason phrase only.
	if _, msg, ok := strings.Cut(r.resp.Status, " "); ok {
		return msg
	}
	return http.StatusText(r.resp.StatusCode)
}

func (r *httpResponse) Header(name string) string { return r.headers.Get(name) }
func (r *httpResponse) Headers() Headers          { return r.headers }
func (r *httpResponse) Body() io.Reader           { return r.body }
func (r *httpResponse) BytesRead() int64          { return r.body.n.Load() }

// Close drains a little of the remaining body so the connection can be
// reused, then closes it and frees the pool slot.
func (r *httpResponse) Close() error {
	r.closeOnce.Do(func() {
		_, _ = io.CopyN(io.Discard, r.resp.Body, 4<<10)
		r.closeErr = r.resp.Body.Close()
		if r.release != nil {
			r.release()
		}
	})
	return r.closeErr
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
