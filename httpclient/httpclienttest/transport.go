// Package httpclienttest provides a scripted httpclient.Transport and canned
// responses for testing code built on httpclient without a network.
package httpclienttest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/kbukum/httpkit/body"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/httpclient"
)

// Step is one scripted outcome: a response or a failure.
type Step struct {
	Response *Response
	Err      error
}

// Transport replays Steps in order, one per RoundTrip. The last step repeats
// once the script is exhausted. Request bodies are read in full, as a real
// transport would, and kept for inspection.
type Transport struct {
	mu       sync.Mutex
	steps    []Step
	requests []*httpclient.Request
	bodies   [][]byte
	sent     []*Response
}

var _ httpclient.Transport = (*Transport)(nil)

// NewTransport returns a transport replaying steps.
func NewTransport(steps ...Step) *Transport {
	return &Transport{steps: steps}
}

// Respond appends a response step.
func (t *Transport) Respond(status int, data string, header ...string) *Transport {
	return t.add(Step{Response: NewResponse(status, data, header...)})
}

// Fail appends a failure step.
func (t *Transport) Fail(err error) *Transport {
	return t.add(Step{Err: err})
}

func (t *Transport) add(s Step) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, s)
	return t
}

// RoundTrip implements httpclient.Transport.
func (t *Transport) RoundTrip(ctx context.Context, req *httpclient.Request) (httpclient.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext("httpclienttest.round_trip", err)
	}

	data, err := readBody(req.Body())

	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests = append(t.requests, req)
	t.bodies = append(t.bodies, data)
	if err != nil {
		return nil, err
	}
	if len(t.steps) == 0 {
		return nil, errors.IllegalState("httpclienttest: no response scripted for %s %s", req.Method(), req.URI())
	}

	step := t.steps[0]
	if len(t.steps) > 1 {
		t.steps = t.steps[1:]
	}
	if step.Err != nil {
		return nil, step.Err
	}
	resp := step.Response.clone()
	t.sent = append(t.sent, resp)
	return resp, nil
}

func readBody(src body.Source) ([]byte, error) {
	rc, _, err := body.Open(src)
	if err != nil || rc == nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// Calls returns the number of RoundTrip calls.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

// Requests returns the requests received, oldest first.
func (t *Transport) Requests() []*httpclient.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*httpclient.Request(nil), t.requests...)
}

// Bodies returns the request bodies received, oldest first.
func (t *Transport) Bodies() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.bodies...)
}

// Responses returns the responses handed out, oldest first.
func (t *Transport) Responses() []*Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Response(nil), t.sent...)
}

// Response is a canned httpclient.Response.
type Response struct {
	status  int
	message string
	headers httpclient.Headers
	data    []byte

	reader *bytes.Reader
	closed bool
}

var _ httpclient.Response = (*Response)(nil)

// NewResponse returns a response with the given status and body. header
// holds alternating names and values.
func NewResponse(status int, data string, header ...string) *Response {
	h := make(http.Header)
	for i := 0; i+1 < len(header); i += 2 {
		h.Add(header[i], header[i+1])
	}
	return &Response{
		status:  status,
		message: http.StatusText(status),
		headers: httpclient.HeadersFrom(h),
		data:    []byte(data),
	}
}

func (r *Response) clone() *Response {
	cp := *r
	cp.reader = bytes.NewReader(r.data)
	cp.closed = false
	return &cp
}

func (r *Response) StatusCode() int             { return r.status }
func (r *Response) StatusMessage() string       { return r.message }
func (r *Response) Header(name string) string   { return r.headers.Get(name) }
func (r *Response) Headers() httpclient.Headers { return r.headers }
func (r *Response) BytesRead() int64            { return r.reader.Size() - int64(r.reader.Len()) }
func (r *Response) Closed() bool                { return r.closed }
func (r *Response) Body() io.Reader             { return r.reader }

// Close marks the response closed.
func (r *Response) Close() error {
	r.closed = true
	return nil
}
