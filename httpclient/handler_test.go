package httpclient_test

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/httpkit/body"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/httpclient/httpclienttest"
	"github.com/kbukum/httpkit/resilience"
)

func fastDriver(attempts int) *resilience.RetryDriver {
	return resilience.NewRetryDriver().
		MaxAttempts(attempts).
		ExponentialBackoff(time.Millisecond, 2*time.Millisecond, time.Second, 2).
		StopOn(httpclient.NotRetryable)
}

func post(t *testing.T, src body.Source) *httpclient.Request {
	t.Helper()
	u, err := url.Parse("http://example.com/items")
	require.NoError(t, err)
	req, err := httpclient.PreparePost().SetURI(u).SetBodySource(src).Build()
	require.NoError(t, err)
	return req
}

func TestExecute_CallsHandleAndClosesResponse(t *testing.T) {
	tr := httpclienttest.NewTransport().Respond(200, "hello")
	var handled, failed int
	h := httpclient.HandlerFuncs[string]{
		OnResponse: func(_ *httpclient.Request, resp httpclient.Response) (string, error) {
			handled++
			data, err := io.ReadAll(resp.Body())
			return string(data), err
		},
		OnError: func(*httpclient.Request, error) (string, error) {
			failed++
			return "", nil
		},
	}

	got, err := httpclient.Execute(context.Background(), tr, post(t, nil), h)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, 1, handled)
	assert.Equal(t, 0, failed)
	require.Len(t, tr.Responses(), 1)
	assert.True(t, tr.Responses()[0].Closed())
	assert.Equal(t, int64(5), tr.Responses()[0].BytesRead())
}

func TestExecute_CallsHandleErrorOnTransportFailure(t *testing.T) {
	cause := errors.Transport(io.ErrUnexpectedEOF)
	tr := httpclienttest.NewTransport().Fail(cause)

	var handled int
	h := httpclient.HandlerFuncs[string]{
		OnResponse: func(*httpclient.Request, httpclient.Response) (string, error) {
			handled++
			return "", nil
		},
		OnError: func(_ *httpclient.Request, err error) (string, error) {
			return "fallback", nil
		},
	}
	got, err := httpclient.Execute(context.Background(), tr, post(t, nil), h)
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
	assert.Equal(t, 0, handled)

	_, err = httpclient.Execute(context.Background(), tr, post(t, nil), httpclient.StatusHandler())
	assert.ErrorIs(t, err, cause, "a nil OnError returns the failure")
}

func TestExecuteWithRetry_RetriesServerErrors(t *testing.T) {
	tr := httpclienttest.NewTransport().
		Respond(503, "busy").
		Fail(errors.Transport(io.ErrUnexpectedEOF)).
		Respond(200, `{"id":7}`, "Content-Type", "application/json")

	type item struct {
		ID int `json:"id"`
	}
	got, err := httpclient.ExecuteWithRetry(context.Background(), tr, fastDriver(5),
		post(t, body.String("payload")), httpclient.JSONHandler[item]())
	require.NoError(t, err)
	assert.Equal(t, 7, got.ID)
	assert.Equal(t, 3, tr.Calls())
	for _, b := range tr.Bodies() {
		assert.Equal(t, "payload", string(b), "a static body is replayed on every attempt")
	}
}

func TestExecuteWithRetry_StopsOnClientError(t *testing.T) {
	tr := httpclienttest.NewTransport().Respond(404, "missing").Respond(200, "{}")

	_, err := httpclient.ExecuteWithRetry(context.Background(), tr, fastDriver(5),
		post(t, nil), httpclient.JSONHandler[map[string]any]())
	require.Error(t, err)
	assert.Equal(t, 1, tr.Calls())

	var re *resilience.RetryError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.Attempts)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindUnexpectedStatus, e.Kind)
	assert.Equal(t, 404, e.StatusCode)
	assert.Equal(t, "missing", string(e.Body))
}

func TestExecuteWithRetry_SingleUseBodyAttemptedOnce(t *testing.T) {
	tr := httpclienttest.NewTransport().Respond(503, "busy").Respond(200, "")
	src := body.SingleUse(body.GeneratorFunc(func(w io.Writer) error {
		_, err := io.WriteString(w, "once")
		return err
	}))

	_, err := httpclient.ExecuteWithRetry(context.Background(), tr, fastDriver(5), post(t, src), httpclient.ExpectStatus())
	require.Error(t, err)
	assert.Equal(t, 1, tr.Calls())
	assert.Equal(t, "once", string(tr.Bodies()[0]))
	assert.True(t, src.Consumed())
}

func TestExecuteWithRetry_ConsumedStreamStops(t *testing.T) {
	tr := httpclienttest.NewTransport().Respond(200, "")
	src := body.FromReader(strings.NewReader("stream"))
	req := post(t, src)

	_, err := httpclient.Execute(context.Background(), tr, req, httpclient.ExpectStatus())
	require.NoError(t, err)

	_, err = httpclient.ExecuteWithRetry(context.Background(), tr, fastDriver(5), req, httpclient.ExpectStatus())
	require.Error(t, err)
	assert.ErrorIs(t, err, body.ErrStreamConsumed)
	assert.Equal(t, 2, tr.Calls())
}

func TestNotRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.InvalidArgument("bad"), true},
		{errors.IllegalState("closed"), true},
		{errors.Interrupted("op", context.Canceled), true},
		{errors.Decode(io.ErrUnexpectedEOF), true},
		{errors.UnexpectedStatus(400, nil), true},
		{errors.UnexpectedStatus(429, nil), false},
		{errors.UnexpectedStatus(502, nil), false},
		{errors.Transport(io.EOF), false},
		{errors.Timeout("op", context.DeadlineExceeded), false},
		{io.EOF, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpclient.NotRetryable(tt.err), "%v", tt.err)
	}
}
