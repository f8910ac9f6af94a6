package httpclient

import (
	"encoding/json"
	"io"
	"mime"
	"slices"
	"strings"

	"github.com/kbukum/httpkit/errors"
)

// maxErrorBody bounds the body kept on an unexpected-status error.
const maxErrorBody = 64 << 10

// StatusHandler returns the status code and ignores the body.
func StatusHandler() ResponseHandler[int] {
	return HandlerFuncs[int]{
		OnResponse: func(_ *Request, resp Response) (int, error) {
			return resp.StatusCode(), nil
		},
	}
}

// StringResponse is a fully read response with a text body.
type StringResponse struct {
	StatusCode    int
	StatusMessage string
	Headers       Headers
	Body          string
}

// StringHandler reads the whole body as a string, whatever the status.
func StringHandler() ResponseHandler[StringResponse] {
	return HandlerFuncs[StringResponse]{
		OnResponse: func(_ *Request, resp Response) (StringResponse, error) {
			data, err := io.ReadAll(resp.Body())
			if err != nil {
				return StringResponse{}, errors.Transport(err).WithOp("read response body")
			}
			return StringResponse{
				StatusCode:    resp.StatusCode(),
				StatusMessage: resp.StatusMessage(),
				Headers:       resp.Headers(),
				Body:          string(data),
			}, nil
		},
	}
}

// ExpectStatus returns a handler that accepts only the given status codes,
// 2xx when none are given, and discards the body. Any other status is a
// KindUnexpectedStatus error.
func ExpectStatus(codes ...int) ResponseHandler[int] {
	return HandlerFuncs[int]{
		OnResponse: func(_ *Request, resp Response) (int, error) {
			if !statusAccepted(resp.StatusCode(), codes) {
				return 0, unexpectedStatus(resp)
			}
			return resp.StatusCode(), nil
		},
	}
}

// JSONHandler decodes a JSON body into T when the status is one of codes,
// 2xx when none are given. Another status is a KindUnexpectedStatus error
// carrying the body; a body that is not JSON or fails to decode is a
// KindDecode error. An empty body, such as a 204, decodes to the zero T.
func JSONHandler[T any](codes ...int) ResponseHandler[T] {
	return HandlerFuncs[T]{
		OnResponse: func(_ *Request, resp Response) (T, error) {
			var v T
			if !statusAccepted(resp.StatusCode(), codes) {
				return v, unexpectedStatus(resp)
			}
			data, err := io.ReadAll(resp.Body())
			if err != nil {
				return v, errors.Transport(err).WithOp("read response body")
			}
			if len(data) == 0 {
				return v, nil
			}
			if err := checkJSONContentType(resp.Header("Content-Type")); err != nil {
				return v, err
			}
			if err := json.Unmarshal(data, &v); err != nil {
				return v, errors.Decode(err).WithDetail("body", truncate(data))
			}
			return v, nil
		},
	}
}

// JSONResponse is a fully read response with an optional decoded value.
type JSONResponse[T any] struct {
	StatusCode    int
	StatusMessage string
	Headers       Headers
	// Raw is the undecoded body.
	Raw []byte
	// Value is the decoded body, valid when HasValue is set.
	Value    T
	HasValue bool
	// DecodeErr is set when the body was present but could not be decoded.
	DecodeErr error
}

// FullJSONHandler reads every response, whatever its status, and attempts
// to decode a JSON body into T. Decoding problems are reported in
// DecodeErr instead of failing the call.
func FullJSONHandler[T any]() ResponseHandler[JSONResponse[T]] {
	return HandlerFuncs[JSONResponse[T]]{
		OnResponse: func(_ *Request, resp Response) (JSONResponse[T], error) {
			out := JSONResponse[T]{
				StatusCode:    resp.StatusCode(),
				StatusMessage: resp.StatusMessage(),
				Headers:       resp.Headers(),
			}
			data, err := io.ReadAll(resp.Body())
			if err != nil {
				return out, errors.Transport(err).WithOp("read response body")
			}
			out.Raw = data
			if len(data) == 0 {
				return out, nil
			}
			if err := checkJSONContentType(resp.Header("Content-Type")); err != nil {
				out.DecodeErr = err
				return out, nil
			}
			if err := json.Unmarshal(data, &out.Value); err != nil {
				out.DecodeErr = errors.Decode(err)
				return out, nil
			}
			out.HasValue = true
			return out, nil
		},
	}
}

func statusAccepted(status int, codes []int) bool {
	if len(codes) == 0 {
		return status >= 200 && status < 300
	}
	return slices.Contains(codes, status)
}

func unexpectedStatus(resp Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body(), maxErrorBody))
	return errors.UnexpectedStatus(resp.StatusCode(), data)
}

// checkJSONContentType accepts a missing content type, application/json
// and any +json media type.
func checkJSONContentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")) {
		return nil
	}
	return errors.New(errors.KindDecode, "expected a JSON response").WithDetail("content_type", contentType)
}

func truncate(data []byte) string {
	const limit = 512
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "..."
}
