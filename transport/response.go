package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPError is returned for non-2xx responses and undecodable bodies.
// It carries enough request context for diagnostics without exposing the
// underlying *http.Response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Response is a fully-read, non-streaming HTTP response body.
type Response struct {
	StatusCode int
	Header     http.Header

	method string
	path   string
	body   []byte
}

// NewResponse builds a response from raw bytes. Intended for tests that
// stand in for the HTTP layer.
func NewResponse(statusCode int, body []byte) *Response {
	return &Response{StatusCode: statusCode, Header: http.Header{}, body: body}
}

// Bytes returns the raw response body.
func (r *Response) Bytes() []byte { return r.body }

// JSON decodes the whole body into v. A malformed body is reported as an
// HTTPError carrying the offending payload.
func (r *Response) JSON(v interface{}) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return &HTTPError{
			Method:     r.method,
			Path:       r.path,
			StatusCode: r.StatusCode,
			Body:       fmt.Sprintf("decoding body: %v", err),
		}
	}
	return nil
}

// LineStream iterates over the text lines of a streamed response body.
// It is forward-only and finite; Close may be called before the stream is
// drained to abandon the remainder cleanly.
type LineStream struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
}

// NewLineStream wraps a response body. Also used directly by tests.
func NewLineStream(rc io.ReadCloser) *LineStream {
	scanner := bufio.NewScanner(rc)
	// Result lines for wide queries can run long; allow up to 1 MiB.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &LineStream{rc: rc, scanner: scanner}
}

// Next returns the next line without its trailing newline. io.EOF signals
// the end of the body. A network interruption mid-stream surfaces here as
// the transport error, not as a decode failure.
func (s *LineStream) Next() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Close releases the underlying body.
func (s *LineStream) Close() error { return s.rc.Close() }
