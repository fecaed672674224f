package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidArgument is matched by every *ArgumentError.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError reports bad call-site usage. It is always returned before
// any I/O happens and is never delivered through a callback.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Field == "" {
		return "hitfetch: " + e.Reason
	}
	return fmt.Sprintf("hitfetch: %s: %s", e.Field, e.Reason)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func argError(field, format string, args ...any) *ArgumentError {
	return &ArgumentError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// TransportError wraps DNS, connect, TLS and deadline failures raised while
// a request was being sent or its headers received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CanceledError is returned when the caller's context ends before the call
// completes.
type CanceledError struct {
	Err error
}

func (e *CanceledError) Error() string {
	return "request canceled: " + e.Err.Error()
}

func (e *CanceledError) Unwrap() error { return e.Err }

// RedirectLimitError is returned alongside the last redirect response when
// following another redirect would exceed the configured bound.
type RedirectLimitError struct {
	URL   string
	Count int
	Max   int
}

func (e *RedirectLimitError) Error() string {
	return fmt.Sprintf("Redirected %d times. Aborting (maxRedirects %d) at %s", e.Count, e.Max, e.URL)
}

// DecodeCode classifies content decoding failures.
type DecodeCode string

const (
	DecodeBadHeader DecodeCode = "bad_header"
	DecodeChecksum  DecodeCode = "checksum"
	DecodeCorrupt   DecodeCode = "corrupt_data"
	DecodeTruncated DecodeCode = "truncated"
)

// DecodeError is returned instead of body data when a gzip or deflate
// payload cannot be decompressed.
type DecodeError struct {
	Encoding string
	Code     DecodeCode
	Err      error
}

func (e *DecodeError) Error() string {
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ReadError wraps failures of the connection while the body was drained.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return "read response body: " + e.Err.Error()
}

func (e *ReadError) Unwrap() error { return e.Err }

// StatusError is synthesized for responses outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
	Reason     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s response code is %d (%s)", e.URL, e.StatusCode, e.Reason)
}

// JSONError is returned when JSON decoding was requested and the body is not
// valid JSON. StatusCode keeps the response status so a replaced StatusError
// is still observable.
type JSONError struct {
	StatusCode int
	Err        error
}

func (e *JSONError) Error() string {
	return "invalid JSON body: " + e.Err.Error()
}

func (e *JSONError) Unwrap() error { return e.Err }

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var je *JSONError
	if errors.As(err, &je) {
		return je.StatusCode
	}
	return 0
}

// Code extracts the decoder code carried by err, or "".
func Code(err error) DecodeCode {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func reasonPhrase(code int, status string) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	// "499 Client Closed Request" style statuses from the server
	if _, reason, ok := strings.Cut(status, " "); ok && reason != "" {
		return reason
	}
	return "unknown"
}

// Kind names the class of err: argument, transport, canceled,
// redirect_limit, decode, read, status, json, or other.
func Kind(err error) string {
	var (
		argErr    *ArgumentError
		transport *TransportError
		canceled  *CanceledError
		limit     *RedirectLimitError
		decodeErr *DecodeError
		readErr   *ReadError
		statusErr *StatusError
		jsonErr   *JSONError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &argErr):
		return "argument"
	case errors.As(err, &canceled):
		return "canceled"
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &limit):
		return "redirect_limit"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &readErr):
		return "read"
	case errors.As(err, &jsonErr):
		return "json"
	case errors.As(err, &statusErr):
		return "status"
	default:
		return "other"
	}
}
