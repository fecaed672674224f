package http

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"argument", argError("port", "%q is not a valid port", "x"), `hitfetch: port: "x" is not a valid port`},
		{"status", &StatusError{URL: "http://h/", StatusCode: 404, Reason: "Not Found"}, "http://h/ response code is 404 (Not Found)"},
		{"canceled", &CanceledError{Err: context.Canceled}, "request canceled: context canceled"},
		{"transport", &TransportError{Method: "GET", URL: "http://h/", Err: errors.New("dial tcp: refused")}, "GET http://h/: dial tcp: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrors_Accessors(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w", &StatusError{StatusCode: 503})
	assert.Equal(t, 503, StatusCode(wrapped))
	assert.Equal(t, 500, StatusCode(&JSONError{StatusCode: 500, Err: errors.New("bad")}))
	assert.Equal(t, 0, StatusCode(errors.New("other")))

	assert.Equal(t, DecodeChecksum, Code(&DecodeError{Code: DecodeChecksum, Err: errors.New("x")}))
	assert.Equal(t, DecodeCode(""), Code(errors.New("other")))
}

func TestReasonPhrase(t *testing.T) {
	assert.Equal(t, "Not Found", reasonPhrase(404, "404 Not Found"))
	assert.Equal(t, "Client Closed Request", reasonPhrase(499, "499 Client Closed Request"))
	assert.Equal(t, "unknown", reasonPhrase(599, "599"))
}

func TestKind(t *testing.T) {
	tests := map[string]error{
		"":               nil,
		"argument":       argError("port", "bad"),
		"transport":      &TransportError{Err: errors.New("refused")},
		"canceled":       &CanceledError{Err: context.Canceled},
		"redirect_limit": &RedirectLimitError{Count: 1, Max: 1},
		"decode":         &DecodeError{Code: DecodeCorrupt, Err: errors.New("x")},
		"read":           &ReadError{Err: errors.New("reset")},
		"status":         fmt.Errorf("wrapped: %w", &StatusError{StatusCode: 500}),
		"json":           &JSONError{StatusCode: 500, Err: errors.New("bad")},
		"other":          errors.New("other"),
	}

	for expected, err := range tests {
		assert.Equal(t, expected, Kind(err), expected)
	}
}
