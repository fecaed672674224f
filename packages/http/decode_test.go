package http

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func deflated(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func encodedResponse(encoding string, body io.Reader) *http.Response {
	return &http.Response{
		StatusCode:    http.StatusOK,
		Header:        http.Header{"Content-Encoding": {encoding}},
		Body:          io.NopCloser(body),
		ContentLength: -1,
	}
}

func readDecoded(t *testing.T, resp *http.Response) (string, error) {
	t.Helper()
	body, err := decodeBody(resp, http.MethodGet)
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	return string(data), err
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"gzip", "gzip", gzipped(t, "hello")},
		{"x-gzip", "x-gzip", gzipped(t, "hello")},
		{"deflate", "deflate", deflated(t, "hello")},
		{"case insensitive", "GZIP", gzipped(t, "hello")},
		{"identity", "identity", []byte("hello")},
		{"unknown passes through", "br", []byte("hello")},
		{"none", "", []byte("hello")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readDecoded(t, encodedResponse(tt.encoding, bytes.NewReader(tt.body)))
			require.NoError(t, err)
			assert.Equal(t, "hello", got)
		})
	}
}

func TestDecodeBody_Failures(t *testing.T) {
	full := gzipped(t, strings.Repeat("abcdefgh", 512))
	badChecksum := bytes.Clone(full)
	badChecksum[len(badChecksum)-5] ^= 0xff

	tests := []struct {
		name     string
		encoding string
		body     []byte
		code     DecodeCode
	}{
		{"gzip bad header", "gzip", []byte("Not gzipped content"), DecodeBadHeader},
		{"deflate bad header", "deflate", []byte("Not deflated content"), DecodeBadHeader},
		{"gzip truncated", "gzip", full[:len(full)/2], DecodeTruncated},
		{"gzip checksum", "gzip", badChecksum, DecodeChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readDecoded(t, encodedResponse(tt.encoding, bytes.NewReader(tt.body)))
			require.Error(t, err)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "got %T: %v", err, err)
			assert.Equal(t, tt.code, decodeErr.Code)
			assert.Equal(t, tt.code, Code(err))
		})
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestDecodeBody_ConnectionFailureIsReadError(t *testing.T) {
	var sb strings.Builder
	for i := range 4096 {
		sb.WriteString(strconv.Itoa(i * 7919 % 10007))
	}
	full := gzipped(t, sb.String())
	reset := errors.New("connection reset by peer")

	_, err := readDecoded(t, encodedResponse("gzip", &failingReader{data: full[:40], err: reset}))
	require.Error(t, err)

	var readErr *ReadError
	require.True(t, errors.As(err, &readErr), "got %T: %v", err, err)
	assert.True(t, errors.Is(err, reset))
	assert.Equal(t, DecodeCode(""), Code(err))
}

func TestDecodeBody_SkipsBodilessResponses(t *testing.T) {
	resp := encodedResponse("gzip", strings.NewReader(""))
	resp.StatusCode = http.StatusNoContent
	_, err := readDecoded(t, resp)
	assert.NoError(t, err)

	resp = encodedResponse("gzip", strings.NewReader(""))
	_, err = decodeBody(resp, http.MethodHead)
	assert.NoError(t, err)

	resp = encodedResponse("gzip", strings.NewReader(""))
	resp.ContentLength = 0
	_, err = readDecoded(t, resp)
	assert.NoError(t, err)
}

func TestDecodeText(t *testing.T) {
	data, err := decodeText([]byte("caf\xe9"), "windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "café", data)

	data, err = decodeText([]byte("ok"), EncodingNone)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)

	data, err = decodeText([]byte("ok"), "")
	require.NoError(t, err)
	assert.Equal(t, "ok", data)
}

func TestAggregate_WrapsReadFailures(t *testing.T) {
	reset := errors.New("connection reset by peer")
	c := NewClient()

	_, _, err := c.aggregate(context.Background(), &failingReader{data: []byte("partial"), err: reset}, "")
	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.True(t, errors.Is(err, reset))
}

func TestAggregate_EmptyBody(t *testing.T) {
	data, raw, err := NewClient().aggregate(context.Background(), strings.NewReader(""), "")
	require.NoError(t, err)
	assert.Equal(t, "", data)
	assert.NotNil(t, raw)
	assert.Empty(t, raw)
}
