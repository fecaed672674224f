package http

import (
	"compress/gzip"
	"compress/zlib"
	"errors"
	"io"
	"net/http"
	"strings"
)

// decodeBody wraps resp.Body in the decompressor named by Content-Encoding.
// Unknown or absent encodings pass the body through unchanged.
func decodeBody(resp *http.Response, method string) (io.ReadCloser, error) {
	if !hasBody(resp, method) {
		return resp.Body, nil
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	src := &sourceReader{r: resp.Body}

	var (
		rc  io.ReadCloser
		err error
	)
	switch encoding {
	case "gzip", "x-gzip":
		rc, err = gzip.NewReader(src)
	case "deflate":
		rc, err = zlib.NewReader(src)
	default:
		return resp.Body, nil
	}
	if err != nil {
		return nil, decodeFailure(encoding, src, err)
	}

	return &decodingReader{encoding: encoding, r: rc, src: src, body: resp.Body}, nil
}

func hasBody(resp *http.Response, method string) bool {
	switch {
	case method == http.MethodHead:
		return false
	case resp.StatusCode < 200, resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotModified:
		return false
	}
	return resp.ContentLength != 0
}

// sourceReader remembers the last failure of the connection so it can be
// told apart from a failure of the decompressor reading from it.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

type decodingReader struct {
	encoding string
	r        io.ReadCloser
	src      *sourceReader
	body     io.Closer
}

func (d *decodingReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil && err != io.EOF {
		err = decodeFailure(d.encoding, d.src, err)
	}
	return n, err
}

func (d *decodingReader) Close() error {
	_ = d.r.Close()
	return d.body.Close()
}

func decodeFailure(encoding string, src *sourceReader, err error) error {
	if src.err != nil {
		return &ReadError{Err: src.err}
	}
	return &DecodeError{Encoding: encoding, Code: decodeCode(err), Err: err}
}

func decodeCode(err error) DecodeCode {
	switch {
	case errors.Is(err, gzip.ErrHeader), errors.Is(err, zlib.ErrHeader), errors.Is(err, zlib.ErrDictionary):
		return DecodeBadHeader
	case errors.Is(err, gzip.ErrChecksum), errors.Is(err, zlib.ErrChecksum):
		return DecodeChecksum
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return DecodeTruncated
	default:
		return DecodeCorrupt
	}
}
