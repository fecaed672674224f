// Package http performs single HTTP or HTTPS calls and hands back the whole
// response body.
//
// A call runs through a fixed pipeline:
//   - Normalize: address and Options become an immutable Config
//   - dispatch: one attempt over the scheme's round tripper
//   - redirects: optional, bounded, counted per call
//   - content decoding: gzip and deflate bodies are decompressed
//   - aggregation: the body is read into a string or []byte
//   - finalization: non-2xx statuses and JSON parse failures become errors
//
// Errors are typed (ArgumentError, TransportError, RedirectLimitError,
// DecodeError, ReadError, StatusError, JSONError, CanceledError) and
// inspected with errors.As.
package http
