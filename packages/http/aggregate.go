package http

import (
	"context"
	"errors"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/htmlindex"
)

// aggregate drains body into memory. It returns the caller-facing value
// (string, or []byte for EncodingNone) and the decoded bytes.
func (c *Client) aggregate(ctx context.Context, body io.Reader, encoding string) (any, []byte, error) {
	raw, err := io.ReadAll(newTracedReader(ctx, c.tracer, body, "hitfetch.aggregate"))
	if err != nil {
		var de *DecodeError
		var re *ReadError
		if !errors.As(err, &de) && !errors.As(err, &re) {
			err = &ReadError{Err: err}
		}
		return nil, nil, err
	}
	if raw == nil {
		raw = []byte{}
	}

	data, err := decodeText(raw, encoding)
	if err != nil {
		return nil, nil, err
	}
	return data, raw, nil
}

func decodeText(raw []byte, encoding string) (any, error) {
	switch encoding {
	case EncodingNone:
		return raw, nil
	case "":
		return string(raw), nil
	}

	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, argError("encoding", "unknown text encoding %q", encoding)
	}
	text, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, &DecodeError{Encoding: encoding, Code: DecodeCorrupt, Err: err}
	}
	return string(text), nil
}

// tracedReader spans the lifetime of a body read, from the first Read to the
// first error (io.EOF included).
type tracedReader struct {
	ctx    context.Context
	tracer trace.Tracer
	name   string
	r      io.Reader

	span  trace.Span
	reads int
	bytes int64
	ended bool
}

func newTracedReader(ctx context.Context, tracer trace.Tracer, r io.Reader, name string) *tracedReader {
	return &tracedReader{ctx: ctx, tracer: tracer, name: name, r: r}
}

func (t *tracedReader) Read(p []byte) (int, error) {
	if t.span == nil && !t.ended {
		_, t.span = t.tracer.Start(t.ctx, t.name)
	}

	n, err := t.r.Read(p)
	if t.ended {
		return n, err
	}
	t.reads++
	t.bytes += int64(n)

	if err != nil {
		t.span.SetAttributes(
			attribute.Int("hitfetch.body.reads", t.reads),
			attribute.Int64("hitfetch.body.bytes", t.bytes),
		)
		if errors.Is(err, io.EOF) {
			t.span.SetStatus(codes.Ok, "")
		} else {
			t.span.RecordError(err)
			t.span.SetStatus(codes.Error, err.Error())
		}
		t.span.End()
		t.ended = true
	}
	return n, err
}
