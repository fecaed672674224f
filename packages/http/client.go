package http

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

// Client performs calls. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	transports      map[string]http.RoundTripper
	defaultHeaders  map[string]string
	logger          *slog.Logger
	tracer          trace.Tracer
	limiter         *rate.Limiter
	requestIDHeader string
}

type ClientOption func(*Client)

// Callback receives the outcome of an asynchronous call. resp is nil only
// when no response was received at all.
type Callback func(err error, data any, resp *Response)

// Outcome is the value delivered by Go.
type Outcome struct {
	Result *Result
	Err    error
}

// DefaultClient is used by the package-level Do and Request.
var DefaultClient = NewClient()

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		transports:     make(map[string]http.RoundTripper, 2),
		defaultHeaders: make(map[string]string),
		logger:         slog.New(slog.DiscardHandler),
		tracer:         noop.Tracer{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.transports["http"] == nil {
		c.transports["http"] = newTransport(nil)
	}
	if c.transports["https"] == nil {
		c.transports["https"] = newTransport(defaultTLSConfig())
	}

	return c
}

// WithUserAgent replaces the default user-agent header
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders["user-agent"] = ua
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[strings.ToLower(key)] = value
	}
}

// WithDefaultHeaders sets multiple default headers for all calls
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders[strings.ToLower(k)] = v
		}
	}
}

// WithTransport sets the round tripper used for http:// targets
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transports["http"] = ownDecoding(rt)
	}
}

// WithTLSTransport sets the round tripper used for https:// targets
func WithTLSTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transports["https"] = ownDecoding(rt)
	}
}

// WithLogger sets the structured logger, which discards by default
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer records a span for every dispatch attempt and body read
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithRateLimit makes every attempt, redirects included, wait on limiter
func WithRateLimit(limiter *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithRequestID adds a random id under header to every call unless the
// caller already set one. The id is kept across redirects.
func WithRequestID(header string) ClientOption {
	return func(c *Client) {
		c.requestIDHeader = strings.ToLower(header)
	}
}

// Normalize resolves address and opts with the client's default headers.
func (c *Client) Normalize(address string, opts *Options) (*Config, error) {
	return normalize(address, opts, c.defaultHeaders)
}

// Do performs one call and blocks until it completes. Argument errors are
// returned before any I/O. The Result is non-nil whenever a response was
// received, including when err reports a status, JSON or redirect problem.
func (c *Client) Do(ctx context.Context, address string, opts *Options) (*Result, error) {
	cfg, err := c.Normalize(address, opts)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, cfg)
}

// Request validates its arguments synchronously and then performs the call
// in the background, invoking cb exactly once. cb is never invoked when an
// error is returned.
func (c *Client) Request(ctx context.Context, address string, opts *Options, cb Callback) error {
	if cb == nil {
		return argError("callback", "must not be nil")
	}
	cfg, err := c.Normalize(address, opts)
	if err != nil {
		return err
	}

	go func() {
		res, err := c.execute(ctx, cfg)
		if res == nil {
			cb(err, nil, nil)
			return
		}
		cb(err, res.Data, res.Response)
	}()
	return nil
}

// Go is the channel form of Request. The channel receives exactly one
// Outcome and is then closed.
func (c *Client) Go(ctx context.Context, address string, opts *Options) (<-chan Outcome, error) {
	cfg, err := c.Normalize(address, opts)
	if err != nil {
		return nil, err
	}

	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		res, err := c.execute(ctx, cfg)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch, nil
}

// Do performs a call with DefaultClient.
func Do(ctx context.Context, address string, opts *Options) (*Result, error) {
	return DefaultClient.Do(ctx, address, opts)
}

// Request performs an asynchronous call with DefaultClient.
func Request(ctx context.Context, address string, opts *Options, cb Callback) error {
	return DefaultClient.Request(ctx, address, opts, cb)
}

func (c *Client) execute(parent context.Context, cfg *Config) (*Result, error) {
	if parent == nil {
		parent = context.Background()
	}
	ctx := parent
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, cfg.Timeout)
		defer cancel()
	}

	transports := c.callTransports(cfg)
	defer transports.close()

	header := c.callHeader(cfg)
	state := &redirectState{max: cfg.MaxRedirects}
	target := cfg.URL
	start := time.Now()

	var resp *http.Response
	for {
		var err error
		resp, err = c.dispatch(ctx, transports, cfg, target, header, state.count)
		if err != nil {
			return nil, interrupted(parent, ctx, cfg, target, &TransportError{Method: cfg.Method, URL: target.String(), Err: err})
		}

		next, err := state.next(cfg, resp, target)
		if err != nil {
			c.logger.WarnContext(ctx, "redirect limit reached", "url", target.String(), "max", state.max)
			return &Result{Response: newResponse(resp, target, state.count, time.Since(start))}, err
		}
		if next == nil {
			break
		}
		c.logger.DebugContext(ctx, "following redirect", "from", target.String(), "to", next.String(), "count", state.count)
		target = next
	}
	defer resp.Body.Close()

	response := newResponse(resp, target, state.count, 0)
	body, err := decodeBody(resp, cfg.Method)
	if err != nil {
		response.Duration = time.Since(start)
		return &Result{Response: response}, interrupted(parent, ctx, cfg, target, err)
	}

	data, raw, err := c.aggregate(ctx, body, cfg.Encoding)
	response.Duration = time.Since(start)
	if err != nil {
		return &Result{Response: response}, interrupted(parent, ctx, cfg, target, err)
	}

	data, err = finalize(cfg, response, data, raw)
	return &Result{Data: data, Raw: raw, Response: response}, err
}

func (c *Client) callHeader(cfg *Config) map[string]string {
	if c.requestIDHeader == "" {
		return cfg.Header
	}
	if _, ok := cfg.Header[c.requestIDHeader]; ok {
		return cfg.Header
	}
	header := maps.Clone(cfg.Header)
	header[c.requestIDHeader] = uuid.NewString()
	return header
}

// interrupted reports err as a cancellation when the caller's context
// ended, and as a transport failure when only the call's own timeout did.
func interrupted(parent, ctx context.Context, cfg *Config, target *neturl.URL, err error) error {
	if cause := parent.Err(); cause != nil {
		return &CanceledError{Err: cause}
	}
	var te *TransportError
	if ctx.Err() != nil && !errors.As(err, &te) {
		return &TransportError{Method: cfg.Method, URL: target.String(), Err: ctx.Err()}
	}
	return err
}

func newResponse(resp *http.Response, target *neturl.URL, redirects int, d time.Duration) *Response {
	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    headers,
		URL:        target.String(),
		Redirects:  redirects,
		Duration:   d,
	}
}
