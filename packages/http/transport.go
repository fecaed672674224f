package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultDialTimeout bounds connection setup when no socket timeout is given
	DefaultDialTimeout = 30 * time.Second
	// DefaultTLSHandshakeTimeout bounds the TLS handshake when no socket timeout is given
	DefaultTLSHandshakeTimeout = 10 * time.Second
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

func defaultTLSConfig() *tls.Config {
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// newTransport builds an HTTP/1.1 transport without proxy support. Content
// decoding is left to the caller so Accept-Encoding stays under our control.
func newTransport(tlsConfig *tls.Config) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   DefaultDialTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		DialContext:         dialer.DialContext,
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: DefaultTLSHandshakeTimeout,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		DisableCompression:  true,
		// a non-nil empty map keeps the transport on HTTP/1.1
		TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
	}
}

// ownDecoding stops a caller-supplied *http.Transport from decompressing
// bodies behind our back.
func ownDecoding(rt http.RoundTripper) http.RoundTripper {
	if t, ok := rt.(*http.Transport); ok && !t.DisableCompression {
		t = t.Clone()
		t.DisableCompression = true
		return t
	}
	return rt
}

// transportSet selects the round tripper for each attempt of one call.
// Calls with socket or TLS settings get private clones of the client's
// transports, released when the call ends.
type transportSet struct {
	base   map[string]http.RoundTripper
	cfg    *Config
	clones map[string]*http.Transport
}

func (c *Client) callTransports(cfg *Config) *transportSet {
	return &transportSet{base: c.transports, cfg: cfg}
}

func (s *transportSet) get(scheme string) (http.RoundTripper, error) {
	base, ok := s.base[scheme]
	if !ok {
		return nil, fmt.Errorf("unsupported URL scheme: %s", scheme)
	}
	if !s.cfg.needsOwnTransport() {
		return base, nil
	}
	if t, ok := s.clones[scheme]; ok {
		return t, nil
	}
	ht, ok := base.(*http.Transport)
	if !ok {
		return base, nil
	}

	t := ht.Clone()
	if err := applyCallSettings(t, s.cfg, scheme); err != nil {
		return nil, err
	}
	if s.clones == nil {
		s.clones = make(map[string]*http.Transport, 2)
	}
	s.clones[scheme] = t
	return t, nil
}

func (s *transportSet) close() {
	for _, t := range s.clones {
		t.CloseIdleConnections()
	}
}

func applyCallSettings(t *http.Transport, cfg *Config, scheme string) error {
	if cfg.SocketTimeout > 0 {
		dialer := &net.Dialer{Timeout: cfg.SocketTimeout, KeepAlive: 30 * time.Second}
		t.DialContext = dialer.DialContext
		t.TLSHandshakeTimeout = cfg.SocketTimeout
		t.ResponseHeaderTimeout = cfg.SocketTimeout
	}
	if scheme != "https" || (!cfg.Insecure && len(cfg.CACert) == 0) {
		return nil
	}

	tlsConfig := t.TLSClientConfig.Clone()
	if tlsConfig == nil {
		tlsConfig = defaultTLSConfig()
	}
	if cfg.Insecure {
		tlsConfig.InsecureSkipVerify = true
	}
	if len(cfg.CACert) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cfg.CACert) {
			return fmt.Errorf("no certificates found in CA bundle")
		}
		tlsConfig.RootCAs = pool
	}
	t.TLSClientConfig = tlsConfig
	return nil
}

// dispatch sends one attempt to target and returns the response with its
// body unread.
func (c *Client) dispatch(ctx context.Context, transports *transportSet, cfg *Config, target *neturl.URL, header map[string]string, redirects int) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, span := c.tracer.Start(ctx, "hitfetch.dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", cfg.Method),
			attribute.String("url.full", target.String()),
			attribute.Int("hitfetch.redirects", redirects),
		),
	)
	defer span.End()

	rt, err := transports.get(target.Scheme)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	req, err := newRequest(ctx, cfg, target, header)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp, err := rt.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WarnContext(ctx, "request failed", "method", cfg.Method, "url", target.String(), "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.DebugContext(ctx, "response received",
		"method", cfg.Method,
		"url", target.String(),
		"status", resp.StatusCode,
		"redirects", redirects,
	)
	return resp, nil
}

func newRequest(ctx context.Context, cfg *Config, target *neturl.URL, header map[string]string) (*http.Request, error) {
	var body io.Reader
	if cfg.HasBody {
		body = bytes.NewReader(cfg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, target.String(), body)
	if err != nil {
		return nil, err
	}

	// names are sent exactly as stored, i.e. lowercase
	for k, v := range header {
		if k == "content-length" {
			// checked against the body; net/http writes its own
			continue
		}
		req.Header[k] = []string{v}
	}
	if _, ok := header["user-agent"]; ok {
		// a present but empty canonical key suppresses Go's default agent
		req.Header["User-Agent"] = nil
	}
	if cfg.HostHeader != "" {
		req.Host = cfg.HostHeader
	}
	return req, nil
}
