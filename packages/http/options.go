package http

import (
	"net/url"
	"time"
)

const (
	// DefaultMaxRedirects is the redirect bound used when Options.MaxRedirects is unset
	DefaultMaxRedirects = 10
	// DefaultUserAgent is sent unless the caller or client overrides user-agent
	DefaultUserAgent = "hitfetch (https://github.com/abdul-hamid-achik/hitfetch)"
	// DefaultAcceptEncoding advertises the encodings the content decoder understands
	DefaultAcceptEncoding = "gzip,deflate"
	// EncodingNone makes the aggregator return the body as raw bytes
	EncodingNone = "none"
)

// Options configures a single call. The zero value performs a GET with
// default headers, no redirect following and a text body.
type Options struct {
	Method  string
	Headers map[string]string
	// Body is nil, a string or a []byte.
	Body any
	// Query is nil, a string, url.Values, map[string]string, map[string]any
	// or a struct with `url` tags. It replaces any query in the address.
	Query any
	// Path replaces the address path. A query embedded after '?' is
	// prepended to the resolved query.
	Path string
	// Host overrides the hostname. A bare name replaces the hostname and
	// keeps the resolved port; "name:port" also supplies a port when none
	// was resolved otherwise.
	Host string
	// Port is a string or an integer.
	Port any

	// Timeout bounds the whole call, redirects and body included.
	Timeout time.Duration
	// SocketTimeout bounds dialing, the TLS handshake and waiting for
	// response headers of each attempt.
	SocketTimeout time.Duration

	MaxRedirects    int
	FollowRedirects bool

	// JSON decodes the body as JSON.
	JSON bool
	// Encoding names the text encoding of the body. Empty means utf-8,
	// EncodingNone returns raw bytes.
	Encoding string

	// CACert holds PEM encoded roots trusted for this call.
	CACert []byte
	// Insecure disables certificate verification for this call.
	Insecure bool
}

// Config is the effective request configuration produced by Normalize.
// It is never mutated after construction; redirects only change the
// target URL handed to the dispatcher.
type Config struct {
	URL        *url.URL
	Method     string
	Header     map[string]string
	HostHeader string
	Body       []byte
	HasBody    bool

	Timeout       time.Duration
	SocketTimeout time.Duration

	MaxRedirects    int
	FollowRedirects bool

	JSON     bool
	Encoding string

	CACert   []byte
	Insecure bool
}

// String returns the fully resolved address.
func (c *Config) String() string {
	return c.URL.String()
}

// RequestURI returns the path and query sent on the request line.
func (c *Config) RequestURI() string {
	return c.URL.RequestURI()
}

func (c *Config) rawBytes() bool {
	return c.Encoding == EncodingNone
}

// needsOwnTransport reports whether the call carries settings that the
// client's shared transports cannot honor.
func (c *Config) needsOwnTransport() bool {
	return c.SocketTimeout > 0 || c.Insecure || len(c.CACert) > 0
}
