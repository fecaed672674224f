package http

import (
	"bytes"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"net"
	neturl "net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
	"golang.org/x/text/encoding/htmlindex"
)

var schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// Normalize validates address and opts and resolves them into the
// configuration handed to the transport, using the built-in default headers.
func Normalize(address string, opts *Options) (*Config, error) {
	return normalize(address, opts, nil)
}

func normalize(address string, opts *Options, defaults map[string]string) (*Config, error) {
	if strings.TrimSpace(address) == "" {
		return nil, argError("address", "must be a non-empty string")
	}
	if opts == nil {
		opts = &Options{}
	}

	u, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Timeout:         opts.Timeout,
		SocketTimeout:   opts.SocketTimeout,
		MaxRedirects:    opts.MaxRedirects,
		FollowRedirects: opts.FollowRedirects,
		JSON:            opts.JSON,
		Insecure:        opts.Insecure,
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.Timeout < 0 {
		return nil, argError("timeout", "must not be negative")
	}
	if cfg.SocketTimeout < 0 {
		return nil, argError("socketTimeout", "must not be negative")
	}
	if len(opts.CACert) > 0 {
		if !x509.NewCertPool().AppendCertsFromPEM(opts.CACert) {
			return nil, argError("caCert", "no PEM certificates found")
		}
		cfg.CACert = bytes.Clone(opts.CACert)
	}

	switch b := opts.Body.(type) {
	case nil:
	case string:
		cfg.Body, cfg.HasBody = []byte(b), true
	case []byte:
		cfg.Body, cfg.HasBody = bytes.Clone(b), true
	default:
		return nil, argError("body", "must be a string or []byte, got %T", opts.Body)
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(opts.Method))
	switch {
	case cfg.Method == "" && cfg.HasBody:
		cfg.Method = "POST"
	case cfg.Method == "":
		cfg.Method = "GET"
	case !httpguts.ValidHeaderFieldName(cfg.Method):
		return nil, argError("method", "%q is not a valid HTTP method", opts.Method)
	}

	if cfg.Encoding, err = normalizeEncoding(opts.Encoding); err != nil {
		return nil, err
	}

	if err := resolveTarget(u, opts); err != nil {
		return nil, err
	}

	if cfg.Header, cfg.HostHeader, err = mergeHeaders(defaults, opts.Headers); err != nil {
		return nil, err
	}
	if err := checkFraming(cfg); err != nil {
		return nil, err
	}
	if u.User != nil {
		if _, ok := cfg.Header["authorization"]; !ok {
			pw, _ := u.User.Password()
			creds := base64.StdEncoding.EncodeToString([]byte(u.User.Username() + ":" + pw))
			cfg.Header["authorization"] = "Basic " + creds
		}
		u.User = nil
	}

	cfg.URL = u
	return cfg, nil
}

// parseAddress prepends http:// to scheme-less addresses and checks that the
// result targets an http or https host.
func parseAddress(address string) (*neturl.URL, error) {
	address = strings.TrimSpace(address)
	if !schemePrefix.MatchString(address) {
		address = "http://" + strings.TrimPrefix(address, "//")
	}
	if err := ValidateURL(address); err != nil {
		return nil, argError("address", "%v", err)
	}
	u, err := neturl.Parse(address)
	if err != nil {
		return nil, argError("address", "%v", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}

// resolveTarget applies the path, query, port and host overrides to u.
func resolveTarget(u *neturl.URL, opts *Options) error {
	var embedded string
	if opts.Path != "" {
		p, err := neturl.Parse(opts.Path)
		if err != nil {
			return argError("path", "%v", err)
		}
		if p.Scheme != "" || p.Host != "" {
			return argError("path", "%q must not carry a scheme or host", opts.Path)
		}
		u.Path, u.RawPath = p.Path, p.RawPath
		if !strings.HasPrefix(u.Path, "/") {
			u.Path = "/" + u.Path
			if u.RawPath != "" {
				u.RawPath = "/" + u.RawPath
			}
		}
		embedded = p.RawQuery
	}

	resolved, err := encodeQuery(opts.Query)
	if err != nil {
		return err
	}
	u.RawQuery = joinQuery(embedded, resolved, u.RawQuery)
	u.ForceQuery = false

	hostname, port := u.Hostname(), u.Port()
	p, err := portString(opts.Port)
	if err != nil {
		return err
	}
	if p != "" {
		port = p
	}
	if opts.Host != "" {
		if h, hp, err := net.SplitHostPort(opts.Host); err == nil {
			if h != "" {
				hostname = h
			}
			if port == "" {
				port = hp
			}
		} else {
			hostname = opts.Host
		}
	}
	if hostname == "" {
		return argError("host", "resolved hostname is empty")
	}

	if port != "" {
		u.Host = net.JoinHostPort(hostname, port)
	} else if strings.Contains(hostname, ":") {
		u.Host = "[" + hostname + "]"
	} else {
		u.Host = hostname
	}
	return nil
}

func portString(p any) (string, error) {
	var s string
	switch v := p.(type) {
	case nil:
		return "", nil
	case string:
		s = strings.TrimSpace(v)
		if s == "" {
			return "", nil
		}
	case int:
		s = strconv.Itoa(v)
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	case int64:
		s = strconv.FormatInt(v, 10)
	case uint16:
		s = strconv.FormatUint(uint64(v), 10)
	case uint:
		s = strconv.FormatUint(uint64(v), 10)
	default:
		return "", argError("port", "must be a string or integer, got %T", p)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return "", argError("port", "%q is not a valid port", s)
	}
	return s, nil
}

// mergeHeaders layers built-in defaults, client defaults and call headers,
// folding every name to lowercase. Later layers win.
func mergeHeaders(defaults, user map[string]string) (map[string]string, string, error) {
	header := map[string]string{
		"user-agent":      DefaultUserAgent,
		"accept-encoding": DefaultAcceptEncoding,
	}
	for _, layer := range []map[string]string{defaults, user} {
		for _, k := range sortedKeys(layer) {
			name := strings.ToLower(strings.TrimSpace(k))
			v := layer[k]
			if !httpguts.ValidHeaderFieldName(name) {
				return nil, "", argError("headers", "invalid header name %q", k)
			}
			if !httpguts.ValidHeaderFieldValue(v) {
				return nil, "", argError("headers", "invalid value for header %q", k)
			}
			header[name] = v
		}
	}

	host := header["host"]
	delete(header, "host")
	return header, host, nil
}

// checkFraming rejects framing headers the transport cannot send as given.
// A content-length equal to the body length is accepted and sent once.
func checkFraming(cfg *Config) error {
	for _, name := range []string{"transfer-encoding", "trailer"} {
		if _, ok := cfg.Header[name]; ok {
			return argError("headers", "%s cannot be set", name)
		}
	}
	v, ok := cfg.Header["content-length"]
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return argError("headers", "content-length %q is not a valid length", v)
	}
	if n != int64(len(cfg.Body)) {
		return argError("headers", "content-length %d does not match body length %d", n, len(cfg.Body))
	}
	return nil
}

func normalizeEncoding(enc string) (string, error) {
	enc = strings.ToLower(strings.TrimSpace(enc))
	switch enc {
	case "", "utf8", "utf-8":
		return "", nil
	case EncodingNone:
		return EncodingNone, nil
	}
	if _, err := htmlindex.Get(enc); err != nil {
		return "", argError("encoding", "unknown text encoding %q", enc)
	}
	return enc, nil
}
