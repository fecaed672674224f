// Package mock provides a fixture HTTP server whose routes are declared in
// YAML or in Go. It backs the hitfetch tests and the `hitfetch mock` command.
package mock

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Server is a fixture HTTP server
type Server struct {
	mu      sync.RWMutex
	router  *Router
	port    int
	delay   time.Duration
	verbose bool
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithVerbose enables verbose logging
func WithVerbose(verbose bool) Option {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// WithRoutes registers routes up front
func WithRoutes(routes ...*Route) Option {
	return func(s *Server) {
		for _, route := range routes {
			s.router.AddRoute(route)
		}
	}
}

// NewServer creates a new mock server
func NewServer(opts ...Option) *Server {
	s := &Server{
		router: NewRouter(),
		port:   3000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RouteFile is the YAML document accepted by LoadFile
type RouteFile struct {
	Routes []*Route `yaml:"routes"`
}

// LoadFile replaces the server's routes with those declared in a YAML file
func (s *Server) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read routes file %s: %w", path, err)
	}
	routes, err := ParseRoutes(data)
	if err != nil {
		return fmt.Errorf("failed to parse routes file %s: %w", path, err)
	}
	s.LoadRoutes(routes)
	return nil
}

// ParseRoutes decodes a YAML routes document
func ParseRoutes(data []byte) ([]*Route, error) {
	var file RouteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	for i, route := range file.Routes {
		if route == nil || route.PathPattern == "" {
			return nil, fmt.Errorf("route %d: path is required", i)
		}
		if route.Response == nil {
			route.Response = &MockResponse{}
		}
		switch route.Response.Encoding {
		case "", "gzip", "deflate":
		default:
			return nil, fmt.Errorf("route %d: unsupported encoding %q", i, route.Response.Encoding)
		}
		switch route.Response.Echo {
		case "", EchoURL, EchoHeaders, EchoMethod, EchoBody:
		default:
			return nil, fmt.Errorf("route %d: unsupported echo mode %q", i, route.Response.Echo)
		}
	}
	return file.Routes, nil
}

// LoadRoutes replaces the server's routes
func (s *Server) LoadRoutes(routes []*Route) {
	router := NewRouter()
	for _, route := range routes {
		router.AddRoute(route)
	}

	s.mu.Lock()
	s.router = router
	s.mu.Unlock()
}

// Handler returns the server as an http.Handler, for use with httptest
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleRequest)
}

// Start starts the mock server
func (s *Server) Start() error {
	return s.StartWithContext(context.Background())
}

// StartWithContext starts the server with context for graceful shutdown
func (s *Server) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	routes := s.GetRoutes()
	log.Printf("Mock server starting on http://localhost:%d", s.port)
	log.Printf("Routes loaded: %d", len(routes))

	if s.verbose {
		for _, route := range routes {
			log.Printf("  %s %s -> %d", methodLabel(route.Method), route.PathPattern, route.status())
		}
	}

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.delay > 0 && !sleep(r.Context(), s.delay) {
		return
	}

	s.mu.RLock()
	route, params := s.router.Match(r.Method, r.URL.Path, r.URL.RawQuery)
	s.mu.RUnlock()

	if route == nil {
		if s.verbose {
			log.Printf("%s %s -> 404 Not Found (%s)", r.Method, r.URL.RequestURI(), time.Since(start))
		}
		http.NotFound(w, r)
		return
	}

	if route.Handler != nil {
		route.Handler(w, r)
		if s.verbose {
			log.Printf("%s %s -> handler (%s)", r.Method, r.URL.RequestURI(), time.Since(start))
		}
		return
	}

	resp := route.Response
	if resp.Delay > 0 && !sleep(r.Context(), resp.Delay) {
		return
	}

	body, err := s.renderBody(resp, r, params)
	if err != nil {
		log.Printf("%s %s -> 500 %v", r.Method, r.URL.RequestURI(), err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	if resp.Location != "" {
		w.Header().Set("Location", strings.ReplaceAll(resp.Location, "{{base}}", baseURL(r)))
	}
	if resp.Encoding != "" {
		w.Header().Set("Content-Encoding", resp.Encoding)
	}

	status := route.status()
	w.WriteHeader(status)
	w.Write(body)

	if s.verbose {
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.RequestURI(), status, time.Since(start))
	}
}

func (s *Server) renderBody(resp *MockResponse, r *http.Request, params map[string]string) ([]byte, error) {
	var body []byte
	switch resp.Echo {
	case EchoURL:
		body = []byte(r.URL.RequestURI())
	case EchoMethod:
		body = []byte(r.Method)
	case EchoBody:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		body = data
	case EchoHeaders:
		headers := make(map[string]string, len(r.Header)+1)
		for k, v := range r.Header {
			headers[strings.ToLower(k)] = strings.Join(v, ", ")
		}
		headers["host"] = r.Host
		data, err := json.Marshal(headers)
		if err != nil {
			return nil, err
		}
		body = data
	default:
		body = []byte(resolveBodyParams(resp.Body, params))
	}

	if resp.Encoding == "" || resp.Corrupt {
		return body, nil
	}
	return compress(resp.Encoding, body)
}

func compress(encoding string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "deflate":
		w = zlib.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
	if _, err := w.Write(body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resolveBodyParams(body string, params map[string]string) string {
	result := body
	for key, value := range params {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
			host = addr.String()
		}
	}
	return scheme + "://" + host
}

// sleep waits for d and reports false if the request went away first
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func methodLabel(method string) string {
	if method == "" {
		return "*"
	}
	return method
}

// GetRoutes returns all registered routes
func (s *Server) GetRoutes() []*Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Route(nil), s.router.routes...)
}
