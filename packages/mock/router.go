package mock

import (
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Route represents a mock route
type Route struct {
	Method      string        `yaml:"method"`
	PathPattern string        `yaml:"path"`
	Name        string        `yaml:"name"`
	Response    *MockResponse `yaml:"response"`

	PathRegex *regexp.Regexp `yaml:"-"`
	// Handler, when set, replaces Response entirely.
	Handler http.HandlerFunc `yaml:"-"`
}

// Echo modes reflect part of the incoming request back in the response.
const (
	EchoURL     = "url"
	EchoHeaders = "headers"
	EchoMethod  = "method"
	EchoBody    = "body"
)

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode  int               `yaml:"status"`
	ContentType string            `yaml:"contentType"`
	Headers     map[string]string `yaml:"headers"`
	Body        string            `yaml:"body"`
	// Encoding compresses Body with gzip or deflate.
	Encoding string `yaml:"encoding"`
	// Corrupt sends Body uncompressed while still labelling it with Encoding.
	Corrupt bool `yaml:"corrupt"`
	// Location is sent as the Location header; {{base}} expands to the
	// server's own scheme and host.
	Location string `yaml:"location"`
	Echo     string `yaml:"echo"`
	// Delay holds the response back, e.g. "250ms".
	Delay time.Duration `yaml:"delay"`
}

func (r *Route) status() int {
	if r.Response == nil || r.Response.StatusCode == 0 {
		return http.StatusOK
	}
	return r.Response.StatusCode
}

// NewRoute builds a route and compiles its path pattern
func NewRoute(method, pattern string, resp *MockResponse) *Route {
	route := &Route{Method: method, PathPattern: pattern, Response: resp}
	route.compile()
	return route
}

// HandleFunc builds a route served by a custom handler
func HandleFunc(method, pattern string, h http.HandlerFunc) *Route {
	route := &Route{Method: method, PathPattern: pattern, Handler: h}
	route.compile()
	return route
}

func (r *Route) compile() {
	if r.PathRegex == nil && !strings.Contains(r.PathPattern, "?") {
		r.PathRegex = createPathRegex(normalizePath(r.PathPattern))
	}
}

// Router matches incoming requests to routes
type Router struct {
	routes []*Route
}

// NewRouter creates a new router
func NewRouter() *Router {
	return &Router{
		routes: make([]*Route, 0),
	}
}

// AddRoute adds a route to the router
func (r *Router) AddRoute(route *Route) {
	route.compile()
	r.routes = append(r.routes, route)
}

// Match finds a route matching the given method, path and raw query.
// Patterns containing '?' must match path and query exactly and take
// precedence over path-only patterns.
func (r *Router) Match(method, path, rawQuery string) (*Route, map[string]string) {
	path = normalizePath(path)

	if rawQuery != "" {
		full := path + "?" + rawQuery
		for _, route := range r.routes {
			if methodMatches(route.Method, method) && strings.Contains(route.PathPattern, "?") && route.PathPattern == full {
				return route, make(map[string]string)
			}
		}
	}

	for _, route := range r.routes {
		if !methodMatches(route.Method, method) || strings.Contains(route.PathPattern, "?") {
			continue
		}

		if params := matchPath(route, path); params != nil {
			return route, params
		}
	}

	return nil, nil
}

func methodMatches(routeMethod, method string) bool {
	return routeMethod == "" || routeMethod == "*" || strings.EqualFold(routeMethod, method)
}

func normalizePath(path string) string {
	// Ensure path starts with /
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	// Remove trailing slash (except for root)
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

func createPathRegex(pattern string) *regexp.Regexp {
	// Convert {{param}} to named capture groups
	regexPattern := regexp.MustCompile(`\{\{([^}]+)\}\}`).ReplaceAllString(pattern, `(?P<$1>[^/]+)`)

	regex, err := regexp.Compile("^" + regexPattern + "$")
	if err != nil {
		return regexp.MustCompile("^" + regexp.QuoteMeta(pattern) + "$")
	}
	return regex
}

func matchPath(route *Route, path string) map[string]string {
	if route.PathRegex != nil {
		matches := route.PathRegex.FindStringSubmatch(path)
		if matches != nil {
			params := make(map[string]string)
			names := route.PathRegex.SubexpNames()
			for i, name := range names {
				if i > 0 && name != "" && i < len(matches) {
					params[name] = matches[i]
				}
			}
			return params
		}
	}

	if normalizePath(route.PathPattern) == path {
		return make(map[string]string)
	}

	return nil
}
