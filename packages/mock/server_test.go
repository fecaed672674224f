package mock

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noRedirect keeps the stdlib client from following fixture redirects
var noRedirect = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
	Transport: &http.Transport{DisableCompression: true},
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := noRedirect.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRouter_Match(t *testing.T) {
	router := NewRouter()
	router.AddRoute(NewRoute("GET", "/users/{{id}}", &MockResponse{}))
	router.AddRoute(NewRoute("", "/search?q=go", &MockResponse{Body: "query"}))
	router.AddRoute(NewRoute("", "/search", &MockResponse{Body: "plain"}))

	route, params := router.Match("GET", "/users/42", "")
	require.NotNil(t, route)
	assert.Equal(t, "42", params["id"])

	route, _ = router.Match("POST", "/users/42", "")
	assert.Nil(t, route)

	route, _ = router.Match("GET", "/search", "q=go")
	require.NotNil(t, route)
	assert.Equal(t, "query", route.Response.Body)

	route, _ = router.Match("GET", "/search", "q=rust")
	require.NotNil(t, route)
	assert.Equal(t, "plain", route.Response.Body)

	route, _ = router.Match("DELETE", "/search/", "")
	require.NotNil(t, route)
	assert.Equal(t, "plain", route.Response.Body)
}

func TestServer_Fixtures(t *testing.T) {
	server := httptest.NewServer(NewServer(WithRoutes(Fixtures()...)).Handler())
	defer server.Close()

	t.Run("root is not found", func(t *testing.T) {
		resp, body := get(t, server.URL+"/")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "not", body)
	})

	t.Run("echo url", func(t *testing.T) {
		_, body := get(t, server.URL+"/test?a=1")
		assert.Equal(t, "/test?a=1", body)

		_, body = get(t, server.URL+"/?cat=meow")
		assert.Equal(t, "/?cat=meow", body)
	})

	t.Run("gzip", func(t *testing.T) {
		resp, body := get(t, server.URL+"/gzip")
		assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
		zr, err := gzip.NewReader(strings.NewReader(body))
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(plain))
	})

	t.Run("corrupted", func(t *testing.T) {
		resp, body := get(t, server.URL+"/corrupted")
		assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
		assert.Equal(t, "Not gzipped content", body)
	})

	t.Run("finite redirect", func(t *testing.T) {
		resp, _ := get(t, server.URL+"/finite")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, server.URL+"/reached", resp.Header.Get("Location"))
	})

	t.Run("relative redirect with query", func(t *testing.T) {
		resp, _ := get(t, server.URL+"/relativeQuery?bang")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/reached?from=bang", resp.Header.Get("Location"))
	})

	t.Run("echo body", func(t *testing.T) {
		resp, err := noRedirect.Post(server.URL+"/post/body", "text/plain", bytes.NewBufferString("wow"))
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "wow", string(body))
	})
}

func TestParseRoutes(t *testing.T) {
	data := []byte(`
routes:
  - method: GET
    path: /hello/{{name}}
    response:
      status: 201
      contentType: text/plain
      body: "hi {{name}}"
      delay: 10ms
  - path: /zipped
    response:
      encoding: deflate
      body: squeezed
`)
	routes, err := ParseRoutes(data)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, 201, routes[0].Response.StatusCode)
	assert.Equal(t, 10*time.Millisecond, routes[0].Response.Delay)

	server := httptest.NewServer(NewServer(WithRoutes(routes...)).Handler())
	defer server.Close()

	resp, body := get(t, server.URL+"/hello/world")
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "hi world", body)
}

func TestParseRoutes_Invalid(t *testing.T) {
	_, err := ParseRoutes([]byte("routes:\n  - response:\n      body: x\n"))
	assert.Error(t, err)

	_, err = ParseRoutes([]byte("routes:\n  - path: /x\n    response:\n      encoding: br\n"))
	assert.Error(t, err)

	_, err = ParseRoutes([]byte("routes:\n  - path: /x\n    response:\n      echo: cookies\n"))
	assert.Error(t, err)
}

func TestServer_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routes:\n  - path: /a\n    response:\n      body: first\n"), 0644))

	s := NewServer()
	require.NoError(t, s.LoadFile(path))
	assert.Len(t, s.GetRoutes(), 1)

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	_, body := get(t, server.URL+"/a")
	assert.Equal(t, "first", body)

	assert.Error(t, s.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestServer_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routes:\n  - path: /a\n    response:\n      body: first\n"), 0644))

	s := NewServer()
	require.NoError(t, s.LoadFile(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, path) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("routes:\n  - path: /a\n    response:\n      body: second\n  - path: /b\n"), 0644))

	assert.Eventually(t, func() bool {
		return len(s.GetRoutes()) == 2
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestServer_DelayHonoursClientCancel(t *testing.T) {
	server := httptest.NewServer(NewServer(WithDelay(5 * time.Second)).Handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/", nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = noRedirect.Do(req)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
