package mock

import (
	"net/http"
	"time"
)

// Fixtures returns the built-in route set: plain and JSON bodies, echoes,
// compressed and corrupted bodies, and finite, endless and relative
// redirect chains.
func Fixtures() []*Route {
	return []*Route{
		NewRoute("", "/", &MockResponse{StatusCode: http.StatusNotFound, Body: "not"}),
		NewRoute("", "/?cat=meow", &MockResponse{Echo: EchoURL}),
		NewRoute("", "/test", &MockResponse{Echo: EchoURL}),

		NewRoute("", "/ok", &MockResponse{Body: "ok"}),
		NewRoute("", "/empty", &MockResponse{}),
		NewRoute("", "/method", &MockResponse{Echo: EchoMethod}),
		NewRoute("", "/post/body", &MockResponse{Echo: EchoBody}),
		NewRoute("", "/headers", &MockResponse{ContentType: "application/json", Echo: EchoHeaders}),
		NewRoute("", "/slow", &MockResponse{Body: "late", Delay: 2 * time.Second}),

		NewRoute("", "/json/ok", &MockResponse{ContentType: "application/json", Body: `{"data":"dat"}`}),
		NewRoute("", "/json/500", &MockResponse{StatusCode: http.StatusInternalServerError, ContentType: "application/json", Body: `{"data":"dat"}`}),
		NewRoute("", "/json/invalid", &MockResponse{ContentType: "application/json", Body: "/"}),
		NewRoute("", "/json/invalid/500", &MockResponse{StatusCode: http.StatusInternalServerError, ContentType: "application/json", Body: "/"}),

		NewRoute("", "/gzip", &MockResponse{Encoding: "gzip", Body: "ok"}),
		NewRoute("", "/deflate", &MockResponse{Encoding: "deflate", Body: "ok"}),
		NewRoute("", "/corrupted", &MockResponse{Encoding: "gzip", Corrupt: true, Body: "Not gzipped content"}),

		NewRoute("", "/finite", &MockResponse{StatusCode: http.StatusFound, Location: "{{base}}/reached"}),
		NewRoute("", "/endless", &MockResponse{StatusCode: http.StatusFound, Location: "{{base}}/endless"}),
		NewRoute("", "/relative", &MockResponse{StatusCode: http.StatusFound, Location: "/reached"}),
		NewRoute("", "/relativeQuery?bang", &MockResponse{StatusCode: http.StatusFound, Location: "/reached?from=bang"}),
		NewRoute("", "/reached", &MockResponse{Body: "reached", Headers: map[string]string{"X-Charlike": "reached"}}),
	}
}
