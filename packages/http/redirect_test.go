package http

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redirectResponse(status int, location string) *http.Response {
	header := http.Header{}
	if location != "" {
		header.Set("Location", location)
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader("moved")),
	}
}

func TestRedirectState_Next(t *testing.T) {
	current, _ := url.Parse("http://example.com/a/b?x=1")
	follow := &Config{FollowRedirects: true, MaxRedirects: 10}

	tests := []struct {
		name     string
		cfg      *Config
		resp     *http.Response
		expected string
	}{
		{"absolute", follow, redirectResponse(301, "https://other.com/c"), "https://other.com/c"},
		{"relative path", follow, redirectResponse(302, "../c"), "http://example.com/c"},
		{"root relative", follow, redirectResponse(303, "/c?y=2"), "http://example.com/c?y=2"},
		{"fragment dropped", follow, redirectResponse(307, "/c#frag"), "http://example.com/c"},
		{"use proxy", follow, redirectResponse(305, "/p"), "http://example.com/p"},
		{"permanent", follow, redirectResponse(308, "/p"), "http://example.com/p"},
		{"multiple choices", follow, redirectResponse(300, "/p"), "http://example.com/p"},
		{"disabled", &Config{MaxRedirects: 10}, redirectResponse(302, "/c"), ""},
		{"not a redirect code", follow, redirectResponse(201, "/c"), ""},
		{"not modified", follow, redirectResponse(304, "/c"), ""},
		{"missing location", follow, redirectResponse(302, ""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &redirectState{max: tt.cfg.MaxRedirects}
			next, err := state.next(tt.cfg, tt.resp, current)
			require.NoError(t, err)
			if tt.expected == "" {
				assert.Nil(t, next)
				assert.Equal(t, 0, state.count)
				return
			}
			require.NotNil(t, next)
			assert.Equal(t, tt.expected, next.String())
			assert.Equal(t, 1, state.count)
		})
	}
}

func TestRedirectState_Limit(t *testing.T) {
	current, _ := url.Parse("http://example.com/loop")
	cfg := &Config{FollowRedirects: true, MaxRedirects: 2}
	state := &redirectState{max: cfg.MaxRedirects}

	for i := 0; i < 2; i++ {
		next, err := state.next(cfg, redirectResponse(302, "/loop"), current)
		require.NoError(t, err)
		require.NotNil(t, next)
	}

	_, err := state.next(cfg, redirectResponse(302, "/loop"), current)
	var limitErr *RedirectLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 2, limitErr.Count)
	assert.Equal(t, "Redirected 2 times. Aborting (maxRedirects 2) at http://example.com/loop", err.Error())
}
