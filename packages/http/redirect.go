package http

import (
	"io"
	"net/http"
	neturl "net/url"
)

// maxDrain bounds how much of a discarded redirect body is read so the
// connection can be reused.
const maxDrain = 64 << 10

var redirectCodes = map[int]bool{
	http.StatusMultipleChoices:   true,
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusUseProxy:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

// redirectState counts the redirects followed by one call.
type redirectState struct {
	count int
	max   int
}

// next decides whether resp is followed. It returns the next target, nil to
// finalize resp, or a *RedirectLimitError once max redirects were followed.
// A followed or rejected redirect has its body discarded.
func (s *redirectState) next(cfg *Config, resp *http.Response, current *neturl.URL) (*neturl.URL, error) {
	if !cfg.FollowRedirects || !redirectCodes[resp.StatusCode] {
		return nil, nil
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return nil, nil
	}
	ref, err := neturl.Parse(location)
	if err != nil {
		return nil, nil
	}

	discard(resp.Body)

	if s.count >= s.max {
		return nil, &RedirectLimitError{URL: current.String(), Count: s.count, Max: s.max}
	}
	s.count++

	target := current.ResolveReference(ref)
	target.Fragment = ""
	target.RawFragment = ""
	return target, nil
}

func discard(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrain))
	_ = body.Close()
}
