package http

import "encoding/json"

// finalize turns an aggregated response into the caller-visible data and
// error. A JSON parse failure replaces a status error and leaves data as
// the unparsed body; a successful parse keeps the status error.
func finalize(cfg *Config, resp *Response, data any, raw []byte) (any, error) {
	var err error
	if !resp.IsSuccess() {
		err = &StatusError{
			URL:        resp.URL,
			StatusCode: resp.StatusCode,
			Reason:     reasonPhrase(resp.StatusCode, resp.Status),
		}
	}
	if !cfg.JSON {
		return data, err
	}

	src := raw
	if text, ok := data.(string); ok {
		src = []byte(text)
	}
	if len(src) == 0 {
		return nil, err
	}

	var parsed any
	if jerr := json.Unmarshal(src, &parsed); jerr != nil {
		return data, &JSONError{StatusCode: resp.StatusCode, Err: jerr}
	}
	return parsed, err
}
