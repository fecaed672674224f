package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Response describes the final response of a call. Header names are stored
// lowercase; multiple values are joined with ", ".
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	URL        string
	Redirects  int
	Duration   time.Duration
}

func (r *Response) Header(key string) string {
	if v, ok := r.Headers[strings.ToLower(key)]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// Result is what a completed call produced. Data is a string, a []byte
// (EncodingNone) or a decoded JSON value; Raw always holds the decoded body.
type Result struct {
	Data     any
	Raw      []byte
	Response *Response
}

func (r *Result) Text() string {
	return string(r.Raw)
}

// Get looks up a gjson path in the body.
func (r *Result) Get(path string) gjson.Result {
	if path == "" {
		return gjson.ParseBytes(r.Raw)
	}
	return gjson.GetBytes(r.Raw, path)
}

// ValidateSchema checks the body against a JSON schema document.
func (r *Result) ValidateSchema(schema []byte) error {
	if !gjson.ValidBytes(r.Raw) {
		return errors.New("schema validation: body is not valid JSON")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(r.Raw),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(problems, "; "))
}
