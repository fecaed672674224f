package output

import (
	"encoding/json"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/hitfetch/packages/http"
)

// JSONOutput is the machine-readable envelope of one fetch
type JSONOutput struct {
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	StatusCode int               `json:"statusCode,omitempty"`
	Status     string            `json:"status,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Redirects  int               `json:"redirects"`
	Duration   float64           `json:"duration"`
	Data       any               `json:"data,omitempty"`
	Schema     *JSONSchema       `json:"schema,omitempty"`
	Error      *JSONError        `json:"error,omitempty"`
	Time       string            `json:"time"`
}

// JSONSchema reports the outcome of a schema check
type JSONSchema struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// JSONError describes a failed call
type JSONError struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Code       string `json:"code,omitempty"`
}

// JSONFormatter writes each fetch as a JSON document
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(fetch *Fetch) {
	out := JSONOutput{
		Method: fetch.Method,
		URL:    fetch.URL,
		Time:   time.Now().Format(time.RFC3339),
	}

	if resp := fetch.response(); resp != nil {
		out.URL = resp.URL
		out.StatusCode = resp.StatusCode
		out.Status = resp.Status
		out.Headers = resp.Headers
		out.Redirects = resp.Redirects
		out.Duration = float64(resp.Duration.Milliseconds())
	}

	if body, ok := fetch.body(); ok {
		// binary bodies stay []byte and are base64 encoded
		if raw, isBytes := body.([]byte); isBytes && utf8.Valid(raw) {
			out.Data = string(raw)
		} else {
			out.Data = body
		}
	}

	if fetch.SchemaChecked {
		out.Schema = &JSONSchema{Valid: fetch.SchemaErr == nil}
		if fetch.SchemaErr != nil {
			out.Schema.Message = fetch.SchemaErr.Error()
		}
	}

	if fetch.Err != nil {
		out.Error = describeError(fetch.Err)
	}

	f.encode(out)
}

func (f *JSONFormatter) FormatError(err error) {
	f.encode(struct {
		Error *JSONError `json:"error"`
	}{describeError(err)})
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

func (f *JSONFormatter) encode(v any) {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(v)
}

func describeError(err error) *JSONError {
	return &JSONError{
		Kind:       http.Kind(err),
		Message:    err.Error(),
		StatusCode: http.StatusCode(err),
		Code:       string(http.Code(err)),
	}
}
