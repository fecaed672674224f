package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitfetch/packages/http"
)

func sampleFetch() *Fetch {
	return &Fetch{
		Method: "GET",
		URL:    "http://example.com/users",
		Result: &http.Result{
			Data: map[string]any{"name": "ada", "id": float64(7)},
			Raw:  []byte(`{"name":"ada","id":7}`),
			Response: &http.Response{
				StatusCode: 200,
				Status:     "200 OK",
				Headers:    map[string]string{"content-type": "application/json", "x-trace": "abc"},
				URL:        "http://example.com/users",
				Redirects:  1,
				Duration:   42 * time.Millisecond,
			},
		},
	}
}

func TestConsoleFormatter_Body(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatResult(sampleFetch())

	out := buf.String()
	assert.Contains(t, out, `"name": "ada"`)
	assert.NotContains(t, out, "content-type")
}

func TestConsoleFormatter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	f.FormatResult(sampleFetch())

	out := buf.String()
	assert.Contains(t, out, "GET http://example.com/users 200 OK (42ms)")
	assert.Contains(t, out, "Redirects: 1")
	assert.Contains(t, out, "content-type: application/json")
	assert.Contains(t, out, "x-trace: abc")
}

func TestConsoleFormatter_Select(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	fetch := sampleFetch()
	fetch.Select = "name"
	f.FormatResult(fetch)

	assert.Equal(t, "ada\n", buf.String())
}

func TestConsoleFormatter_Error(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatResult(&Fetch{Method: "GET", URL: "http://nowhere", Err: errors.New("dial tcp: refused")})

	assert.Equal(t, "Error: dial tcp: refused\n", buf.String())
}

func TestConsoleFormatter_Schema(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	fetch := sampleFetch()
	fetch.SchemaChecked = true
	fetch.SchemaErr = errors.New("schema validation failed: id is required")
	f.FormatResult(fetch)

	assert.Contains(t, buf.String(), "schema validation failed")
}

func TestFormatData(t *testing.T) {
	assert.Equal(t, "", formatData(nil))
	assert.Equal(t, "text", formatData("text"))
	assert.Equal(t, "bytes", formatData([]byte("bytes")))
	assert.Equal(t, "[binary body with 2 bytes]", formatData([]byte{0xff, 0xfe}))
	assert.Equal(t, "[\n  1,\n  2\n]", formatData([]any{float64(1), float64(2)}))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	fetch := sampleFetch()
	fetch.Err = &http.StatusError{URL: "http://example.com/users", StatusCode: 500, Reason: "Internal Server Error"}
	f.FormatResult(fetch)

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "GET", out.Method)
	assert.Equal(t, 200, out.StatusCode)
	assert.Equal(t, 1, out.Redirects)
	assert.Equal(t, float64(42), out.Duration)
	assert.Equal(t, map[string]any{"name": "ada", "id": float64(7)}, out.Data)
	require.NotNil(t, out.Error)
	assert.Equal(t, "status", out.Error.Kind)
	assert.Equal(t, 500, out.Error.StatusCode)
}

func TestJSONFormatter_TransportError(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	f.FormatResult(&Fetch{
		Method: "GET",
		URL:    "http://nowhere",
		Err:    &http.TransportError{Method: "GET", URL: "http://nowhere", Err: errors.New("refused")},
	})

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "http://nowhere", out.URL)
	assert.Zero(t, out.StatusCode)
	assert.Nil(t, out.Data)
	require.NotNil(t, out.Error)
	assert.Equal(t, "transport", out.Error.Kind)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	assert.IsType(t, &JSONFormatter{}, New("json", &buf))
	assert.IsType(t, &ConsoleFormatter{}, New("console", &buf, WithNoColor(true)))
	assert.IsType(t, &ConsoleFormatter{}, New("unknown", &buf, WithNoColor(true)))
}
