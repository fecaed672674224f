package output

import (
	"io"

	"github.com/abdul-hamid-achik/hitfetch/packages/http"
)

// Formatter renders the outcome of a fetch
type Formatter interface {
	FormatResult(fetch *Fetch)
	FormatError(err error)
	FormatHeader(version string)
}

// Fetch is one completed call as shown to the user
type Fetch struct {
	Method string
	URL    string
	Result *http.Result
	Err    error

	// Select, when set, is a gjson path; only the matching part of the body
	// is printed.
	Select string

	SchemaChecked bool
	SchemaErr     error
}

func (f *Fetch) response() *http.Response {
	if f.Result == nil {
		return nil
	}
	return f.Result.Response
}

// body returns what should be printed as the body, and whether there is
// anything to print at all
func (f *Fetch) body() (any, bool) {
	if f.Result == nil || f.Result.Response == nil {
		return nil, false
	}
	if f.Select != "" {
		selected := f.Result.Get(f.Select)
		if !selected.Exists() {
			return nil, false
		}
		return selected.Value(), true
	}
	if f.Result.Data == nil {
		return nil, false
	}
	return f.Result.Data, true
}

// New returns the formatter registered under name, writing to w. Unknown
// names fall back to the console formatter.
func New(name string, w io.Writer, opts ...ConsoleOption) Formatter {
	switch name {
	case "json":
		return NewJSONFormatter(JSONWithWriter(w))
	default:
		return NewConsoleFormatter(append([]ConsoleOption{WithWriter(w)}, opts...)...)
	}
}
