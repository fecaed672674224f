package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/fatih/color"
)

// formatData renders response data for the terminal
func formatData(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		return fmt.Sprintf("[binary body with %d bytes]", len(val))
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

// WithVerbose prints the status line and response headers above the body
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(fetch *Fetch) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	resp := fetch.response()
	if f.verbose && resp != nil {
		status := green(resp.Status)
		switch {
		case resp.IsRedirect():
			status = yellow(resp.Status)
		case !resp.IsSuccess():
			status = red(resp.Status)
		}
		fmt.Fprintf(f.writer, "%s %s %s %s\n", bold(fetch.Method), resp.URL, status, cyan(fmt.Sprintf("(%dms)", resp.DurationMs())))
		if resp.Redirects > 0 {
			fmt.Fprintf(f.writer, "%s\n", yellow(fmt.Sprintf("Redirects: %d", resp.Redirects)))
		}

		names := make([]string, 0, len(resp.Headers))
		for name := range resp.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(f.writer, "%s: %s\n", cyan(name), resp.Headers[name])
		}
		fmt.Fprintf(f.writer, "\n")
	}

	if body, ok := fetch.body(); ok {
		fmt.Fprintf(f.writer, "%s\n", formatData(body))
	}

	if fetch.SchemaErr != nil {
		fmt.Fprintf(f.writer, "%s %v\n", red("✗"), fetch.SchemaErr)
	} else if fetch.SchemaChecked {
		fmt.Fprintf(f.writer, "%s %s\n", green("✓"), "schema valid")
	}

	if fetch.Err != nil {
		f.FormatError(fetch.Err)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitfetch"), version)
}
