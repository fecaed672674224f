package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitfetch/packages/core/config"
	"github.com/abdul-hamid-achik/hitfetch/packages/http"
	"github.com/abdul-hamid-achik/hitfetch/packages/output"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <address>",
	Short: "Perform one HTTP call and print the body",
	Long: `Perform a single HTTP or HTTPS call and print the decoded body.

The address may omit its scheme, in which case http:// is assumed. Non-2xx
responses are printed and reported through the exit code.

Examples:
  hitfetch fetch example.com
  hitfetch fetch https://api.example.com/users --json --get "0.name"
  hitfetch fetch api.example.com -X POST -d '{"name":"ada"}' -H "content-type: application/json"
  hitfetch fetch https://example.com/start -L --max-redirects 3 -v
  hitfetch fetch https://api.example.com/users/1 --json --schema user.schema.json
  hitfetch fetch example.com/logo.png --raw > logo.png`,
	Args: cobra.ExactArgs(1),
	RunE: fetchCommand,
}

var (
	fetchMethodFlag        string
	fetchHeaderFlags       []string
	fetchDataFlag          string
	fetchQueryFlag         string
	fetchPathFlag          string
	fetchHostFlag          string
	fetchPortFlag          string
	fetchTimeoutFlag       time.Duration
	fetchSocketTimeoutFlag time.Duration
	fetchFollowFlag        bool
	fetchMaxRedirectsFlag  int
	fetchJSONFlag          bool
	fetchRawFlag           bool
	fetchEncodingFlag      string
	fetchInsecureFlag      bool
	fetchCACertFlag        string
	fetchGetFlag           string
	fetchSchemaFlag        string
	fetchOutputFlag        string
	fetchVerboseFlag       bool
	fetchNoColorFlag       bool
	fetchConfigFlag        string
)

func init() {
	fetchCmd.Flags().StringVarP(&fetchMethodFlag, "request", "X", "", "HTTP method (default GET, or POST when a body is given)")
	fetchCmd.Flags().StringArrayVarP(&fetchHeaderFlags, "header", "H", nil, "Request header as \"name: value\" (repeatable)")
	fetchCmd.Flags().StringVarP(&fetchDataFlag, "data", "d", "", "Request body; @file reads it from a file")
	fetchCmd.Flags().StringVar(&fetchQueryFlag, "query", "", "Query string, replaces any query in the address")
	fetchCmd.Flags().StringVar(&fetchPathFlag, "path", "", "Path, replaces the address path")
	fetchCmd.Flags().StringVar(&fetchHostFlag, "host", "", "Host override, optionally host:port")
	fetchCmd.Flags().StringVar(&fetchPortFlag, "port", "", "Port override")
	fetchCmd.Flags().DurationVar(&fetchTimeoutFlag, "timeout", 0, "Timeout for the whole call (e.g., 5s)")
	fetchCmd.Flags().DurationVar(&fetchSocketTimeoutFlag, "socket-timeout", 0, "Timeout for connecting and waiting for headers")
	fetchCmd.Flags().BoolVarP(&fetchFollowFlag, "follow", "L", false, "Follow redirects")
	fetchCmd.Flags().IntVar(&fetchMaxRedirectsFlag, "max-redirects", 0, "Maximum redirects to follow (default 10)")
	fetchCmd.Flags().BoolVar(&fetchJSONFlag, "json", false, "Parse the body as JSON")
	fetchCmd.Flags().BoolVar(&fetchRawFlag, "raw", false, "Write the body as raw bytes")
	fetchCmd.Flags().StringVar(&fetchEncodingFlag, "encoding", "", "Text encoding of the body (default utf-8)")
	fetchCmd.Flags().BoolVarP(&fetchInsecureFlag, "insecure", "k", false, "Disable SSL certificate validation")
	fetchCmd.Flags().StringVar(&fetchCACertFlag, "cacert", "", "PEM bundle of trusted CA certificates")
	fetchCmd.Flags().StringVar(&fetchGetFlag, "get", "", "Print only the part of a JSON body at this path (e.g., data.items.0.id)")
	fetchCmd.Flags().StringVar(&fetchSchemaFlag, "schema", "", "Validate the JSON body against a JSON schema file")
	fetchCmd.Flags().StringVarP(&fetchOutputFlag, "output", "o", "console", "Output format: console, json")
	fetchCmd.Flags().BoolVarP(&fetchVerboseFlag, "verbose", "v", false, "Print status, headers and debug logs")
	fetchCmd.Flags().BoolVar(&fetchNoColorFlag, "no-color", false, "Disable colored output")
	fetchCmd.Flags().StringVarP(&fetchConfigFlag, "config", "c", "", "Config file (default: search the working directory)")
}

func fetchCommand(cmd *cobra.Command, args []string) error {
	address := args[0]

	fileConfig, err := config.LoadConfig(fetchConfigFlag)
	if err != nil {
		return exitWith(ExitConfigError, err)
	}

	opts, err := buildFetchOptions(cmd, fileConfig)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}

	var schema []byte
	if fetchSchemaFlag != "" {
		schema, err = os.ReadFile(fetchSchemaFlag)
		if err != nil {
			return exitWith(ExitConfigError, fmt.Errorf("cannot read schema: %w", err))
		}
	}

	verbose := fetchVerboseFlag || fileConfig.GetVerbose()
	clientOpts := fileConfig.ClientOptions()
	if verbose {
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		clientOpts = append(clientOpts, http.WithLogger(logger))
	}
	client := http.NewClient(clientOpts...)

	ctx, cancel := signalContext(nil)
	defer cancel()

	out := cmd.OutOrStdout()
	res, callErr := client.Do(ctx, address, opts)

	if fetchRawFlag && callErr == nil && fetchOutputFlag != "json" {
		if raw, ok := res.Data.([]byte); ok {
			_, err := out.Write(raw)
			return err
		}
	}

	fetch := &output.Fetch{
		Method: strings.ToUpper(opts.Method),
		URL:    address,
		Result: res,
		Err:    callErr,
		Select: fetchGetFlag,
	}
	if res != nil && res.Response != nil {
		fetch.URL = res.Response.URL
	}
	if fetch.Method == "" {
		fetch.Method = inferredMethod(opts)
	}
	if schema != nil && res != nil && res.Response != nil {
		fetch.SchemaChecked = true
		fetch.SchemaErr = res.ValidateSchema(schema)
	}

	formatter := newFetchFormatter(out, verbose, fetchNoColorFlag || fileConfig.GetNoColor())
	if verbose && fetchOutputFlag != "json" {
		formatter.FormatHeader(version)
	}
	formatter.FormatResult(fetch)

	if callErr != nil {
		return exitWith(exitCode(callErr), nil)
	}
	if fetch.SchemaErr != nil {
		return exitWith(ExitCheckFailure, nil)
	}
	return nil
}

func newFetchFormatter(w io.Writer, verbose, noColor bool) output.Formatter {
	return output.New(strings.ToLower(fetchOutputFlag), w,
		output.WithVerbose(verbose),
		output.WithNoColor(noColor),
	)
}

// buildFetchOptions starts from the config file and applies every flag
// that was set explicitly
func buildFetchOptions(cmd *cobra.Command, fileConfig *config.Config) (*http.Options, error) {
	opts, err := fileConfig.RequestOptions()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	opts.Method = fetchMethodFlag
	opts.Path = fetchPathFlag
	opts.Host = fetchHostFlag
	if fetchPortFlag != "" {
		opts.Port = fetchPortFlag
	}
	if fetchQueryFlag != "" {
		opts.Query = fetchQueryFlag
	}

	headers, err := parseHeaderFlags(fetchHeaderFlags)
	if err != nil {
		return nil, err
	}
	opts.Headers = headers

	if flags.Changed("data") {
		body, err := readBodyFlag(fetchDataFlag)
		if err != nil {
			return nil, err
		}
		opts.Body = body
	}

	if flags.Changed("timeout") {
		opts.Timeout = fetchTimeoutFlag
	}
	if flags.Changed("socket-timeout") {
		opts.SocketTimeout = fetchSocketTimeoutFlag
	}
	if flags.Changed("follow") {
		opts.FollowRedirects = fetchFollowFlag
	}
	if flags.Changed("max-redirects") {
		opts.MaxRedirects = fetchMaxRedirectsFlag
	}
	if flags.Changed("json") || fetchGetFlag != "" || fetchSchemaFlag != "" {
		opts.JSON = fetchJSONFlag || !flags.Changed("json")
	}
	if flags.Changed("encoding") {
		opts.Encoding = fetchEncodingFlag
	}
	if fetchRawFlag {
		opts.Encoding = http.EncodingNone
		opts.JSON = false
	}
	if flags.Changed("insecure") {
		opts.Insecure = fetchInsecureFlag
	}
	if fetchCACertFlag != "" {
		pem, err := os.ReadFile(fetchCACertFlag)
		if err != nil {
			return nil, fmt.Errorf("cannot read CA bundle: %w", err)
		}
		opts.CACert = pem
	}

	return opts, nil
}

// parseHeaderFlags turns "name: value" pairs into a header map
func parseHeaderFlags(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"name: value\"", v)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// readBodyFlag returns the body as given, or the contents of the named
// file when the value starts with '@'
func readBodyFlag(value string) (any, error) {
	path, ok := strings.CutPrefix(value, "@")
	if !ok {
		return value, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read body file: %w", err)
	}
	return data, nil
}

func inferredMethod(opts *http.Options) string {
	if opts.Body != nil {
		return "POST"
	}
	return "GET"
}
