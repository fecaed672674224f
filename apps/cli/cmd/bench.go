package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitfetch/packages/bench"
	"github.com/abdul-hamid-achik/hitfetch/packages/core/config"
	"github.com/abdul-hamid-achik/hitfetch/packages/db"
	"github.com/abdul-hamid-achik/hitfetch/packages/http"
)

var benchCmd = &cobra.Command{
	Use:   "bench <address>",
	Short: "Call one address repeatedly and report latency",
	Long: `Issue the same call many times with bounded concurrency and report
latency percentiles, throughput and failures grouped by kind.

Examples:
  hitfetch bench localhost:3000/ok -n 1000 -c 20
  hitfetch bench https://api.example.com/health -n 500 --rate 50
  hitfetch bench localhost:3000/json/ok --json -n 200 --threshold "p95<50ms,errors<1%"
  hitfetch bench localhost:3000/ok --duration 10s -n 100000 --output json
  hitfetch bench localhost:3000/ok -n 500 --history sqlite://bench.db`,
	Args: cobra.ExactArgs(1),
	RunE: benchCommand,
}

var (
	benchRequestsFlag    int
	benchConcurrencyFlag int
	benchRateFlag        float64
	benchDurationFlag    string
	benchThresholdFlag   string
	benchMethodFlag      string
	benchHeaderFlags     []string
	benchDataFlag        string
	benchJSONFlag        bool
	benchFollowFlag      bool
	benchInsecureFlag    bool
	benchOutputFlag      string
	benchNoColorFlag     bool
	benchVerboseFlag     bool
	benchConfigFlag      string
	benchHistoryFlag     string
)

func init() {
	benchCmd.Flags().IntVarP(&benchRequestsFlag, "requests", "n", 100, "Total number of calls")
	benchCmd.Flags().IntVarP(&benchConcurrencyFlag, "concurrency", "c", 10, "Calls in flight at once")
	benchCmd.Flags().Float64VarP(&benchRateFlag, "rate", "r", 0, "Calls per second (0 means as fast as possible)")
	benchCmd.Flags().StringVar(&benchDurationFlag, "duration", "", "Stop after this long even if calls remain (e.g., 30s)")
	benchCmd.Flags().StringVar(&benchThresholdFlag, "threshold", "", "Pass/fail thresholds (e.g., \"p95<200ms,errors<0.1%\")")
	benchCmd.Flags().StringVarP(&benchMethodFlag, "request", "X", "", "HTTP method")
	benchCmd.Flags().StringArrayVarP(&benchHeaderFlags, "header", "H", nil, "Request header as \"name: value\" (repeatable)")
	benchCmd.Flags().StringVarP(&benchDataFlag, "data", "d", "", "Request body; @file reads it from a file")
	benchCmd.Flags().BoolVar(&benchJSONFlag, "json", false, "Parse bodies as JSON, counting invalid JSON as a failure")
	benchCmd.Flags().BoolVarP(&benchFollowFlag, "follow", "L", false, "Follow redirects")
	benchCmd.Flags().BoolVarP(&benchInsecureFlag, "insecure", "k", false, "Disable SSL certificate validation")
	benchCmd.Flags().StringVarP(&benchOutputFlag, "output", "o", "console", "Output format: console, json")
	benchCmd.Flags().BoolVar(&benchNoColorFlag, "no-color", false, "Disable colored output")
	benchCmd.Flags().BoolVarP(&benchVerboseFlag, "verbose", "v", false, "Show the status code breakdown")
	benchCmd.Flags().StringVar(&benchConfigFlag, "config", "", "Config file (default: search the working directory)")
	benchCmd.Flags().StringVar(&benchHistoryFlag, "history", "", "SQLite file to record runs in and compare against (e.g., sqlite://bench.db)")
}

func benchCommand(cmd *cobra.Command, args []string) error {
	address := args[0]

	fileConfig, err := config.LoadConfig(benchConfigFlag)
	if err != nil {
		return exitWith(ExitConfigError, err)
	}

	cfg, err := buildBenchConfig()
	if err != nil {
		return exitWith(ExitUsageError, err)
	}

	opts, err := buildBenchOptions(cmd, fileConfig)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}

	client := http.NewClient(fileConfig.ClientOptions()...)
	runner, err := bench.NewRunner(cfg, bench.WithHTTPClient(client))
	if err != nil {
		return exitWith(ExitUsageError, err)
	}

	reporter := bench.NewReporter(
		bench.WithWriter(cmd.OutOrStdout()),
		bench.WithNoColor(benchNoColorFlag || fileConfig.GetNoColor()),
		bench.WithVerbose(benchVerboseFlag),
	)

	ctx, cancel := signalContext(func() {
		fmt.Fprintln(os.Stderr, "\nReceived interrupt, stopping gracefully...")
	})
	defer cancel()

	if benchOutputFlag != "json" {
		reporter.Header(version, address, cfg)
	}

	started := time.Now()
	result, err := runner.Run(ctx, address, opts)
	if err != nil {
		return exitWith(exitCode(err), err)
	}

	if benchOutputFlag == "json" {
		if err := reporter.JSONSummary(result.Summary, result.Thresholds); err != nil {
			return err
		}
	} else {
		reporter.Summary(result.Summary, result.Thresholds)
	}

	if benchHistoryFlag != "" {
		if err := recordRun(ctx, reporter, address, started, result); err != nil {
			reporter.Error("%v", err)
		}
	}

	if !result.Passed {
		return exitWith(ExitCheckFailure, nil)
	}
	return nil
}

// recordRun stores the run in the history database and compares it with
// the previous run of the same address
func recordRun(ctx context.Context, reporter *bench.Reporter, address string, started time.Time, result *bench.Result) error {
	history, err := db.NewClient(benchHistoryFlag)
	if err != nil {
		return err
	}
	defer history.Close()

	s := result.Summary
	run := &db.Run{
		Address:   address,
		StartedAt: started,
		Duration:  s.Duration,
		Requests:  s.TotalRequests,
		Success:   s.SuccessCount,
		Errors:    s.ErrorCount,
		RPS:       s.RPS,
		P50:       s.P50,
		P95:       s.P95,
		P99:       s.P99,
		Max:       s.Max,
		Mean:      s.Mean,
		Passed:    result.Passed,
	}
	if _, err := history.SaveRun(ctx, run); err != nil {
		return err
	}

	prev, err := history.Previous(ctx, address, run.ID)
	if err != nil || prev == nil || benchOutputFlag == "json" {
		return err
	}

	reporter.Compare(fmt.Sprintf("run #%d (%s)", prev.ID, prev.StartedAt.Format(time.RFC3339)), &bench.Summary{
		RPS:       prev.RPS,
		ErrorRate: errorRate(prev),
		P50:       prev.P50,
		P95:       prev.P95,
		P99:       prev.P99,
	}, s)
	return nil
}

func errorRate(run *db.Run) float64 {
	if run.Requests == 0 {
		return 0
	}
	return float64(run.Errors) / float64(run.Requests)
}

func buildBenchConfig() (*bench.Config, error) {
	cfg := bench.DefaultConfig()
	cfg.Requests = benchRequestsFlag
	cfg.Concurrency = benchConcurrencyFlag
	cfg.Rate = benchRateFlag

	if benchDurationFlag != "" {
		d, err := time.ParseDuration(benchDurationFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid duration: %w", err)
		}
		cfg.Duration = d
	}

	if benchThresholdFlag != "" {
		t, err := bench.ParseThresholds(benchThresholdFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid thresholds: %w", err)
		}
		cfg.Thresholds = t
	}

	return cfg, cfg.Validate()
}

func buildBenchOptions(cmd *cobra.Command, fileConfig *config.Config) (*http.Options, error) {
	opts, err := fileConfig.RequestOptions()
	if err != nil {
		return nil, err
	}

	opts.Method = benchMethodFlag
	headers, err := parseHeaderFlags(benchHeaderFlags)
	if err != nil {
		return nil, err
	}
	opts.Headers = headers

	flags := cmd.Flags()
	if flags.Changed("data") {
		body, err := readBodyFlag(benchDataFlag)
		if err != nil {
			return nil, err
		}
		opts.Body = body
	}
	if flags.Changed("json") {
		opts.JSON = benchJSONFlag
	}
	if flags.Changed("follow") {
		opts.FollowRedirects = benchFollowFlag
	}
	if flags.Changed("insecure") {
		opts.Insecure = benchInsecureFlag
	}
	return opts, nil
}
