package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitfetch/packages/mock"
)

var (
	mockPortFlag    int
	mockDelayFlag   string
	mockWatchFlag   bool
	mockVerboseFlag bool
)

var mockCmd = &cobra.Command{
	Use:   "mock [routes.yaml]",
	Short: "Start a mock server to fetch against",
	Long: `Start an HTTP mock server. Routes come from a YAML file, or from the
built-in fixtures when no file is given.

The built-in fixtures cover plain text, JSON (valid and invalid, 2xx and
5xx), gzip and deflate bodies, a corrupted gzip body, finite, endless and
relative redirects, and echo routes for the URL, method, headers and body.

Routes file format:
  routes:
    - method: GET
      path: /users/{{id}}
      response:
        status: 200
        contentType: application/json
        body: '{"id": "{{id}}"}'
        encoding: gzip
        delay: 50ms

Examples:
  hitfetch mock
  hitfetch mock routes.yaml --port 3000
  hitfetch mock routes.yaml --port 3000 --delay 100ms
  hitfetch mock routes.yaml --watch --verbose`,
	Args: cobra.MaximumNArgs(1),
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", 3000, "Port to run the mock server on")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().BoolVarP(&mockWatchFlag, "watch", "w", false, "Reload the routes file when it changes")
	mockCmd.Flags().BoolVarP(&mockVerboseFlag, "verbose", "v", false, "Enable verbose logging")
}

func mockCommand(cmd *cobra.Command, args []string) error {
	// Parse delay
	var delay time.Duration
	if mockDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(mockDelayFlag)
		if err != nil {
			return exitWith(ExitUsageError, fmt.Errorf("invalid delay value %q: %w", mockDelayFlag, err))
		}
	}

	server := mock.NewServer(
		mock.WithPort(mockPortFlag),
		mock.WithDelay(delay),
		mock.WithVerbose(mockVerboseFlag),
	)

	var routesFile string
	if len(args) == 1 {
		routesFile = args[0]
		if err := server.LoadFile(routesFile); err != nil {
			return exitWith(ExitConfigError, err)
		}
		if len(server.GetRoutes()) == 0 {
			return exitWith(ExitConfigError, fmt.Errorf("no routes found in %s", routesFile))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d routes from %s\n", len(server.GetRoutes()), routesFile)
	} else {
		if mockWatchFlag {
			return exitWith(ExitUsageError, fmt.Errorf("--watch needs a routes file"))
		}
		server.LoadRoutes(mock.Fixtures())
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d built-in fixture routes\n", len(server.GetRoutes()))
	}

	// Setup graceful shutdown
	ctx, cancel := signalContext(func() {
		fmt.Println("\nShutting down mock server...")
	})
	defer cancel()

	if mockWatchFlag {
		go func() {
			if err := server.Watch(ctx, routesFile); err != nil {
				fmt.Fprintf(os.Stderr, "watch stopped: %v\n", err)
			}
		}()
	}

	return server.StartWithContext(ctx)
}
