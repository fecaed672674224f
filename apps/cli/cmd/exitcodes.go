package cmd

import (
	"strconv"

	"github.com/abdul-hamid-achik/hitfetch/packages/http"
)

// Exit codes for hitfetch CLI
const (
	// ExitSuccess indicates the call succeeded
	ExitSuccess = 0

	// ExitResponseError indicates a response was received but rejected:
	// bad status, undecodable body, invalid JSON or too many redirects
	ExitResponseError = 1

	// ExitCheckFailure indicates a schema or threshold check failed
	ExitCheckFailure = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitCanceled indicates the call was interrupted
	ExitCanceled = 130

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries a process exit code out of a command. A nil err means
// the failure was already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status " + strconv.Itoa(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCode maps a call error to the process exit code
func exitCode(err error) int {
	switch http.Kind(err) {
	case "":
		return ExitSuccess
	case "argument":
		return ExitUsageError
	case "transport":
		return ExitNetworkError
	case "canceled":
		return ExitCanceled
	default:
		return ExitResponseError
	}
}
