package cli

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	exitSuccess    = 0
	exitSyncFailed = 1
	exitConfig     = 2
)

// ExitError carries the process exit code out of a command's RunE.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps the error returned by a command to a process exit code.
// Errors that are not an *ExitError, such as cobra usage errors, are
// configuration problems.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return exitConfig
}
