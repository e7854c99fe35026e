package reconcile

import (
	"fmt"
	"strings"
)

const (
	// ErrorCodeRemoteRejected is returned when the registry answers with an
	// unexpected status code.
	ErrorCodeRemoteRejected = "REMOTE_REJECTED"
	// ErrorCodeTransportFailure is returned when the HTTP exchange itself fails.
	ErrorCodeTransportFailure = "TRANSPORT_FAILURE"
	// ErrorCodeEncodeFailure is returned when the request body cannot be encoded.
	ErrorCodeEncodeFailure = "ENCODE_FAILURE"
)

// SyncError is the structured failure of one reconciliation. It carries
// enough context to render the CI annotation for the file.
type SyncError struct {
	Code       string `json:"code"`
	Step       Step   `json:"step,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
	Cause      error  `json:"-"`
}

func (e *SyncError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Code {
	case ErrorCodeRemoteRejected:
		return fmt.Sprintf("%s: %s returned status %d: %s", e.Code, e.Step.Method(), e.StatusCode, e.Body)
	default:
		if e.Cause == nil {
			return e.Code
		}
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *SyncError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Summary is the one-line description used in CI annotations.
func (e *SyncError) Summary() string {
	if e == nil {
		return ""
	}
	if e.Code == ErrorCodeRemoteRejected {
		switch e.Step {
		case StepCreate:
			return "Error creating groove: " + e.Body
		default:
			return "Error updating groove: " + e.Body
		}
	}
	msg := e.Code
	if e.Cause != nil {
		msg = e.Cause.Error()
	}
	return "Error syncing groove: " + msg
}

func newRemoteRejected(step Step, reply Reply) *SyncError {
	return &SyncError{
		Code:       ErrorCodeRemoteRejected,
		Step:       step,
		StatusCode: reply.StatusCode,
		Body:       strings.TrimSpace(reply.Body),
	}
}

func newTransportFailure(step Step, cause error) *SyncError {
	return &SyncError{
		Code:  ErrorCodeTransportFailure,
		Step:  step,
		Cause: cause,
	}
}
