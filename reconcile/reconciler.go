// Package reconcile makes the registry's copy of a groove match the local
// definition.
//
// The protocol has two states. UPDATE sends PUT to the context's tool
// resource; 200 means the groove existed and is now current, 404 moves to
// CREATE, anything else fails the groove. CREATE sends POST with the same
// body; 200 means created, anything else fails. A transport error in either
// state fails the groove. Nothing is retried.
package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/petal-labs/groovesync/groove"
)

// Step is one state of the update-or-create protocol.
type Step string

const (
	StepUpdate Step = "update"
	StepCreate Step = "create"
)

// Method returns the HTTP method issued in this step.
func (s Step) Method() string {
	if s == StepCreate {
		return http.MethodPost
	}
	return http.MethodPut
}

// Result is the terminal outcome of reconciling one groove.
type Result string

const (
	ResultUpdated Result = "updated"
	ResultCreated Result = "created"
	ResultFailed  Result = "failed"
)

// Outcome reports how one groove was reconciled. Err is set only when
// Result is ResultFailed.
type Outcome struct {
	Result   Result
	Requests int
	Err      *SyncError
}

// OK reports whether the groove now matches the registry.
func (o Outcome) OK() bool {
	return o.Result == ResultUpdated || o.Result == ResultCreated
}

// Message is the annotation text for the outcome.
func (o Outcome) Message() string {
	switch o.Result {
	case ResultUpdated:
		return "Updated existing groove"
	case ResultCreated:
		return "Created new groove"
	default:
		if o.Err == nil {
			return "Error syncing groove: unknown failure"
		}
		return o.Err.Summary()
	}
}

// transition is the whole protocol. Given the current step and the status
// code it answered with, it returns either the next step or a terminal
// result.
func transition(step Step, status int) (next Step, result Result, done bool) {
	switch step {
	case StepUpdate:
		switch status {
		case http.StatusOK:
			return "", ResultUpdated, true
		case http.StatusNotFound:
			return StepCreate, "", false
		default:
			return "", ResultFailed, true
		}
	default:
		if status == http.StatusOK {
			return "", ResultCreated, true
		}
		return "", ResultFailed, true
	}
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithObserver routes request and outcome observations to observer.
func WithObserver(observer Observer) Option {
	return func(r *Reconciler) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// Reconciler runs the update-or-create protocol through a Sender.
type Reconciler struct {
	sender   Sender
	observer Observer
	now      func() time.Time
}

// New creates a Reconciler that delivers requests through sender.
func New(sender Sender, opts ...Option) *Reconciler {
	r := &Reconciler{
		sender:   sender,
		observer: noopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile pushes req to the registry. file is used only for observation.
// It never returns an error: every failure is reported in the Outcome.
func (r *Reconciler) Reconcile(ctx context.Context, file string, req groove.Request) Outcome {
	start := r.now()
	outcome := r.run(ctx, req)
	observation := ReconcileObservation{
		ToolName:   req.ToolName,
		File:       file,
		Result:     outcome.Result,
		Requests:   outcome.Requests,
		DurationMS: r.now().Sub(start).Milliseconds(),
	}
	if outcome.Err != nil {
		observation.ErrorCode = outcome.Err.Code
	}
	r.observer.ObserveReconcile(observation)
	return outcome
}

func (r *Reconciler) run(ctx context.Context, req groove.Request) Outcome {
	// Encoded once so the create body is byte-identical to the update body.
	body, err := json.Marshal(req)
	if err != nil {
		return Outcome{
			Result: ResultFailed,
			Err:    &SyncError{Code: ErrorCodeEncodeFailure, Step: StepUpdate, Cause: err},
		}
	}

	step := StepUpdate
	for requests := 1; ; requests++ {
		reply, err := r.send(ctx, req.ToolName, step, body)
		if err != nil {
			return Outcome{Result: ResultFailed, Requests: requests, Err: newTransportFailure(step, err)}
		}

		next, result, done := transition(step, reply.StatusCode)
		if !done {
			step = next
			continue
		}
		if result == ResultFailed {
			return Outcome{Result: result, Requests: requests, Err: newRemoteRejected(step, reply)}
		}
		return Outcome{Result: result, Requests: requests}
	}
}

func (r *Reconciler) send(ctx context.Context, toolName string, step Step, body []byte) (Reply, error) {
	start := r.now()
	reply, err := r.sender.Send(ctx, step.Method(), body)

	observation := RequestObservation{
		ToolName:   toolName,
		Method:     step.Method(),
		StatusCode: reply.StatusCode,
		DurationMS: r.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		observation.ErrorCode = ErrorCodeTransportFailure
	} else if _, result, _ := transition(step, reply.StatusCode); result == ResultFailed {
		observation.ErrorCode = ErrorCodeRemoteRejected
	}
	r.observer.ObserveRequest(observation)
	return reply, err
}
