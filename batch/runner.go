// Package batch runs a sync over every discovered groove file, one file at
// a time, and aggregates the per-file outcomes.
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/petal-labs/groovesync/annotate"
	"github.com/petal-labs/groovesync/groove"
	"github.com/petal-labs/groovesync/loader"
	"github.com/petal-labs/groovesync/reconcile"
)

// Reconciler pushes one groove request to the registry.
type Reconciler interface {
	Reconcile(ctx context.Context, file string, req groove.Request) reconcile.Outcome
}

// Config configures a Runner.
type Config struct {
	GroovesPath string
	FilePattern string
	Reconciler  Reconciler
	Reporter    *annotate.Reporter
}

// Runner processes groove files sequentially.
type Runner struct {
	root       string
	pattern    string
	reconciler Reconciler
	reporter   *annotate.Reporter
}

// NewRunner validates cfg and returns a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Reconciler == nil {
		return nil, errors.New("batch: reconciler is required")
	}
	if cfg.Reporter == nil {
		return nil, errors.New("batch: reporter is required")
	}
	return &Runner{
		root:       cfg.GroovesPath,
		pattern:    cfg.FilePattern,
		reconciler: cfg.Reconciler,
		reporter:   cfg.Reporter,
	}, nil
}

// FileResult is the outcome for one discovered file. ParseErr is set when
// the file never reached the reconciler.
type FileResult struct {
	Path     string
	ToolName string
	ParseErr error
	Outcome  reconcile.Outcome
}

// OK reports whether the file was parsed and reconciled.
func (f FileResult) OK() bool {
	return f.ParseErr == nil && f.Outcome.OK()
}

// Result aggregates a run.
type Result struct {
	Files []FileResult
}

// OK reports whether every discovered file succeeded. An empty run is OK.
func (r Result) OK() bool {
	return r.Failed() == 0
}

// Total is the number of files discovered.
func (r Result) Total() int {
	return len(r.Files)
}

// Failed is the number of files that failed to parse or reconcile.
func (r Result) Failed() int {
	n := 0
	for _, f := range r.Files {
		if !f.OK() {
			n++
		}
	}
	return n
}

// Succeeded is the number of files that are now in the registry.
func (r Result) Succeeded() int {
	return r.Total() - r.Failed()
}

// Run discovers groove files and reconciles each in turn. One file's failure
// never stops the others. The returned error is reserved for discovery
// failures; per-file failures are only visible in the Result.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	files, err := loader.Discover(r.root, r.pattern)
	if err != nil {
		return Result{}, err
	}
	if len(files) == 0 {
		r.reporter.Warning("", "No groove YAML files found")
		return Result{}, nil
	}

	runID := uuid.NewString()
	r.reporter.Debug("starting groove sync", "run_id", runID, "root", r.root, "pattern", r.pattern)
	r.reporter.Info(fmt.Sprintf("Found %d groove files to process", len(files)))

	result := Result{Files: make([]FileResult, 0, len(files))}
	for _, path := range files {
		result.Files = append(result.Files, r.processFile(ctx, runID, path))
	}

	r.reporter.Info(fmt.Sprintf("Synced %d of %d grooves (%d failed)", result.Succeeded(), result.Total(), result.Failed()))
	return result, nil
}

func (r *Runner) processFile(ctx context.Context, runID, path string) FileResult {
	r.reporter.StartGroup("Processing " + path)
	defer r.reporter.EndGroup()

	def, err := loader.Load(path)
	if err != nil {
		r.reporter.Error(path, loader.Summary(err))
		return FileResult{Path: path, ParseErr: err}
	}

	req := groove.BuildRequest(def, path)
	r.reporter.Debug("reconciling groove", "run_id", runID, "tool_name", req.ToolName)

	outcome := r.reconciler.Reconcile(ctx, path, req)
	if outcome.OK() {
		r.reporter.Notice(path, outcome.Message())
	} else {
		r.reporter.Error(path, outcome.Message())
	}
	return FileResult{Path: path, ToolName: req.ToolName, Outcome: outcome}
}
