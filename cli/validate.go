package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/petal-labs/groovesync/annotate"
	"github.com/petal-labs/groovesync/config"
	"github.com/petal-labs/groovesync/groove"
	"github.com/petal-labs/groovesync/loader"
)

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse groove files and show the requests sync would send",
		Long: "Discover and parse groove files without contacting the registry.\n" +
			"Exits 1 if any file cannot be parsed.",
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
	config.RegisterDiscoveryFlags(cmd.Flags())
	cmd.Flags().String("format", "text", "Output format: text | json")
	return cmd
}

// plannedRequest is one entry of the json output.
type plannedRequest struct {
	File    string          `json:"file"`
	Request *groove.Request `json:"request,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func runValidate(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return exitError(exitConfig, "unknown format %q (use text or json)", format)
	}

	v := config.NewViper()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return exitError(exitConfig, "%v", err)
	}
	cfg, err := config.LoadLocal(v)
	if err != nil {
		return exitError(exitConfig, "%v", err)
	}

	// Annotations move to stderr so json output stays machine-readable.
	annotations := cmd.OutOrStdout()
	if format == "json" {
		annotations = cmd.ErrOrStderr()
	}
	reporter := newReporter(cmd, annotations)

	files, err := loader.Discover(cfg.GroovesPath, cfg.FilePattern)
	if err != nil {
		return exitError(exitConfig, "discovering groove files: %v", err)
	}
	if len(files) == 0 {
		reporter.Warning("", "No groove YAML files found")
		if format == "json" {
			return printPlanJSON(cmd.OutOrStdout(), nil)
		}
		return nil
	}

	plan := make([]plannedRequest, 0, len(files))
	failed := 0
	for _, path := range files {
		entry := planFile(reporter, path)
		if entry.Error != "" {
			failed++
		}
		plan = append(plan, entry)
	}

	if format == "json" {
		if err := printPlanJSON(cmd.OutOrStdout(), plan); err != nil {
			return exitError(exitSyncFailed, "encoding requests: %v", err)
		}
	}

	if failed > 0 {
		return exitError(exitSyncFailed, "%d of %d groove files are invalid", failed, len(files))
	}
	reporter.Info(fmt.Sprintf("All %d groove files are valid", len(files)))
	return nil
}

func planFile(reporter *annotate.Reporter, path string) plannedRequest {
	def, err := loader.Load(path)
	if err != nil {
		msg := loader.Summary(err)
		reporter.Error(path, msg)
		return plannedRequest{File: path, Error: msg}
	}

	req := groove.BuildRequest(def, path)
	reporter.Notice(path, fmt.Sprintf("Valid groove %q (%d beats)", req.ToolName, len(req.Beats)))
	return plannedRequest{File: path, Request: &req}
}

func printPlanJSON(w io.Writer, plan []plannedRequest) error {
	// Output an empty array rather than null when there is nothing to show.
	if plan == nil {
		plan = []plannedRequest{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}
