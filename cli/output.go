package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/petal-labs/groovesync/annotate"
)

// newReporter builds the CI reporter for cmd, honoring the root --verbose
// and --quiet flags.
func newReporter(cmd *cobra.Command, w io.Writer) *annotate.Reporter {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")

	var level slog.Level
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = annotate.LevelNotice
	default:
		level = slog.LevelInfo
	}
	return annotate.NewReporter(w, &annotate.HandlerOptions{Level: level})
}

// userAgent identifies this build to the registry.
func userAgent(cmd *cobra.Command) string {
	version := cmd.Root().Version
	if version == "" {
		version = "dev"
	}
	return "groovesync/" + version
}
