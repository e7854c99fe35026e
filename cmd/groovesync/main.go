package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/groovesync/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "groovesync",
	Short: "Sync groove definitions to the groove registry",
	Long:  "groovesync: a CI tool that pushes groove YAML definitions to a groove registry context.",
	// SilenceUsage prevents printing usage on every error
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "", false, "Enable debug annotations")
	rootCmd.PersistentFlags().BoolP("quiet", "", false, "Suppress plain progress lines")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("groovesync version %s\n", version))

	rootCmd.AddCommand(cli.NewSyncCmd())
	rootCmd.AddCommand(cli.NewValidateCmd())
}
