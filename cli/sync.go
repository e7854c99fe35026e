package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/petal-labs/groovesync/batch"
	"github.com/petal-labs/groovesync/config"
	grooveotel "github.com/petal-labs/groovesync/otel"
	"github.com/petal-labs/groovesync/reconcile"
)

const tracingShutdownTimeout = 5 * time.Second

// NewSyncCmd creates the "sync" subcommand.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push every groove file to the registry",
		Long: "Discover groove YAML files and update or create each one in the groove registry.\n" +
			"Exits 1 if any file fails to parse or sync.",
		Args: cobra.NoArgs,
		RunE: runSync,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	v := config.NewViper()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return exitError(exitConfig, "%v", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return exitError(exitConfig, "%v", err)
	}

	reporter := newReporter(cmd, cmd.OutOrStdout())

	shutdown, err := grooveotel.SetupTracing(cmd.Context(), grooveotel.TracingConfig{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "groovesync",
		ServiceVersion: cmd.Root().Version,
	})
	if err != nil {
		reporter.Warning("", fmt.Sprintf("Tracing disabled: %v", err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	reconciler, err := buildReconciler(cmd, cfg)
	if err != nil {
		return err
	}

	runner, err := batch.NewRunner(batch.Config{
		GroovesPath: cfg.GroovesPath,
		FilePattern: cfg.FilePattern,
		Reconciler:  reconciler,
		Reporter:    reporter,
	})
	if err != nil {
		return exitError(exitConfig, "%v", err)
	}

	result, err := runner.Run(cmd.Context())
	if err != nil {
		return exitError(exitConfig, "discovering groove files: %v", err)
	}
	if !result.OK() {
		return exitError(exitSyncFailed, "%d of %d groove files failed to sync", result.Failed(), result.Total())
	}
	return nil
}

func buildReconciler(cmd *cobra.Command, cfg config.Config) (*reconcile.Reconciler, error) {
	sender, err := reconcile.NewHTTPSender(reconcile.HTTPSenderConfig{
		Endpoint:  reconcile.Endpoint(cfg.APIURL, cfg.ContextID),
		UserAgent: userAgent(cmd),
	})
	if err != nil {
		return nil, exitError(exitConfig, "%v", err)
	}

	observer, err := grooveotel.NewSyncObserver(
		otelapi.GetMeterProvider().Meter("groovesync/reconcile"),
		otelapi.GetTracerProvider().Tracer("groovesync/reconcile"),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing sync observability: %w", err)
	}
	return reconcile.New(sender, reconcile.WithObserver(observer)), nil
}
