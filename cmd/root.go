// Package cmd wires the CLI commands around the application container.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trafikalert/internal/app"
	"trafikalert/internal/config"
)

var cfgFile string

type appKeyType struct{}

var appKey appKeyType

// appFactory builds the application container. A variable so tests can
// substitute a stub.
var appFactory = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.New(ctx, cfg)
}

func appFromContext(cmd *cobra.Command) (*app.App, error) {
	a, ok := cmd.Context().Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return a, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trafikalert",
		Short: "Istanbul traffic event ingestion and congestion prediction",
		Long: `trafikalert collects event announcements from Istanbul venue and
municipality sources, stores them with PostGIS geometry and produces
rule-based congestion forecasts per traffic zone.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			a, err := appFactory(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app.App); ok {
				a.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newPredictCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}

// Execute is the CLI entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
