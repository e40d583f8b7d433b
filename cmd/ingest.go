package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion cycle: fetch, de-duplicate, store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFromContext(cmd)
			if err != nil {
				return err
			}
			written, err := a.Writer.Run(cmd.Context())
			if err != nil {
				return err
			}
			a.Logger.Info("ingestion finished", zap.Int("events_written", written))
			return nil
		},
	}
}
