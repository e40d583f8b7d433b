package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPredictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict",
		Short: "Generate 24h congestion forecasts for every traffic zone",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFromContext(cmd)
			if err != nil {
				return err
			}
			written, err := a.Engine.GenerateAll(cmd.Context())
			if err != nil {
				return err
			}
			a.Logger.Info("prediction run finished", zap.Int("predictions", written))
			return nil
		},
	}
}
