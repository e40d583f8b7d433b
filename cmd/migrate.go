package cmd

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema (idempotent)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFromContext(cmd)
			if err != nil {
				return err
			}
			if err := a.Store.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			a.Logger.Info("schema applied")
			return nil
		},
	}
}
