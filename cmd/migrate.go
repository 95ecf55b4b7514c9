package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/newsthreader/internal/database"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := database.EnsureSchema(cmd.Context(), a.db); err != nil {
				return err
			}
			a.log.Info("Schema is up to date")
			return nil
		},
	}
}
