package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/repograph/internal/config"
	"github.com/Aman-CERP/repograph/internal/output"
	"github.com/Aman-CERP/repograph/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  `Create or update the repograph schema, including the pgvector extension.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := store.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}

			output.New(os.Stderr).Success("schema is up to date")
			return nil
		},
	}
}
