package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/repograph/internal/config"
	"github.com/Aman-CERP/repograph/internal/preflight"
	"github.com/Aman-CERP/repograph/internal/store"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment",
		Long: `Verify database connectivity, the repository path, the embedding
service, and the git binary. Exits nonzero when a required check
fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var db preflight.Pinger
			if cfg.DatabaseURL != "" {
				st, err := store.New(cmd.Context(), cfg.DatabaseURL)
				if err != nil {
					fmt.Fprintf(os.Stderr, "cannot open store: %v\n", err)
					return err
				}
				defer st.Close()
				db = st
			}

			embedder, err := newEmbedder(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = embedder.Close() }()

			checker := preflight.New(db, embedder, cfg.RepoPath)
			results := checker.RunAll(cmd.Context())

			fmt.Print(preflight.Format(results))

			if preflight.HasCriticalFailures(results) {
				return fmt.Errorf("environment check failed")
			}
			return nil
		},
	}
}
