package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/repograph/internal/config"
	"github.com/Aman-CERP/repograph/internal/store"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long: `Print chunk, file, and edge counts as JSON. With REPO_URL set the
output covers that repository and branch; otherwise it lists every
indexed repository.`,
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

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			if cfg.RepoURL != "" {
				stats, err := db.Stats(cmd.Context(), store.RepoIDFor(cfg.RepoURL), cfg.Branch)
				if err != nil {
					return err
				}
				return enc.Encode(stats)
			}

			repos, err := db.Repos(cmd.Context())
			if err != nil {
				return err
			}
			return enc.Encode(map[string]any{"repos": repos})
		},
	}
}
