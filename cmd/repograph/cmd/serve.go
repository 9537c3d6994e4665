package cmd

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/repograph/internal/api"
	"github.com/Aman-CERP/repograph/internal/config"
	"github.com/Aman-CERP/repograph/internal/query"
	"github.com/Aman-CERP/repograph/internal/search"
	"github.com/Aman-CERP/repograph/internal/store"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the retrieval API over HTTP",
		Long: `Start the HTTP API: hybrid search, definitions and usages, import
trees, circular dependencies, hub files, and call graphs. Runs until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	srv := api.NewServer(db, search.New(db, embedder), query.New(db), embedder, slog.Default())
	return srv.ListenAndServe(ctx, addr)
}
