package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/repograph/internal/config"
	"github.com/Aman-CERP/repograph/internal/embed"
	"github.com/Aman-CERP/repograph/internal/index"
	"github.com/Aman-CERP/repograph/internal/output"
	"github.com/Aman-CERP/repograph/internal/store"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Reindex the whole repository",
		Long: `Scan, chunk, embed, and persist the full working copy, then rebuild
the import, relationship, and call graphs. Existing data for the
repository and branch is replaced.

Emits a single __RESULT__:<json> line on stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexing(cmd.Context(), func(ctx context.Context, r *index.Runner) (*index.Result, error) {
				return r.Full(ctx)
			})
		},
	}
}

func newIncrementalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "incremental",
		Short: "Reindex only changed files",
		Long: `Reindex the files named by CHANGED_FILES, or derived from a git diff
against BASE_REF. Graphs are rebuilt over the whole tree so edges into
and out of unchanged files stay correct.

Emits a single __RESULT__:<json> line on stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexing(cmd.Context(), func(ctx context.Context, r *index.Runner) (*index.Result, error) {
				return r.Incremental(ctx)
			})
		},
	}
}

// runIndexing wires the store, embedder, and runner, executes one run,
// and emits the result line.
func runIndexing(ctx context.Context, run func(context.Context, *index.Runner) (*index.Result, error)) error {
	out := output.New(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateIndex(); err != nil {
		return err
	}

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	runner, err := index.NewRunner(cfg, db, embedder, slog.Default())
	if err != nil {
		return err
	}
	defer runner.Close()

	out.Statusf("→", "indexing %s (%s)", cfg.RepoURL, cfg.Branch)

	res, runErr := run(ctx, runner)
	if res != nil {
		if emitErr := res.Emit(os.Stdout); emitErr != nil {
			slog.Error("failed to emit result", "error", emitErr)
		}
	}
	if runErr != nil {
		out.Errorf("indexing failed: %v", runErr)
		return runErr
	}
	if !res.Succeeded() {
		out.Error("indexing completed with failures")
		return fmt.Errorf("indexing completed with failures")
	}

	out.Successf("indexed %d files, %d chunks in %.1fs",
		res.FilesProcessed, res.ChunksInserted, res.ElapsedSeconds)
	return nil
}

// newEmbedder builds the cached HTTP embedding client from config.
func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	ollama := embed.NewOllamaEmbedder(embed.OllamaConfig{
		Host:      cfg.EmbeddingURL,
		Model:     cfg.EmbeddingModel,
		BatchSize: cfg.EmbedBatch,
	})
	return embed.NewCachedEmbedder(ollama)
}
