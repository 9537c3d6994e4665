package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/repograph/internal/config"
	"github.com/Aman-CERP/repograph/internal/index"
	"github.com/Aman-CERP/repograph/internal/output"
	"github.com/Aman-CERP/repograph/internal/store"
	"github.com/Aman-CERP/repograph/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the working copy and reindex on change",
		Long: `Watch the repository for file changes and run an incremental reindex
for each debounced batch. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), full)
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Run a full reindex before watching")
	return cmd
}

func runWatch(parent context.Context, full bool) error {
	out := output.New(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateIndex(); err != nil {
		return err
	}
	repoPath, err := cfg.AbsRepoPath()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	if full {
		out.Status("→", "running initial full index")
		if res, err := runner.Full(ctx); err != nil {
			return err
		} else {
			out.Successf("indexed %d files, %d chunks", res.FilesProcessed, res.ChunksInserted)
		}
	}

	w, err := watcher.NewHybridWatcher(watcher.Options{
		IgnorePatterns: cfg.ExtraExcludes,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Start(ctx, repoPath)
	}()

	out.Statusf("👀", "watching %s (%s)", repoPath, w.WatcherType())

	for {
		select {
		case <-ctx.Done():
			<-watchErr
			return nil
		case err := <-watchErr:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case err, ok := <-w.Errors():
			if ok {
				slog.Warn("watcher error", "error", err)
			}
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			handleBatch(ctx, cfg, runner, out, batch)
		}
	}
}

// handleBatch turns one debounced batch into an incremental run.
func handleBatch(ctx context.Context, cfg *config.Config, runner *index.Runner, out *output.Writer, batch []watcher.FileEvent) {
	for _, ev := range batch {
		switch ev.Operation {
		case watcher.OpGitignoreChange:
			slog.Info("gitignore changed, invalidating matcher cache", "path", ev.Path)
			runner.InvalidateGitignoreCache()
		case watcher.OpConfigChange:
			out.Warning("repograph.yaml changed; restart watch to apply")
		}
	}

	changes := watcher.ChangeList(batch)
	if changes == "" {
		return
	}

	cfg.ChangedFiles = changes
	cfg.BaseRef = ""

	res, err := runner.Incremental(ctx)
	if err != nil {
		slog.Error("incremental reindex failed", "error", err, "changes", changes)
		out.Errorf("reindex failed: %v", err)
		return
	}
	out.Statusf("↻", "reindexed %d files (+%d ~%d -%d) in %.1fs",
		res.FilesProcessed, res.FilesAdded, res.FilesModified, res.FilesDeleted,
		res.ElapsedSeconds)
}
