// Package index orchestrates full and incremental indexing runs:
// scan or diff, chunk, hash, cache lookup, batch embed, and the
// transactional writes of chunks and graph edges.
package index

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/repograph/internal/chunk"
	"github.com/Aman-CERP/repograph/internal/config"
	"github.com/Aman-CERP/repograph/internal/embed"
	rgerrors "github.com/Aman-CERP/repograph/internal/errors"
	"github.com/Aman-CERP/repograph/internal/scanner"
	"github.com/Aman-CERP/repograph/internal/store"
)

// Store is the persistence surface an indexing run writes through.
type Store interface {
	Migrate(ctx context.Context) error
	DeleteRepoBranch(ctx context.Context, repoID, branch string) (int64, error)
	DeleteFiles(ctx context.Context, repoID, branch string, paths []string) (int64, error)
	ReplaceFileChunks(ctx context.Context, file store.FileRecord, chunks []store.ChunkRecord) error
	ReplaceFileImports(ctx context.Context, repoID, branch string, edges []store.FileImport) error
	DeleteRelationships(ctx context.Context, repoID, branch string, types ...string) error
	InsertRelationships(ctx context.Context, edges []store.Relationship) (int, error)
	ListChunks(ctx context.Context, repoID, branch string) ([]store.ChunkRecord, error)
	CacheLookup(ctx context.Context, hashes []string, model string) (map[string][]float32, error)
	CacheStore(ctx context.Context, entries []store.CacheEntry, model string) error
}

// Runner executes indexing runs for one repository and branch.
type Runner struct {
	cfg      *config.Config
	db       Store
	embedder embed.Embedder
	scan     *scanner.Scanner
	configs  *chunk.ConfigChunker
	log      *slog.Logger
	repoID   string

	// cacheWrites tracks asynchronous cache population so Close can
	// drain it.
	cacheWrites sync.WaitGroup
}

// NewRunner wires an indexing runner. The configuration must already
// be validated for indexing.
func NewRunner(cfg *config.Config, db Store, embedder embed.Embedder, log *slog.Logger) (*Runner, error) {
	sc, err := scanner.New()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:      cfg,
		db:       db,
		embedder: embedder,
		scan:     sc,
		configs:  chunk.NewConfigChunker(),
		log:      log,
		repoID:   store.RepoIDFor(cfg.RepoURL),
	}, nil
}

// RepoID returns the derived repository identifier.
func (r *Runner) RepoID() string { return r.repoID }

// Close drains pending background cache writes.
func (r *Runner) Close() {
	r.cacheWrites.Wait()
}

// InvalidateGitignoreCache drops the scanner's cached ignore matchers.
// The watch loop calls this when a .gitignore file changes.
func (r *Runner) InvalidateGitignoreCache() {
	r.scan.InvalidateGitignoreCache()
}

// Full reindexes the whole working copy from scratch.
func (r *Runner) Full(ctx context.Context) (*Result, error) {
	res := newResult("full", r.repoID, r.cfg.Branch)
	defer res.finish()

	release, err := acquireRunLock(r.repoID, r.cfg.Branch)
	if err != nil {
		return res, err
	}
	defer release()

	if err := r.db.Migrate(ctx); err != nil {
		return res, err
	}

	deleted, err := r.db.DeleteRepoBranch(ctx, r.repoID, r.cfg.Branch)
	if err != nil {
		return res, err
	}
	res.ChunksDeleted = int(deleted)

	payloads, err := r.processRepo(ctx, nil, res)
	if err != nil {
		return res, err
	}

	vectors := r.embedPhase(ctx, payloads, res)
	r.writeChunks(ctx, payloads, vectors, res)

	if err := r.buildGraphs(ctx, payloads, res); err != nil {
		return res, err
	}
	return res, nil
}

// processRepo scans the working copy and runs the per-file pipeline on
// a worker pool. With a non-nil filter only matching paths are fully
// chunked; the rest contribute facts and call sites only, which the
// graph builders need repo-wide.
func (r *Runner) processRepo(ctx context.Context, filter map[string]bool, res *Result) ([]*filePayload, error) {
	results, err := r.scan.Scan(ctx, &scanner.ScanOptions{
		RootDir:          r.cfg.RepoPath,
		ExtraExcludes:    r.cfg.ExtraExcludes,
		RespectGitignore: true,
		MaxFileSize:      r.cfg.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		payloads []*filePayload
	)

	g, gctx := errgroup.WithContext(ctx)
	files := make(chan scanner.FileInfo, 64)

	g.Go(func() error {
		defer close(files)
		for sr := range results {
			if sr.Error != nil {
				r.log.Warn("scan error", "error", sr.Error)
				mu.Lock()
				res.FilesSkipped++
				mu.Unlock()
				continue
			}
			select {
			case files <- *sr.File:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			proc := newFileProcessor(r.cfg, r.configs)
			defer proc.Close()

			for fi := range files {
				factsOnly := filter != nil && !filter[fi.Path]
				payload, err := proc.Process(gctx, fi, factsOnly)
				if err != nil {
					r.log.Warn("file skipped", "path", fi.Path, "error", err)
					mu.Lock()
					res.FilesSkipped++
					mu.Unlock()
					continue
				}
				mu.Lock()
				payloads = append(payloads, payload)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return payloads, nil
}

// requireDiffSource guards incremental entry points.
func (r *Runner) requireDiffSource() error {
	if r.cfg.ChangedFiles == "" && r.cfg.BaseRef == "" {
		return rgerrors.New(rgerrors.ErrCodeConfigMissing,
			"incremental indexing needs CHANGED_FILES or BASE_REF", nil).
			WithSuggestion("set BASE_REF=origin/main or pass an explicit change list")
	}
	return nil
}
