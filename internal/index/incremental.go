package index

import (
	"context"
	"path"

	"github.com/Aman-CERP/repograph/internal/scanner"
)

// Incremental indexes only the files named by the diff source. The
// change list comes from CHANGED_FILES when set, otherwise from a git
// diff against BASE_REF. The import graph is rebuilt repo-wide since
// resolution depends on the full file set.
func (r *Runner) Incremental(ctx context.Context) (*Result, error) {
	res := newResult("incremental", r.repoID, r.cfg.Branch)
	defer res.finish()

	if err := r.requireDiffSource(); err != nil {
		return res, err
	}

	var (
		changes *ChangeSet
		err     error
	)
	if r.cfg.ChangedFiles != "" {
		changes, err = ParseChangeList(r.cfg.ChangedFiles)
	} else {
		changes, err = GitDiff(ctx, r.cfg.RepoPath, r.cfg.BaseRef)
	}
	if err != nil {
		return res, err
	}
	changes = r.filterIndexable(changes)

	res.FilesAdded = len(changes.Added)
	res.FilesModified = len(changes.Modified)
	res.FilesDeleted = len(changes.Deleted)

	release, err := acquireRunLock(r.repoID, r.cfg.Branch)
	if err != nil {
		return res, err
	}
	defer release()

	if err := r.db.Migrate(ctx); err != nil {
		return res, err
	}

	if changes.Empty() {
		r.log.Info("incremental run found no indexable changes")
		return res, nil
	}

	if purge := changes.PurgePaths(); len(purge) > 0 {
		deleted, err := r.db.DeleteFiles(ctx, r.repoID, r.cfg.Branch, purge)
		if err != nil {
			return res, err
		}
		res.ChunksDeleted = int(deleted)
	}

	// The scan covers the whole tree so graph building sees every
	// file; only changed files go through chunking and embedding.
	reindex := make(map[string]bool)
	for _, p := range changes.ReindexPaths() {
		reindex[p] = true
	}
	payloads, err := r.processRepo(ctx, reindex, res)
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

// filterIndexable drops change entries the scanner would never index.
func (r *Runner) filterIndexable(cs *ChangeSet) *ChangeSet {
	keep := func(paths []string) []string {
		var out []string
		for _, p := range paths {
			p = path.Clean(p)
			if scanner.DetectLanguage(p) != "" || r.configs.Match(p) {
				out = append(out, p)
			}
		}
		return out
	}
	return &ChangeSet{
		Added:    keep(cs.Added),
		Modified: keep(cs.Modified),
		Deleted:  keep(cs.Deleted),
	}
}
