// Package watcher turns file system activity into change lists for the
// incremental indexer.
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for event-based watching
//   - Fallback: polling for environments where fsnotify fails (network mounts, Docker volumes)
//
// Events are debounced to coalesce rapid changes from IDEs and git
// operations, filtered against .gitignore patterns, and rendered with
// ChangeList into the "A:p,M:p,D:p" format the indexer consumes.
//
// Usage:
//
//	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	go w.Start(ctx, repoPath)
//
//	for batch := range w.Events() {
//	    changes := watcher.ChangeList(batch)
//	    // feed changes to the incremental indexer
//	}
package watcher
