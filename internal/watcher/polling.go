package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher detects changes by periodically rescanning the tree.
// Fallback for filesystems where fsnotify does not work (some network
// mounts, containers without inotify).
type PollingWatcher struct {
	interval  time.Duration
	fileState map[string]fileSnapshot
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.Mutex
	stopped   bool
	rootPath  string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// NewPollingWatcher creates a polling watcher with the given interval.
func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval:  interval,
		fileState: make(map[string]fileSnapshot),
		events:    make(chan FileEvent, 100),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
}

// Start polls the given directory until the context is cancelled.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	p.rootPath = absPath

	// Baseline scan so the first tick only reports real changes.
	if err := p.snapshot(); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

// Stop stops the polling watcher. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// snapshot records the current tree state without emitting events.
func (p *PollingWatcher) snapshot() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.walk(func(relPath string, snap fileSnapshot) {
		p.fileState[relPath] = snap
	})
}

// detectChanges rescans, diffs against the previous snapshot, and
// emits one event per change.
func (p *PollingWatcher) detectChanges() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := make(map[string]fileSnapshot)
	err := p.walk(func(relPath string, snap fileSnapshot) {
		current[relPath] = snap

		prev, seen := p.fileState[relPath]
		switch {
		case !seen:
			p.emit(FileEvent{Path: relPath, Operation: OpCreate, IsDir: snap.isDir, Timestamp: time.Now()})
		case prev.modTime != snap.modTime || prev.size != snap.size:
			p.emit(FileEvent{Path: relPath, Operation: OpModify, IsDir: snap.isDir, Timestamp: time.Now()})
		}
	})
	if err != nil {
		return fmt.Errorf("walk for changes: %w", err)
	}

	for path, snap := range p.fileState {
		if _, exists := current[path]; !exists {
			p.emit(FileEvent{Path: path, Operation: OpDelete, IsDir: snap.isDir, Timestamp: time.Now()})
		}
	}

	p.fileState = current
	return nil
}

func (p *PollingWatcher) walk(visit func(relPath string, snap fileSnapshot)) error {
	return filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		visit(relPath, fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()})
		return nil
	})
}

// emit sends an event. Caller holds the lock.
func (p *PollingWatcher) emit(event FileEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- event:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()))
	}
}
