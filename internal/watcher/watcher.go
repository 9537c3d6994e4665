package watcher

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Operation classifies a file system change.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
	// OpRename indicates a file or directory was renamed.
	OpRename
	// OpGitignoreChange indicates a .gitignore file was modified. The
	// watch loop invalidates the scanner's matcher cache when it sees
	// this.
	OpGitignoreChange
	// OpConfigChange indicates the repograph.yaml overlay was modified.
	// Config is read once at startup, so the loop only reports it.
	OpConfigChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpGitignoreChange:
		return "GITIGNORE_CHANGE"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed file system change, path relative to the
// watched root.
type FileEvent struct {
	Path string

	// OldPath is the previous path for rename events.
	OldPath string

	Operation Operation

	IsDir bool

	Timestamp time.Time
}

// Watcher is the interface both the fsnotify and polling
// implementations satisfy.
type Watcher interface {
	// Start begins watching the given directory recursively and blocks
	// until Stop is called or the context is cancelled.
	Start(ctx context.Context, path string) error

	// Stop stops the watcher and releases resources. Safe to call
	// multiple times.
	Stop() error
}

// Options configures watcher behavior.
type Options struct {
	// DebounceWindow is the time to wait before emitting coalesced
	// events. Default: 200ms.
	DebounceWindow time.Duration

	// PollInterval is the scan interval for polling mode. Default: 5s.
	PollInterval time.Duration

	// EventBufferSize is the batch channel buffer. Default: 1000.
	EventBufferSize int

	// IgnorePatterns are additional gitignore-syntax patterns to
	// ignore beyond the repository's own .gitignore files.
	IgnorePatterns []string
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}

// ChangeList renders a debounced batch as the "A:p,M:p,D:p" change
// list the incremental indexer consumes. Directory and housekeeping
// events are skipped; renames become a delete of the old path and an
// add of the new one. Paths are sorted for stable output.
func ChangeList(events []FileEvent) string {
	var entries []string
	for _, ev := range events {
		if ev.IsDir {
			continue
		}
		switch ev.Operation {
		case OpCreate:
			entries = append(entries, "A:"+ev.Path)
		case OpModify:
			entries = append(entries, "M:"+ev.Path)
		case OpDelete:
			entries = append(entries, "D:"+ev.Path)
		case OpRename:
			if ev.OldPath != "" {
				entries = append(entries, "D:"+ev.OldPath)
			}
			entries = append(entries, "A:"+ev.Path)
		}
	}
	sort.Strings(entries)
	return strings.Join(entries, ",")
}
