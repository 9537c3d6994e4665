package index

import (
	"context"
	"os/exec"
	"strings"

	rgerrors "github.com/Aman-CERP/repograph/internal/errors"
)

// ChangeStatus classifies one entry of a change list.
type ChangeStatus byte

const (
	StatusAdded    ChangeStatus = 'A'
	StatusModified ChangeStatus = 'M'
	StatusDeleted  ChangeStatus = 'D'
)

// Change is one file-level change. Renames arrive as a delete of the
// old path plus an add of the new one.
type Change struct {
	Status ChangeStatus
	Path   string
}

// ChangeSet groups a change list by status, deduplicated. A path both
// deleted and re-added collapses to modified.
type ChangeSet struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// ReindexPaths returns added plus modified paths.
func (cs *ChangeSet) ReindexPaths() []string {
	out := make([]string, 0, len(cs.Added)+len(cs.Modified))
	out = append(out, cs.Added...)
	return append(out, cs.Modified...)
}

// PurgePaths returns modified plus deleted paths, whose chunks must be
// removed before reindexing.
func (cs *ChangeSet) PurgePaths() []string {
	out := make([]string, 0, len(cs.Modified)+len(cs.Deleted))
	out = append(out, cs.Modified...)
	return append(out, cs.Deleted...)
}

// Empty reports whether the set carries no changes.
func (cs *ChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Modified) == 0 && len(cs.Deleted) == 0
}

// ParseChangeList parses the CHANGED_FILES format: comma-separated
// entries of "STATUS:path", "R:old->new" for renames, or a bare path
// (treated as modified).
func ParseChangeList(raw string) (*ChangeSet, error) {
	var changes []Change
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		status, path, hasStatus := strings.Cut(entry, ":")
		if !hasStatus {
			changes = append(changes, Change{Status: StatusModified, Path: entry})
			continue
		}

		path = strings.TrimSpace(path)
		switch strings.ToUpper(strings.TrimSpace(status)) {
		case "A":
			changes = append(changes, Change{Status: StatusAdded, Path: path})
		case "M":
			changes = append(changes, Change{Status: StatusModified, Path: path})
		case "D":
			changes = append(changes, Change{Status: StatusDeleted, Path: path})
		case "R":
			oldPath, newPath, ok := strings.Cut(path, "->")
			if !ok {
				return nil, rgerrors.InputError("rename entry must be R:old->new").
					WithDetail("entry", entry)
			}
			changes = append(changes,
				Change{Status: StatusDeleted, Path: strings.TrimSpace(oldPath)},
				Change{Status: StatusAdded, Path: strings.TrimSpace(newPath)})
		default:
			return nil, rgerrors.InputError("unknown change status").
				WithDetail("entry", entry)
		}
	}
	return buildChangeSet(changes), nil
}

// GitDiff obtains a change list from `git diff --name-status` against
// a base ref.
func GitDiff(ctx context.Context, repoPath, baseRef string) (*ChangeSet, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "diff", "--name-status", "-M", baseRef)
	out, err := cmd.Output()
	if err != nil {
		detail := err.Error()
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, rgerrors.New(rgerrors.ErrCodeDiffFailed, "git diff failed", err).
			WithDetail("base_ref", baseRef).
			WithDetail("stderr", detail)
	}

	var changes []Change
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		status := fields[0]
		switch {
		case status == "A" && len(fields) >= 2:
			changes = append(changes, Change{Status: StatusAdded, Path: fields[1]})
		case status == "M" && len(fields) >= 2:
			changes = append(changes, Change{Status: StatusModified, Path: fields[1]})
		case status == "D" && len(fields) >= 2:
			changes = append(changes, Change{Status: StatusDeleted, Path: fields[1]})
		case strings.HasPrefix(status, "R") && len(fields) >= 3:
			changes = append(changes,
				Change{Status: StatusDeleted, Path: fields[1]},
				Change{Status: StatusAdded, Path: fields[2]})
		case strings.HasPrefix(status, "C") && len(fields) >= 3:
			changes = append(changes, Change{Status: StatusAdded, Path: fields[2]})
		}
	}
	return buildChangeSet(changes), nil
}

// buildChangeSet dedupes and reconciles overlapping statuses.
func buildChangeSet(changes []Change) *ChangeSet {
	status := make(map[string]ChangeStatus)
	var order []string
	for _, c := range changes {
		prev, seen := status[c.Path]
		if !seen {
			status[c.Path] = c.Status
			order = append(order, c.Path)
			continue
		}
		// delete + add of the same path is a modification
		if (prev == StatusDeleted && c.Status == StatusAdded) ||
			(prev == StatusAdded && c.Status == StatusDeleted) {
			status[c.Path] = StatusModified
		} else if c.Status == StatusModified {
			status[c.Path] = StatusModified
		}
	}

	cs := &ChangeSet{}
	for _, path := range order {
		switch status[path] {
		case StatusAdded:
			cs.Added = append(cs.Added, path)
		case StatusModified:
			cs.Modified = append(cs.Modified, path)
		case StatusDeleted:
			cs.Deleted = append(cs.Deleted, path)
		}
	}
	return cs
}
