package index

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	rgerrors "github.com/Aman-CERP/repograph/internal/errors"
)

// runLockTimeout bounds how long a run waits for a concurrent run on
// the same repo/branch to finish.
const runLockTimeout = 10 * time.Minute

// acquireRunLock serializes indexing runs per (repo_id, branch) with a
// file lock, since concurrent incremental runs on the same branch are
// undefined. The returned function releases the lock.
func acquireRunLock(repoID, branch string) (func(), error) {
	name := fmt.Sprintf("repograph-%s-%s.lock", repoID, sanitizeLockPart(branch))
	lock := flock.New(filepath.Join(os.TempDir(), name))

	deadline := time.Now().Add(runLockTimeout)
	for {
		ok, err := lock.TryLock()
		if err != nil {
			return nil, rgerrors.InternalError("cannot acquire run lock", err).
				WithDetail("lock", lock.Path())
		}
		if ok {
			return func() { _ = lock.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, rgerrors.InternalError("another indexing run holds the lock", nil).
				WithDetail("lock", lock.Path()).
				WithSuggestion("wait for the running index job or remove a stale lock file")
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// sanitizeLockPart keeps branch names filesystem-safe.
func sanitizeLockPart(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
