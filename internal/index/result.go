package index

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Result aggregates the counters of one indexing run. It is emitted as
// a single machine-readable line so CI wrappers can parse the outcome
// without scraping logs.
type Result struct {
	Mode              string  `json:"mode"`
	RepoID            string  `json:"repo_id"`
	Branch            string  `json:"branch"`
	FilesProcessed    int     `json:"files_processed"`
	FilesSkipped      int     `json:"files_skipped"`
	ChunksInserted    int     `json:"chunks_inserted"`
	ChunksDeleted     int     `json:"chunks_deleted"`
	CacheHits         int     `json:"cache_hits"`
	CacheMisses       int     `json:"cache_misses"`
	EmbedFailures     int     `json:"embed_failures"`
	ImportEdges       int     `json:"import_edges"`
	RelationshipEdges int     `json:"relationship_edges"`
	CallEdges         int     `json:"call_edges"`
	Cycles            int     `json:"cycles"`
	Hubs              int     `json:"hubs"`
	ElapsedSeconds    float64 `json:"elapsed_seconds"`

	// Incremental-only counters.
	FilesAdded    int `json:"files_added,omitempty"`
	FilesModified int `json:"files_modified,omitempty"`
	FilesDeleted  int `json:"files_deleted,omitempty"`

	started   time.Time
	persisted bool
	failed    bool
}

func newResult(mode, repoID, branch string) *Result {
	return &Result{Mode: mode, RepoID: repoID, Branch: branch, started: time.Now()}
}

func (r *Result) finish() {
	r.ElapsedSeconds = time.Since(r.started).Seconds()
}

// Succeeded reports whether the run wrote everything it attempted.
// Partial runs that persisted some data still exit nonzero.
func (r *Result) Succeeded() bool {
	return !r.failed
}

// resultPrefix marks the machine-readable outcome line on stdout.
const resultPrefix = "__RESULT__:"

// Emit writes the result line.
func (r *Result) Emit(w io.Writer) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s%s\n", resultPrefix, data)
	return err
}
