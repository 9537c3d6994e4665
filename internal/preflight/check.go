// Package preflight validates the environment before an indexing run
// or API start: database connectivity, repository path, embedding
// service, and the git binary for diff-based incremental runs.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical problem.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Pinger is the store surface the database check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker is the embedder surface the embedding check needs.
type ModelChecker interface {
	ModelName() string
	Available(ctx context.Context) bool
}

const checkTimeout = 5 * time.Second

// Checker runs preflight checks against the configured services.
type Checker struct {
	db       Pinger
	embedder ModelChecker
	repoPath string
}

// New creates a Checker. Nil db or embedder skips the matching check.
func New(db Pinger, embedder ModelChecker, repoPath string) *Checker {
	return &Checker{db: db, embedder: embedder, repoPath: repoPath}
}

// RunAll runs every applicable check.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	var results []CheckResult

	if c.db != nil {
		results = append(results, c.CheckDatabase(ctx))
	}
	if c.repoPath != "" {
		results = append(results, c.CheckRepoPath())
	}
	if c.embedder != nil {
		results = append(results, c.CheckEmbedder(ctx))
	}
	results = append(results, c.CheckGit())

	return results
}

// HasCriticalFailures returns true if any required check failed.
func HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus reduces the results to "ready",
// "ready_with_warnings", or "failed".
func SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// CheckDatabase verifies the Postgres connection.
func (c *Checker) CheckDatabase(ctx context.Context) CheckResult {
	result := CheckResult{Name: "database", Required: true}

	pingCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := c.db.Ping(pingCtx); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("unreachable: %v", err)
		return result
	}
	result.Status = StatusPass
	result.Message = "connected"
	return result
}

// CheckRepoPath verifies the working copy exists and is writable
// enough to scan.
func (c *Checker) CheckRepoPath() CheckResult {
	result := CheckResult{Name: "repo_path", Required: true}

	info, err := os.Stat(c.repoPath)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot stat %s: %v", c.repoPath, err)
		return result
	}
	if !info.IsDir() {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not a directory", c.repoPath)
		return result
	}
	if _, err := os.ReadDir(c.repoPath); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read %s: %v", c.repoPath, err)
		return result
	}
	result.Status = StatusPass
	result.Message = "readable"
	return result
}

// CheckEmbedder verifies the embedding service knows the configured
// model. Non-critical: indexing fails later with a clearer error, and
// serving works for keyword search without it.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{Name: "embedding_model", Required: false}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if !c.embedder.Available(checkCtx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("model %s not reachable", c.embedder.ModelName())
		return result
	}
	result.Status = StatusPass
	result.Message = c.embedder.ModelName()
	return result
}

// CheckGit verifies the git binary is on PATH. Only diff-based
// incremental runs need it.
func (c *Checker) CheckGit() CheckResult {
	result := CheckResult{Name: "git", Required: false}

	path, err := exec.LookPath("git")
	if err != nil {
		result.Status = StatusWarn
		result.Message = "git not found; BASE_REF incremental runs will fail"
		return result
	}
	result.Status = StatusPass
	result.Message = path
	return result
}

// Format renders results as the doctor command prints them.
func Format(results []CheckResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
	}
	fmt.Fprintf(&b, "\nStatus: %s\n", strings.ToUpper(SummaryStatus(results)))
	return b.String()
}
