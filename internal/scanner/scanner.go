package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/repograph/internal/chunk"
	"github.com/Aman-CERP/repograph/internal/gitignore"
)

// gitignoreCacheSize bounds the matcher cache so long-running watch
// processes do not grow without limit.
const gitignoreCacheSize = 1000

// Scanner discovers indexable files in a repository directory.
type Scanner struct {
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
	cacheMu        sync.RWMutex
	configMatcher  *chunk.ConfigChunker
}

// New creates a Scanner.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Scanner{
		gitignoreCache: cache,
		configMatcher:  chunk.NewConfigChunker(),
	}, nil
}

// Scan streams indexable files under the root directory. The channel
// is closed when scanning completes.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	results := make(chan ScanResult, 64)
	go func() {
		defer close(results)
		s.walk(ctx, absRoot, opts, maxFileSize, results)
	}()
	return results, nil
}

// walk performs the directory traversal.
func (s *Scanner) walk(ctx context.Context, absRoot string, opts *ScanOptions, maxFileSize int64, results chan<- ScanResult) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // Skip entries we cannot access
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if s.shouldExcludeDir(relPath, d.Name(), opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
			return nil
		}

		if s.shouldExcludeFile(relPath, absRoot, opts) {
			return nil
		}

		isConfig := s.configMatcher.Match(relPath)
		language := DetectLanguage(relPath)
		if language == "" && !isConfig {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxFileSize {
			return nil
		}
		if s.isBinaryFile(path) {
			return nil
		}

		file := &FileInfo{
			Path:     relPath,
			AbsPath:  path,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Language: language,
			IsConfig: isConfig,
		}

		select {
		case results <- ScanResult{File: file}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled {
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// shouldExcludeDir checks a directory against the built-in and custom
// exclusion sets.
func (s *Scanner) shouldExcludeDir(relPath, name string, opts *ScanOptions) bool {
	if excludedDirNames[name] {
		return true
	}
	for _, pattern := range opts.ExtraExcludes {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	return false
}

// shouldExcludeFile checks a file against lock-file, artifact,
// sensitive, and custom exclusion patterns, then gitignore.
func (s *Scanner) shouldExcludeFile(relPath, absRoot string, opts *ScanOptions) bool {
	baseName := filepath.Base(relPath)

	if excludedFileNames[baseName] {
		return true
	}
	for _, suffix := range excludedFileSuffixes {
		if strings.HasSuffix(baseName, suffix) {
			return true
		}
	}
	for _, pattern := range sensitiveFilePatterns {
		if matchFilePattern(baseName, pattern) {
			return true
		}
	}
	for _, pattern := range opts.ExtraExcludes {
		if matchFilePattern(baseName, pattern) || matchDirPattern(relPath, pattern) {
			return true
		}
	}

	if opts.RespectGitignore && s.isGitignored(relPath, absRoot) {
		return true
	}
	return false
}

// matchDirPattern matches a relative path against a directory pattern,
// supporting **/name/** and prefix forms.
func matchDirPattern(relPath, pattern string) bool {
	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimSuffix(strings.TrimPrefix(pattern, "**/"), "/**")
		for _, part := range strings.Split(relPath, "/") {
			if part == suffix {
				return true
			}
		}
		return false
	}
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return relPath == prefix || strings.HasPrefix(relPath, prefix+"/")
	}
	return relPath == pattern || strings.HasPrefix(relPath, pattern+"/")
}

// matchFilePattern matches a base name against a simple glob pattern.
func matchFilePattern(baseName, pattern string) bool {
	switch {
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*"):
		middle := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")
		return strings.Contains(strings.ToLower(baseName), strings.ToLower(middle))
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(baseName, strings.TrimPrefix(pattern, "*"))
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(baseName, strings.TrimSuffix(pattern, "*"))
	default:
		return baseName == pattern
	}
}

// isBinaryFile checks for null bytes in the first 512 bytes.
func (s *Scanner) isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return false
	}
	return bytes.Contains(buf[:n], []byte{0})
}

// isGitignored checks the root .gitignore plus every nested .gitignore
// on the path to the file.
func (s *Scanner) isGitignored(relPath, absRoot string) bool {
	rootMatcher := s.getGitignoreMatcher(absRoot, "")
	if rootMatcher != nil && rootMatcher.Match(relPath, false) {
		return true
	}

	parts := strings.Split(filepath.Dir(relPath), "/")
	currentDir := absRoot
	currentBase := ""

	for _, part := range parts {
		if part == "." {
			continue
		}
		currentDir = filepath.Join(currentDir, part)
		if currentBase == "" {
			currentBase = part
		} else {
			currentBase = currentBase + "/" + part
		}

		matcher := s.getGitignoreMatcher(currentDir, currentBase)
		if matcher != nil && matcher.Match(relPath, false) {
			return true
		}
	}
	return false
}

// getGitignoreMatcher gets or creates a matcher for a directory.
func (s *Scanner) getGitignoreMatcher(dir, base string) *gitignore.Matcher {
	s.cacheMu.RLock()
	matcher, ok := s.gitignoreCache.Get(dir)
	s.cacheMu.RUnlock()
	if ok {
		return matcher
	}

	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		return nil
	}

	matcher = gitignore.New()
	if err := matcher.AddFromFile(gitignorePath, base); err != nil {
		return nil
	}

	s.cacheMu.Lock()
	s.gitignoreCache.Add(dir, matcher)
	s.cacheMu.Unlock()
	return matcher
}

// InvalidateGitignoreCache clears the matcher cache. Called by watch
// mode when a .gitignore file changes.
func (s *Scanner) InvalidateGitignoreCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.gitignoreCache.Purge()
}

// excludedDirNames are directory names never descended into.
var excludedDirNames = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"venv":         true,
	".venv":        true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"target":       true,
	".next":        true,
	".nuxt":        true,
	"coverage":     true,
	".nyc_output":  true,
	".git":         true,
	".svn":         true,
	".hg":          true,
	".idea":        true,
	".vscode":      true,
	"__pycache__":  true,
	"__snapshots__": true,
	".pytest_cache": true,
	".mypy_cache":   true,
	".ruff_cache":   true,
	".cache":        true,
	".tox":          true,
	".gradle":       true,
}

// excludedFileNames are lock files never indexed.
var excludedFileNames = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"go.sum":            true,
	"Cargo.lock":        true,
	"poetry.lock":       true,
	"Pipfile.lock":      true,
	"composer.lock":     true,
	"Gemfile.lock":      true,
	"bun.lockb":         true,
}

// excludedFileSuffixes filter minified bundles, source maps, and test
// snapshots.
var excludedFileSuffixes = []string{
	".min.js",
	".min.css",
	".map",
	".snap",
}

// sensitiveFilePatterns are never indexed regardless of extension.
var sensitiveFilePatterns = []string{
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"*credentials*",
	"*secrets*",
	".netrc",
	".npmrc",
	".pypirc",
	"id_rsa",
	"id_ed25519",
}
