// Package scanner discovers indexable files in a repository working
// copy. It applies the include-extension and exclude-path rules, the
// file size cap, sensitive-file filtering, and optional .gitignore
// matching.
package scanner

import "time"

// FileInfo contains metadata about a discovered file.
type FileInfo struct {
	Path     string    // Relative path to the repo root
	AbsPath  string    // Absolute path
	Size     int64     // File size in bytes
	ModTime  time.Time // Last modification time
	Language string    // go, typescript, python, ... ("" when unknown)
	IsConfig bool      // Recognized config file
}

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// RootDir is the repository root directory to scan.
	RootDir string

	// ExtraExcludes specifies additional exclusion patterns beyond the
	// built-in set.
	ExtraExcludes []string

	// RespectGitignore enables .gitignore parsing.
	RespectGitignore bool

	// MaxFileSize is the maximum file size in bytes (0 = 10MB default).
	MaxFileSize int64

	// FollowSymlinks enables following symbolic links (default: false).
	FollowSymlinks bool
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum file size (10MB).
const DefaultMaxFileSize = 10_000_000

// languageMap maps included file extensions to languages.
var languageMap = map[string]string{
	".go": "go",

	".js":  "javascript",
	".jsx": "jsx",
	".mjs": "javascript",
	".cjs": "javascript",
	".ts":  "typescript",
	".mts": "typescript",
	".tsx": "tsx",

	".py":  "python",
	".pyi": "python",

	".rs": "rust",

	".c":   "c",
	".h":   "c",
	".cpp": "cpp",
	".hpp": "cpp",
	".cc":  "cpp",

	".java":  "java",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".scala": "scala",
	".cs":    "csharp",
	".fs":    "fsharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",

	".sh":   "bash",
	".bash": "bash",

	".md": "markdown",

	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
}

// DetectLanguage maps a file path to a language name, or "".
func DetectLanguage(path string) string {
	return languageMap[extension(path)]
}

// extension returns the file extension including the dot.
func extension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	return ""
}
