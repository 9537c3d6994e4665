package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func scanAll(t *testing.T, opts *ScanOptions) map[string]*FileInfo {
	t.Helper()
	s, err := New()
	require.NoError(t, err)

	results, err := s.Scan(context.Background(), opts)
	require.NoError(t, err)

	files := make(map[string]*FileInfo)
	for r := range results {
		require.NoError(t, r.Error)
		files[r.File.Path] = r.File
	}
	return files
}

func TestScan_IncludesSourceAndConfigFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "src/app.ts", "export const x = 1;\n")
	writeFile(t, root, "tsconfig.json", "{}\n")
	writeFile(t, root, "notes.bin", "data\n")
	writeFile(t, root, "logo.png", "not really a png\n")

	files := scanAll(t, &ScanOptions{RootDir: root})

	assert.Contains(t, files, "main.go")
	assert.Contains(t, files, "src/app.ts")
	assert.Contains(t, files, "tsconfig.json")
	assert.NotContains(t, files, "notes.bin")
	assert.NotContains(t, files, "logo.png")

	assert.Equal(t, "go", files["main.go"].Language)
	assert.Equal(t, "typescript", files["src/app.ts"].Language)
	assert.True(t, files["tsconfig.json"].IsConfig)
}

func TestScan_ExcludesVendoredAndArtifactDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.py", "x = 1\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = 1;\n")
	writeFile(t, root, "vendor/lib/lib.go", "package lib\n")
	writeFile(t, root, "dist/app.js", "var a;\n")
	writeFile(t, root, ".venv/lib/site.py", "x = 1\n")
	writeFile(t, root, "__pycache__/mod.py", "x = 1\n")

	files := scanAll(t, &ScanOptions{RootDir: root})

	assert.Len(t, files, 1)
	assert.Contains(t, files, "ok.py")
}

func TestScan_ExcludesLockFilesAndBundles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.js", "var a;\n")
	writeFile(t, root, "package-lock.json", "{}\n")
	writeFile(t, root, "yarn.lock", "# lock\n")
	writeFile(t, root, "bundle.min.js", "var a;\n")
	writeFile(t, root, "bundle.js.map", "{}\n")
	writeFile(t, root, "Widget.test.tsx.snap", "snapshot\n")

	files := scanAll(t, &ScanOptions{RootDir: root})

	assert.Len(t, files, 1)
	assert.Contains(t, files, "app.js")
}

func TestScan_ExcludesSensitiveFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "server.go", "package main\n")
	writeFile(t, root, ".env", "SECRET=1\n")
	writeFile(t, root, ".env.local", "SECRET=1\n")
	writeFile(t, root, "server.key", "-----BEGIN KEY-----\n")
	writeFile(t, root, "aws_credentials.json", "{}\n")

	files := scanAll(t, &ScanOptions{RootDir: root})

	assert.Len(t, files, 1)
	assert.Contains(t, files, "server.go")
}

func TestScan_MaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package a\n")

	big := make([]byte, 200)
	for i := range big {
		big[i] = 'x'
	}
	writeFile(t, root, "big.go", string(big))

	files := scanAll(t, &ScanOptions{RootDir: root, MaxFileSize: 100})

	assert.Contains(t, files, "small.go")
	assert.NotContains(t, files, "big.go")
}

func TestScan_SkipsBinaryContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "text.go", "package a\n")
	writeFile(t, root, "blob.go", "package a\x00\x01\x02\n")

	files := scanAll(t, &ScanOptions{RootDir: root})

	assert.Contains(t, files, "text.go")
	assert.NotContains(t, files, "blob.go")
}

func TestScan_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n*.tmp.py\n")
	writeFile(t, root, "keep.py", "x = 1\n")
	writeFile(t, root, "generated/gen.py", "x = 1\n")
	writeFile(t, root, "scratch.tmp.py", "x = 1\n")

	files := scanAll(t, &ScanOptions{RootDir: root, RespectGitignore: true})

	assert.Contains(t, files, "keep.py")
	assert.NotContains(t, files, "generated/gen.py")
	assert.NotContains(t, files, "scratch.tmp.py")
}

func TestScan_ExtraExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", "package a\n")
	writeFile(t, root, "fixtures/data.go", "package fixtures\n")

	files := scanAll(t, &ScanOptions{RootDir: root, ExtraExcludes: []string{"fixtures/**"}})

	assert.Contains(t, files, "keep.go")
	assert.NotContains(t, files, "fixtures/data.go")
}

func TestScan_InvalidRoot(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Scan(context.Background(), &ScanOptions{RootDir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"a/b/c.ts":  "typescript",
		"x.tsx":     "tsx",
		"mod.py":    "python",
		"main.rs":   "rust",
		"Svc.java":  "java",
		"run.sh":    "bash",
		"README.md": "markdown",
		"photo.png": "",
	}
	for path, want := range cases {
		assert.Equal(t, want, DetectLanguage(path), path)
	}
}
