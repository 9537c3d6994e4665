// Package graph builds the three derived edge sets: file-level import
// edges, chunk-level import/reference relationships, and resolved call
// edges.
package graph

import (
	"path"
	"strings"

	"github.com/Aman-CERP/repograph/internal/store"
)

// SourceFile carries the per-file facts the import resolver needs.
type SourceFile struct {
	Path           string
	Imports        []string
	DynamicImports []string
	Exports        []string
}

// extensionOrder is the deterministic candidate order for suffix-less
// import specifiers.
var extensionOrder = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".mts", ".py", ".pyi"}

// jsSiblings maps compiled-JS suffixes to the TypeScript sources they
// typically compile from.
var jsSiblings = map[string][]string{
	".js":  {".ts", ".tsx", ".mts"},
	".jsx": {".tsx", ".ts"},
	".mjs": {".mts", ".ts"},
}

// sourcePrefixes are tried after the repo root for absolute-looking
// specifiers.
var sourcePrefixes = []string{"src/", "lib/", "app/"}

// ImportResolver resolves import specifiers against the indexed file
// set without touching the filesystem.
type ImportResolver struct {
	files map[string]bool
}

// NewImportResolver builds a resolver over the indexed file paths
// (slash-separated, relative to the repo root).
func NewImportResolver(paths []string) *ImportResolver {
	files := make(map[string]bool, len(paths))
	for _, p := range paths {
		files[p] = true
	}
	return &ImportResolver{files: files}
}

// Resolve maps an import specifier written in sourcePath to an indexed
// file, or returns false.
func (r *ImportResolver) Resolve(sourcePath, spec string) (string, bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", false
	}
	sourceDir := path.Dir(sourcePath)
	if sourceDir == "." {
		sourceDir = ""
	}

	switch {
	case strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../"):
		target := path.Clean(path.Join(sourceDir, spec))
		return r.firstExisting(r.candidates(target))

	case strings.HasPrefix(spec, "."):
		// Python relative import: one dot per level up, then a dotted
		// module path
		return r.firstExisting(r.candidates(pythonRelativeTarget(sourceDir, spec)))

	default:
		var candidates []string
		for _, prefix := range append([]string{""}, sourcePrefixes...) {
			candidates = append(candidates, r.candidates(prefix+spec)...)
			if dotted := dottedToPath(spec); dotted != spec {
				candidates = append(candidates, r.candidates(prefix+dotted)...)
			}
		}
		return r.firstExisting(candidates)
	}
}

// pythonRelativeTarget turns ".sibling" / "..pkg.mod" / "." into a
// repo-relative path.
func pythonRelativeTarget(sourceDir, spec string) string {
	dots := 0
	for dots < len(spec) && spec[dots] == '.' {
		dots++
	}
	rest := dottedToPath(spec[dots:])

	base := sourceDir
	for i := 1; i < dots; i++ {
		base = path.Dir(base)
		if base == "." {
			base = ""
		}
	}
	if rest == "" {
		return base
	}
	return path.Clean(path.Join(base, rest))
}

// dottedToPath converts a dotted module path to slashes when it has no
// slash or recognized suffix already.
func dottedToPath(spec string) string {
	if strings.Contains(spec, "/") || hasKnownExtension(spec) {
		return spec
	}
	return strings.ReplaceAll(spec, ".", "/")
}

func hasKnownExtension(spec string) bool {
	ext := path.Ext(spec)
	if ext == "" {
		return false
	}
	for _, known := range extensionOrder {
		if ext == known {
			return true
		}
	}
	return ext == ".cjs" || ext == ".json"
}

// candidates returns the ordered candidate paths for a resolved
// target.
func (r *ImportResolver) candidates(target string) []string {
	target = strings.TrimPrefix(target, "/")
	if target == "" || target == "." {
		return nil
	}

	ext := path.Ext(target)
	if hasKnownExtension(target) {
		out := []string{target}
		for _, sibling := range jsSiblings[ext] {
			out = append(out, strings.TrimSuffix(target, ext)+sibling)
		}
		return out
	}

	var out []string
	out = append(out, target)
	for _, e := range extensionOrder {
		out = append(out, target+e)
	}
	for _, e := range extensionOrder {
		out = append(out, target+"/index"+e)
	}
	out = append(out, target+"/__init__.py")
	return out
}

func (r *ImportResolver) firstExisting(candidates []string) (string, bool) {
	for _, c := range candidates {
		if r.files[c] {
			return c, true
		}
	}
	return "", false
}

// reExportPrefix marks verbatim re-export entries in a file's export
// list.
const reExportPrefix = "* from "

// BuildImportEdges resolves every file's imports against the file set
// and emits one edge per resolved (source, target) pair.
func BuildImportEdges(repoID, branch string, files []SourceFile) []store.FileImport {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	resolver := NewImportResolver(paths)

	type edgeKey struct{ source, target string }
	seen := make(map[edgeKey]bool)
	var edges []store.FileImport

	add := func(source, spec, importType string) {
		target, ok := resolver.Resolve(source, spec)
		if !ok || target == source {
			return
		}
		key := edgeKey{source, target}
		if seen[key] {
			return
		}
		seen[key] = true
		edges = append(edges, store.FileImport{
			SourceFile: source,
			TargetFile: target,
			RepoID:     repoID,
			Branch:     branch,
			ImportType: importType,
		})
	}

	for _, f := range files {
		for _, spec := range f.Imports {
			add(f.Path, spec, store.ImportStatic)
		}
		for _, spec := range f.DynamicImports {
			add(f.Path, spec, store.ImportDynamic)
		}
		for _, exp := range f.Exports {
			if spec, ok := strings.CutPrefix(exp, reExportPrefix); ok {
				add(f.Path, spec, store.ImportReExport)
			}
		}
	}

	return edges
}
