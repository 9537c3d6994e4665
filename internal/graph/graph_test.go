package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/repograph/internal/chunk"
	"github.com/Aman-CERP/repograph/internal/store"
)

func TestImportResolver_RelativeJS(t *testing.T) {
	r := NewImportResolver([]string{
		"src/app.ts",
		"src/util/format.ts",
		"src/util/index.ts",
		"src/legacy.js",
	})

	got, ok := r.Resolve("src/app.ts", "./util/format")
	require.True(t, ok)
	assert.Equal(t, "src/util/format.ts", got)

	// Directory import falls back to index.<ext>
	got, ok = r.Resolve("src/app.ts", "./util")
	require.True(t, ok)
	assert.Equal(t, "src/util/index.ts", got)

	// Compiled-JS specifier resolves to the TypeScript sibling
	got, ok = r.Resolve("src/app.ts", "./util/format.js")
	require.True(t, ok)
	assert.Equal(t, "src/util/format.ts", got)

	// Literal suffix match wins when the file exists as written
	got, ok = r.Resolve("src/app.ts", "./legacy.js")
	require.True(t, ok)
	assert.Equal(t, "src/legacy.js", got)

	_, ok = r.Resolve("src/app.ts", "./missing")
	assert.False(t, ok)
}

func TestImportResolver_ParentRelative(t *testing.T) {
	r := NewImportResolver([]string{
		"src/api/client.ts",
		"src/config.ts",
	})

	got, ok := r.Resolve("src/api/client.ts", "../config")
	require.True(t, ok)
	assert.Equal(t, "src/config.ts", got)
}

func TestImportResolver_PythonRelative(t *testing.T) {
	r := NewImportResolver([]string{
		"pkg/app.py",
		"pkg/models.py",
		"pkg/sub/__init__.py",
		"pkg/sub/worker.py",
		"common/helpers.py",
	})

	got, ok := r.Resolve("pkg/app.py", ".models")
	require.True(t, ok)
	assert.Equal(t, "pkg/models.py", got)

	got, ok = r.Resolve("pkg/sub/worker.py", "..models")
	require.True(t, ok)
	assert.Equal(t, "pkg/models.py", got)

	// Package import lands on __init__.py
	got, ok = r.Resolve("pkg/app.py", ".sub")
	require.True(t, ok)
	assert.Equal(t, "pkg/sub/__init__.py", got)

	// Absolute dotted module path
	got, ok = r.Resolve("pkg/app.py", "common.helpers")
	require.True(t, ok)
	assert.Equal(t, "common/helpers.py", got)
}

func TestImportResolver_SourcePrefixes(t *testing.T) {
	r := NewImportResolver([]string{
		"src/components/Button.tsx",
		"lib/tools.py",
	})

	got, ok := r.Resolve("src/app.ts", "components/Button")
	require.True(t, ok)
	assert.Equal(t, "src/components/Button.tsx", got)

	got, ok = r.Resolve("main.py", "tools")
	require.True(t, ok)
	assert.Equal(t, "lib/tools.py", got)
}

func TestBuildImportEdges(t *testing.T) {
	files := []SourceFile{
		{
			Path:    "src/app.ts",
			Imports: []string{"./service", "./service", "react"},
			Exports: []string{"* from ./service"},
		},
		{
			Path:           "src/service.ts",
			DynamicImports: []string{"./heavy"},
		},
		{Path: "src/heavy.ts"},
	}

	edges := BuildImportEdges("abc123", "main", files)
	require.Len(t, edges, 2)

	// Duplicate specifiers collapse; the first resolution fixes the type
	assert.Equal(t, "src/app.ts", edges[0].SourceFile)
	assert.Equal(t, "src/service.ts", edges[0].TargetFile)
	assert.Equal(t, store.ImportStatic, edges[0].ImportType)
	assert.Equal(t, "abc123", edges[0].RepoID)
	assert.Equal(t, "main", edges[0].Branch)

	assert.Equal(t, "src/service.ts", edges[1].SourceFile)
	assert.Equal(t, "src/heavy.ts", edges[1].TargetFile)
	assert.Equal(t, store.ImportDynamic, edges[1].ImportType)
}

func TestBuildImportEdges_ReExport(t *testing.T) {
	files := []SourceFile{
		{Path: "src/index.ts", Exports: []string{"* from ./all"}},
		{Path: "src/all.ts"},
	}

	edges := BuildImportEdges("r", "main", files)
	require.Len(t, edges, 1)
	assert.Equal(t, store.ImportReExport, edges[0].ImportType)
	assert.Equal(t, "src/all.ts", edges[0].TargetFile)
}

func TestBuildRelationships_Imports(t *testing.T) {
	chunks := []store.ChunkRecord{
		{ID: "c1", FilePath: "a.ts", Imports: []string{"formatDate", "react"}},
		{ID: "c2", FilePath: "b.ts", Exports: []string{"formatDate"},
			SymbolNames: []string{"formatDate"}},
	}

	edges := BuildRelationships(chunks, RelationshipOptions{})
	require.Len(t, edges, 1)
	assert.Equal(t, "c1", edges[0].SourceChunkID)
	assert.Equal(t, "c2", edges[0].TargetChunkID)
	assert.Equal(t, store.RelationImports, edges[0].Type)
	assert.Equal(t, "formatDate", edges[0].Metadata["imported_symbol"])
}

func TestBuildRelationships_References(t *testing.T) {
	chunks := []store.ChunkRecord{
		{ID: "def", FilePath: "util.ts", SymbolNames: []string{"formatDate", "fd"}},
		{ID: "use", FilePath: "app.ts", Content: "const s = formatDate(now)"},
		{ID: "other", FilePath: "other.ts", Content: "nothing relevant here"},
	}

	edges := BuildRelationships(chunks, DefaultRelationshipOptions())
	require.Len(t, edges, 1)
	assert.Equal(t, "use", edges[0].SourceChunkID)
	assert.Equal(t, "def", edges[0].TargetChunkID)
	assert.Equal(t, store.RelationReferences, edges[0].Type)
	assert.Equal(t, "formatDate", edges[0].Metadata["symbol"])
}

func TestBuildRelationships_ImportEdgeSuppressesReference(t *testing.T) {
	chunks := []store.ChunkRecord{
		{ID: "use", FilePath: "app.ts", Imports: []string{"formatDate"},
			Content: "formatDate(now)"},
		{ID: "def", FilePath: "util.ts", Exports: []string{"formatDate"},
			SymbolNames: []string{"formatDate"}},
	}

	edges := BuildRelationships(chunks, DefaultRelationshipOptions())
	require.Len(t, edges, 1)
	assert.Equal(t, store.RelationImports, edges[0].Type)
}

func TestBuildRelationships_ShortSymbolsIgnored(t *testing.T) {
	chunks := []store.ChunkRecord{
		{ID: "def", SymbolNames: []string{"fn"}},
		{ID: "use", Content: "fn()"},
	}

	edges := BuildRelationships(chunks, DefaultRelationshipOptions())
	assert.Empty(t, edges)
}

func TestBuildRelationships_WordBoundary(t *testing.T) {
	chunks := []store.ChunkRecord{
		{ID: "def", SymbolNames: []string{"format"}},
		{ID: "use", Content: "reformatted = transform(x)"},
	}

	edges := BuildRelationships(chunks, DefaultRelationshipOptions())
	assert.Empty(t, edges)
}

func callChunks() []store.ChunkRecord {
	return []store.ChunkRecord{
		{ID: "a1", FilePath: "auth.ts", LineStart: 1, LineEnd: 10,
			SymbolNames: []string{"AuthService", "login"}},
		{ID: "a2", FilePath: "auth.ts", LineStart: 12, LineEnd: 20,
			SymbolNames: []string{"validate"}},
		{ID: "u1", FilePath: "user.ts", LineStart: 1, LineEnd: 15,
			SymbolNames: []string{"UserService", "fetchUser"}},
		{ID: "m1", FilePath: "main.ts", LineStart: 1, LineEnd: 30,
			SymbolNames: []string{"main"}},
	}
}

func TestBuildCallEdges_ThisReceiverStaysInFile(t *testing.T) {
	edges := BuildCallEdges(callChunks(), map[string][]chunk.CallSite{
		"auth.ts": {{Callee: "validate", Receiver: "this", Line: 5}},
	})

	require.Len(t, edges, 1)
	assert.Equal(t, "a1", edges[0].SourceChunkID)
	assert.Equal(t, "a2", edges[0].TargetChunkID)
	assert.Equal(t, store.RelationCalls, edges[0].Type)
	assert.Equal(t, "validate", edges[0].Metadata["callee_name"])
	assert.Equal(t, 5, edges[0].Metadata["line"])
	assert.Equal(t, "this", edges[0].Metadata["receiver"])
}

func TestBuildCallEdges_NamedReceiver(t *testing.T) {
	edges := BuildCallEdges(callChunks(), map[string][]chunk.CallSite{
		"main.ts": {{Callee: "fetchUser", Receiver: "UserService", Line: 3}},
	})

	require.Len(t, edges, 1)
	assert.Equal(t, "m1", edges[0].SourceChunkID)
	assert.Equal(t, "u1", edges[0].TargetChunkID)
}

func TestBuildCallEdges_PlainCallPrefersSameFile(t *testing.T) {
	edges := BuildCallEdges(callChunks(), map[string][]chunk.CallSite{
		"auth.ts": {{Callee: "validate", Line: 3}},
		"main.ts": {{Callee: "fetchUser", Line: 10}},
	})

	require.Len(t, edges, 2)
	byCallee := map[string]store.Relationship{}
	for _, e := range edges {
		byCallee[e.Metadata["callee_name"].(string)] = e
	}

	// Same-file definition wins over the tied cross-file name
	assert.Equal(t, "a2", byCallee["validate"].TargetChunkID)
	// No same-file match falls back to the repo-wide index
	assert.Equal(t, "u1", byCallee["fetchUser"].TargetChunkID)
}

func TestBuildCallEdges_SkipsDynamicAnonymousAndBuiltins(t *testing.T) {
	edges := BuildCallEdges(callChunks(), map[string][]chunk.CallSite{
		"main.ts": {
			{Callee: "then", Receiver: chunk.ReceiverCallResult, IsDynamic: true, Line: 2},
			{Callee: chunk.CalleeAnonymous, IsDynamic: true, Line: 3},
			{Callee: "log", Receiver: "console", Line: 4},
			{Callee: "parseInt", Line: 5},
			{Callee: "unknownHelper", Line: 6},
		},
	})

	assert.Empty(t, edges)
}

func TestBuildCallEdges_NoSelfEdges(t *testing.T) {
	edges := BuildCallEdges(callChunks(), map[string][]chunk.CallSite{
		"user.ts": {{Callee: "fetchUser", Line: 5}},
	})

	assert.Empty(t, edges)
}

func TestBuildCallEdges_Dedupes(t *testing.T) {
	edges := BuildCallEdges(callChunks(), map[string][]chunk.CallSite{
		"main.ts": {
			{Callee: "fetchUser", Line: 3},
			{Callee: "fetchUser", Line: 8},
		},
	})

	require.Len(t, edges, 1)
	assert.Equal(t, 3, edges[0].Metadata["line"])
}

func TestInnermostChunkAt(t *testing.T) {
	chunks := []store.ChunkRecord{
		{ID: "outer", FilePath: "f.py", LineStart: 1, LineEnd: 100},
		{ID: "inner", FilePath: "f.py", LineStart: 40, LineEnd: 60},
	}

	assert.Equal(t, 1, innermostChunkAt(chunks, []int{0, 1}, 50))
	assert.Equal(t, 0, innermostChunkAt(chunks, []int{0, 1}, 10))
	assert.Equal(t, -1, innermostChunkAt(chunks, []int{0, 1}, 200))
}
