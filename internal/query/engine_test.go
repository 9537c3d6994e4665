package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/repograph/internal/store"
)

type fakeGraphStore struct {
	chunks      []store.ChunkRecord
	edges       []store.Relationship
	fileImports []store.FileImport
}

func (f *fakeGraphStore) ChunksBySymbol(_ context.Context, _, _, symbol string, _ int) ([]store.ChunkRecord, error) {
	var out []store.ChunkRecord
	for _, c := range f.chunks {
		for _, s := range c.SymbolNames {
			if s == symbol {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeGraphStore) ChunksByExport(_ context.Context, _, _, symbol string, _ int) ([]store.ChunkRecord, error) {
	var out []store.ChunkRecord
	for _, c := range f.chunks {
		for _, s := range c.Exports {
			if s == symbol {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeGraphStore) GetChunks(_ context.Context, ids []string) ([]store.ChunkRecord, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []store.ChunkRecord
	for _, c := range f.chunks {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeGraphStore) edgesMatching(chunkIDs, types []string, bySource bool) []store.Relationship {
	idSet := make(map[string]bool, len(chunkIDs))
	for _, id := range chunkIDs {
		idSet[id] = true
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}
	var out []store.Relationship
	for _, e := range f.edges {
		endpoint := e.TargetChunkID
		if bySource {
			endpoint = e.SourceChunkID
		}
		if idSet[endpoint] && (len(types) == 0 || typeSet[e.Type]) {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeGraphStore) EdgesInto(_ context.Context, chunkIDs, types []string) ([]store.Relationship, error) {
	return f.edgesMatching(chunkIDs, types, false), nil
}

func (f *fakeGraphStore) EdgesFrom(_ context.Context, chunkIDs, types []string) ([]store.Relationship, error) {
	return f.edgesMatching(chunkIDs, types, true), nil
}

func (f *fakeGraphStore) CallEdges(context.Context, string, string) ([]store.Relationship, error) {
	var out []store.Relationship
	for _, e := range f.edges {
		if e.Type == store.RelationCalls {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeGraphStore) ListFileImports(context.Context, string, string) ([]store.FileImport, error) {
	return f.fileImports, nil
}

func imp(source, target string) store.FileImport {
	return store.FileImport{SourceFile: source, TargetFile: target, ImportType: store.ImportStatic}
}

func TestDefinitions_Direct(t *testing.T) {
	e := New(&fakeGraphStore{chunks: []store.ChunkRecord{
		{ID: "c1", FilePath: "auth.ts", SymbolNames: []string{"login"}},
		{ID: "c2", FilePath: "other.ts", SymbolNames: []string{"logout"}},
	}})

	defs, err := e.Definitions(context.Background(), Scope{}, "login", false)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "c1", defs[0].Chunk.ID)
	assert.False(t, defs[0].IsReexport)
}

func TestDefinitions_Reexports(t *testing.T) {
	e := New(&fakeGraphStore{
		chunks: []store.ChunkRecord{
			{ID: "def", FilePath: "src/auth.ts", SymbolNames: []string{"login"}, Exports: []string{"login"}},
			{ID: "barrel", FilePath: "src/index.ts", Exports: []string{"login"}},
		},
		edges: []store.Relationship{
			{SourceChunkID: "barrel", TargetChunkID: "def", Type: store.RelationImports},
		},
	})

	defs, err := e.Definitions(context.Background(), Scope{}, "login", true)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "def", defs[0].Chunk.ID)
	assert.True(t, defs[1].IsReexport)
	assert.Equal(t, "barrel", defs[1].Chunk.ID)
	assert.Equal(t, "src/auth.ts", defs[1].ReexportSource)
}

func TestDefinitions_EmptySymbol(t *testing.T) {
	e := New(&fakeGraphStore{})
	_, err := e.Definitions(context.Background(), Scope{}, "", false)
	assert.Error(t, err)
}

func TestUsages(t *testing.T) {
	e := New(&fakeGraphStore{
		chunks: []store.ChunkRecord{
			{ID: "def", FilePath: "util.ts", SymbolNames: []string{"formatDate"}},
			{ID: "caller", FilePath: "app.ts"},
			{ID: "importer", FilePath: "page.ts"},
		},
		edges: []store.Relationship{
			{SourceChunkID: "caller", TargetChunkID: "def", Type: store.RelationCalls,
				Metadata: map[string]any{"callee_name": "formatDate"}},
			{SourceChunkID: "caller", TargetChunkID: "def", Type: store.RelationReferences},
			{SourceChunkID: "importer", TargetChunkID: "def", Type: store.RelationImports,
				Metadata: map[string]any{"is_dynamic": true}},
		},
	})

	usages, err := e.Usages(context.Background(), Scope{}, "formatDate")
	require.NoError(t, err)
	require.Len(t, usages, 2)

	// calls outranks references for the same source chunk
	assert.Equal(t, "caller", usages[0].Chunk.ID)
	assert.Equal(t, store.RelationCalls, usages[0].UsageType)
	assert.False(t, usages[0].IsDynamic)

	assert.Equal(t, "importer", usages[1].Chunk.ID)
	assert.Equal(t, store.RelationImports, usages[1].UsageType)
	assert.True(t, usages[1].IsDynamic)
}

func TestUsages_UnknownSymbol(t *testing.T) {
	e := New(&fakeGraphStore{})
	usages, err := e.Usages(context.Background(), Scope{}, "nothing")
	require.NoError(t, err)
	assert.Empty(t, usages)
}

func TestImportTree(t *testing.T) {
	e := New(&fakeGraphStore{fileImports: []store.FileImport{
		imp("app.ts", "service.ts"),
		imp("service.ts", "db.ts"),
		imp("service.ts", "app.ts"), // back-import must not leak into level 2
		imp("page.ts", "app.ts"),
		imp("admin.ts", "page.ts"),
	}})

	tree, err := e.ImportTree(context.Background(), Scope{}, "app.ts")
	require.NoError(t, err)

	assert.Equal(t, []string{"service.ts"}, tree.Imports)
	assert.Equal(t, []string{"page.ts", "service.ts"}, tree.ImportedBy)
	assert.Equal(t, []string{"db.ts"}, tree.TransitiveImports)
	assert.Equal(t, []string{"admin.ts"}, tree.TransitiveImporters)
}

func TestCycles(t *testing.T) {
	e := New(&fakeGraphStore{fileImports: []store.FileImport{
		imp("a.ts", "b.ts"),
		imp("b.ts", "a.ts"),
		imp("x.ts", "y.ts"),
		imp("y.ts", "z.ts"),
		imp("z.ts", "x.ts"),
		imp("solo.ts", "leaf.ts"),
	}})

	cycles, err := e.Cycles(context.Background(), Scope{}, 0)
	require.NoError(t, err)
	require.Len(t, cycles, 2)

	assert.Equal(t, []string{"a.ts", "b.ts"}, cycles[0].Files)
	assert.Equal(t, "direct", cycles[0].Kind)

	assert.Equal(t, []string{"x.ts", "y.ts", "z.ts"}, cycles[1].Files)
	assert.Equal(t, "indirect", cycles[1].Kind)
}

func TestCycles_MaxLength(t *testing.T) {
	e := New(&fakeGraphStore{fileImports: []store.FileImport{
		imp("x.ts", "y.ts"),
		imp("y.ts", "z.ts"),
		imp("z.ts", "x.ts"),
	}})

	cycles, err := e.Cycles(context.Background(), Scope{}, 2)
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestHubs(t *testing.T) {
	var imports []store.FileImport
	for _, src := range []string{"a.ts", "b.ts", "c.ts"} {
		imports = append(imports, imp(src, "core.ts"))
	}
	imports = append(imports, imp("a.ts", "minor.ts"))
	e := New(&fakeGraphStore{fileImports: imports})

	hubs, err := e.Hubs(context.Background(), Scope{}, 3, 10)
	require.NoError(t, err)
	require.Len(t, hubs, 1)
	assert.Equal(t, "core.ts", hubs[0].File)
	assert.Equal(t, 3, hubs[0].ImporterCount)
	assert.Equal(t, []string{"a.ts", "b.ts", "c.ts"}, hubs[0].SampleImporters)
}

func callGraphFixture() *fakeGraphStore {
	call := func(source, target, callee string, line int) store.Relationship {
		return store.Relationship{
			SourceChunkID: source, TargetChunkID: target, Type: store.RelationCalls,
			Metadata: map[string]any{"callee_name": callee, "line": line},
		}
	}
	return &fakeGraphStore{
		chunks: []store.ChunkRecord{
			{ID: "handler", FilePath: "api.ts", SymbolName: "handleLogin", SymbolNames: []string{"handleLogin"}},
			{ID: "auth", FilePath: "auth.ts", SymbolName: "login", SymbolNames: []string{"login"}},
			{ID: "db", FilePath: "db.ts", SymbolName: "queryUser", SymbolNames: []string{"queryUser"}},
			{ID: "hash", FilePath: "crypto.ts", SymbolName: "hashPassword", SymbolNames: []string{"hashPassword"}},
		},
		edges: []store.Relationship{
			call("handler", "auth", "login", 12),
			call("auth", "db", "queryUser", 30),
			call("auth", "hash", "hashPassword", 31),
		},
	}
}

func TestCallGraph_Callees(t *testing.T) {
	e := New(callGraphFixture())

	g, err := e.CallGraph(context.Background(), Scope{}, "login", DirectionCallees, 1)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 3)
	depths := map[string]int{}
	for _, n := range g.Nodes {
		depths[n.ChunkID] = n.Depth
	}
	assert.Equal(t, 0, depths["auth"])
	assert.Equal(t, 1, depths["db"])
	assert.Equal(t, 1, depths["hash"])

	require.Len(t, g.Edges, 2)
	assert.Equal(t, "queryUser", g.Edges[0].CalleeName)
	assert.Equal(t, 30, g.Edges[0].Line)
	assert.False(t, g.Truncated)
}

func TestCallGraph_Callers(t *testing.T) {
	e := New(callGraphFixture())

	g, err := e.CallGraph(context.Background(), Scope{}, "login", DirectionCallers, 2)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, n := range g.Nodes {
		ids[n.ChunkID] = true
	}
	assert.True(t, ids["auth"])
	assert.True(t, ids["handler"])
	assert.False(t, ids["db"])
}

func TestCallGraph_Both(t *testing.T) {
	e := New(callGraphFixture())

	g, err := e.CallGraph(context.Background(), Scope{}, "login", DirectionBoth, 1)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 4)
	assert.Len(t, g.Edges, 3)
}

func TestCallGraph_Validation(t *testing.T) {
	e := New(callGraphFixture())

	_, err := e.CallGraph(context.Background(), Scope{}, "login", "sideways", 1)
	assert.Error(t, err)

	_, err = e.CallGraph(context.Background(), Scope{}, "login", DirectionBoth, 9)
	assert.Error(t, err)

	g, err := e.CallGraph(context.Background(), Scope{}, "noSuchFn", DirectionBoth, 1)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
}
