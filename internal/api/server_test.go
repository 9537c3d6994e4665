package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/repograph/internal/query"
	"github.com/Aman-CERP/repograph/internal/search"
	"github.com/Aman-CERP/repograph/internal/store"
)

type fakeAdmin struct {
	pingErr error
	deleted int64
}

func (f *fakeAdmin) Ping(context.Context) error { return f.pingErr }

func (f *fakeAdmin) Stats(_ context.Context, repoID, branch string) (*store.RepoStats, error) {
	return &store.RepoStats{RepoID: repoID, Branch: branch, ChunkCount: 42, FileCount: 7}, nil
}

func (f *fakeAdmin) Repos(context.Context) ([]store.RepoInfo, error) {
	return []store.RepoInfo{{RepoID: "abc", RepoURL: "https://example.com/r.git", Branches: []string{"main"}}}, nil
}

func (f *fakeAdmin) DeleteRepoBranch(_ context.Context, repoID, branch string) (int64, error) {
	f.deleted = 9
	return 9, nil
}

type fakeSearchStore struct {
	vectorHits  []store.SearchHit
	keywordHits []store.SearchHit
}

func (f *fakeSearchStore) VectorSearch(context.Context, []float32, string, string, int) ([]store.SearchHit, error) {
	return f.vectorHits, nil
}

func (f *fakeSearchStore) KeywordSearch(context.Context, string, string, string, int) ([]store.SearchHit, error) {
	return f.keywordHits, nil
}

type fakeEmbedder struct{ available bool }

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                { return 2 }
func (f *fakeEmbedder) ModelName() string              { return "test-model" }
func (f *fakeEmbedder) Available(context.Context) bool { return f.available }
func (f *fakeEmbedder) Close() error                   { return nil }

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

func (f *fakeGraphStore) ChunksByExport(context.Context, string, string, string, int) ([]store.ChunkRecord, error) {
	return nil, nil
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

func (f *fakeGraphStore) EdgesInto(_ context.Context, chunkIDs, types []string) ([]store.Relationship, error) {
	return f.edges, nil
}

func (f *fakeGraphStore) EdgesFrom(context.Context, []string, []string) ([]store.Relationship, error) {
	return nil, nil
}

func (f *fakeGraphStore) CallEdges(context.Context, string, string) ([]store.Relationship, error) {
	return f.edges, nil
}

func (f *fakeGraphStore) ListFileImports(context.Context, string, string) ([]store.FileImport, error) {
	return f.fileImports, nil
}

func newTestServer(t *testing.T, admin *fakeAdmin, st *fakeSearchStore, gs *fakeGraphStore, emb *fakeEmbedder) *httptest.Server {
	t.Helper()
	if admin == nil {
		admin = &fakeAdmin{}
	}
	if st == nil {
		st = &fakeSearchStore{}
	}
	if gs == nil {
		gs = &fakeGraphStore{}
	}
	if emb == nil {
		emb = &fakeEmbedder{available: true}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(admin, search.New(st, emb), query.New(gs), emb, log)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil, &fakeEmbedder{available: true})

	var resp healthResponse
	status := getJSON(t, ts.URL+"/health", &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test-model", resp.EmbeddingModel)
	assert.True(t, resp.ModelReachable)
}

func TestHealth_Degraded(t *testing.T) {
	ts := newTestServer(t, &fakeAdmin{pingErr: assert.AnError}, nil, nil, nil)

	var resp healthResponse
	status := getJSON(t, ts.URL+"/health", &resp)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unreachable", resp.Store)
}

func TestSearch(t *testing.T) {
	st := &fakeSearchStore{vectorHits: []store.SearchHit{
		{Chunk: store.ChunkRecord{ID: "c1", FilePath: "a.ts"}, Score: 0.9},
	}}
	ts := newTestServer(t, nil, st, nil, nil)

	var resp struct {
		Results []store.SearchHit `json:"results"`
	}
	status := postJSON(t, ts.URL+"/search", `{"query":"auth flow","limit":5}`, &resp)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "c1", resp.Results[0].Chunk.ID)
}

func TestSearch_EmptyQueryIsBadRequest(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil, nil)

	var resp errorBody
	status := postJSON(t, ts.URL+"/search", `{"query":""}`, &resp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ERR_401_INPUT_INVALID", resp.Error.Code)
}

func TestSearch_MalformedBody(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil, nil)

	var resp errorBody
	status := postJSON(t, ts.URL+"/search", `{"nope":`, &resp)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestKeywordSearch_Breakdown(t *testing.T) {
	st := &fakeSearchStore{keywordHits: []store.SearchHit{
		{Chunk: store.ChunkRecord{ID: "c1", SymbolNames: []string{"getUserName"}}, Score: 0.5},
	}}
	ts := newTestServer(t, nil, st, nil, nil)

	var resp struct {
		Results []search.BoostedHit `json:"results"`
	}
	status := postJSON(t, ts.URL+"/keyword-search", `{"query":"getUserName"}`, &resp)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, search.BoostExact, resp.Results[0].Boost)
	assert.InDelta(t, 0.5, resp.Results[0].RawScore, 1e-9)
	assert.InDelta(t, 1.5, resp.Results[0].Score, 1e-9)
}

func TestHybridSearch_Fallback(t *testing.T) {
	st := &fakeSearchStore{vectorHits: []store.SearchHit{
		{Chunk: store.ChunkRecord{ID: "c1"}, Score: 0.8},
	}}
	ts := newTestServer(t, nil, st, nil, nil)

	var resp struct {
		Results      []search.HybridHit `json:"results"`
		FallbackUsed bool               `json:"fallback_used"`
	}
	status := postJSON(t, ts.URL+"/hybrid-search", `{"query":"zzz"}`, &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.FallbackUsed)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []string{"vector"}, resp.Results[0].Sources)
}

func TestStats(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil, nil)

	var resp store.RepoStats
	status := getJSON(t, ts.URL+"/stats?repo_url=https://example.com/r.git&branch=main", &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 42, resp.ChunkCount)
	assert.Equal(t, store.RepoIDFor("https://example.com/r.git"), resp.RepoID)
}

func TestStats_RequiresRepoURL(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil, nil)

	var resp errorBody
	status := getJSON(t, ts.URL+"/stats", &resp)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRepos(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil, nil)

	var resp struct {
		Repos []store.RepoInfo `json:"repos"`
	}
	status := getJSON(t, ts.URL+"/repos", &resp)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Repos, 1)
	assert.Equal(t, "abc", resp.Repos[0].RepoID)
}

func TestDeleteIndex(t *testing.T) {
	admin := &fakeAdmin{}
	ts := newTestServer(t, admin, nil, nil, nil)

	req, err := http.NewRequest(http.MethodDelete,
		ts.URL+"/index/https://example.com/r.git?branch=main", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(9), body["deleted_chunks"])
}

func TestDefinitions(t *testing.T) {
	gs := &fakeGraphStore{chunks: []store.ChunkRecord{
		{ID: "c1", FilePath: "auth.ts", SymbolNames: []string{"login"}},
	}}
	ts := newTestServer(t, nil, nil, gs, nil)

	var resp struct {
		Definitions []query.Definition `json:"definitions"`
	}
	status := getJSON(t, ts.URL+"/definitions/login", &resp)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Definitions, 1)
	assert.Equal(t, "auth.ts", resp.Definitions[0].Chunk.FilePath)
}

func TestImportTree(t *testing.T) {
	gs := &fakeGraphStore{fileImports: []store.FileImport{
		{SourceFile: "src/app.ts", TargetFile: "src/util.ts", ImportType: store.ImportStatic},
	}}
	ts := newTestServer(t, nil, nil, gs, nil)

	var resp query.ImportTree
	status := getJSON(t, ts.URL+"/import-tree/src/app.ts", &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "src/app.ts", resp.File)
	assert.Equal(t, []string{"src/util.ts"}, resp.Imports)
}

func TestCallGraph_BadDirection(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil, nil)

	var resp errorBody
	status := getJSON(t, ts.URL+"/callgraph/login?direction=sideways", &resp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ERR_401_INPUT_INVALID", resp.Error.Code)
}

func TestCallGraph(t *testing.T) {
	gs := &fakeGraphStore{
		chunks: []store.ChunkRecord{
			{ID: "a", FilePath: "auth.ts", SymbolNames: []string{"login"}},
			{ID: "b", FilePath: "db.ts", SymbolNames: []string{"queryUser"}},
		},
		edges: []store.Relationship{
			{SourceChunkID: "a", TargetChunkID: "b", Type: store.RelationCalls,
				Metadata: map[string]any{"callee_name": "queryUser", "line": 7}},
		},
	}
	ts := newTestServer(t, nil, nil, gs, nil)

	var resp query.CallGraph
	status := getJSON(t, ts.URL+"/callgraph/login?direction=callees&depth=1", &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Nodes, 2)
	require.Len(t, resp.Edges, 1)
	assert.Equal(t, "queryUser", resp.Edges[0].CalleeName)
	assert.Equal(t, 7, resp.Edges[0].Line)
}
