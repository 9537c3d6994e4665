package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/repograph/internal/store"
)

func TestTokenizeCode(t *testing.T) {
	assert.Equal(t, []string{"get", "user", "by", "id"}, TokenizeCode("getUserById"))
	assert.Equal(t, []string{"http", "handler"}, TokenizeCode("HTTPHandler"))
	assert.Equal(t, []string{"parse", "http", "request"}, TokenizeCode("parseHTTPRequest"))
	assert.Equal(t, []string{"my", "snake", "var"}, TokenizeCode("my_snake_var"))
	assert.Empty(t, TokenizeCode("a b"), "single-char tokens are filtered")
}

func TestExpandQuery(t *testing.T) {
	assert.Equal(t, "(getusername|get|user|name|get_user_name)",
		ExpandQuery("getUserName"))

	assert.Equal(t, "(auth_token|auth|token|authtoken)", ExpandQuery("auth_token"))

	// Two tokens OR-join across groups
	assert.Equal(t, "(parse) | (json)", ExpandQuery("parse json"))

	// Punctuation is stripped before expansion
	assert.Equal(t, "(validate)", ExpandQuery("validate()"))

	assert.Equal(t, "", ExpandQuery("   "))
	assert.Equal(t, "", ExpandQuery("!!!"))
}

func TestApplyBoosts(t *testing.T) {
	hits := []store.SearchHit{
		{Chunk: store.ChunkRecord{ID: "plain"}, Score: 1.0},
		{Chunk: store.ChunkRecord{ID: "exact", SymbolNames: []string{"getUserName"}}, Score: 0.5},
		{Chunk: store.ChunkRecord{ID: "variant", SymbolNames: []string{"user"}}, Score: 0.6},
	}

	out := ApplyBoosts(hits, "getUserName", 3.0)

	require.Len(t, out, 3)
	assert.Equal(t, "exact", out[0].Chunk.ID)
	assert.Equal(t, BoostExact, out[0].Boost)
	assert.InDelta(t, 0.5, out[0].RawScore, 1e-9)
	assert.InDelta(t, 1.5, out[0].Score, 1e-9)
	assert.Equal(t, "variant", out[1].Chunk.ID)
	assert.Equal(t, BoostVariant, out[1].Boost)
	assert.InDelta(t, 0.6*2.1, out[1].Score, 1e-9)
	assert.Equal(t, "plain", out[2].Chunk.ID)
	assert.Equal(t, BoostNone, out[2].Boost)
	assert.InDelta(t, 1.0, out[2].Score, 1e-9)
}

func TestExtractQuotedPhrases(t *testing.T) {
	phrases, dequoted := ExtractQuotedPhrases(`find "token refresh" logic`)
	assert.Equal(t, []string{"token refresh"}, phrases)
	assert.Equal(t, "find token refresh logic", dequoted)

	phrases, dequoted = ExtractQuotedPhrases(`'auth flow' and "rate limit"`)
	assert.Equal(t, []string{"auth flow", "rate limit"}, phrases)
	assert.Equal(t, "auth flow and rate limit", dequoted)

	// Unbalanced quote stays literal
	phrases, dequoted = ExtractQuotedPhrases(`what"s this`)
	assert.Empty(t, phrases)
	assert.Equal(t, `what"s this`, dequoted)

	phrases, _ = ExtractQuotedPhrases("no quotes at all")
	assert.Empty(t, phrases)
}

type fakeStore struct {
	vectorHits   []store.SearchHit
	keywordHits  []store.SearchHit
	lastTsquery  string
	vectorLimit  int
	keywordLimit int
}

func (f *fakeStore) VectorSearch(_ context.Context, _ []float32, _, _ string, limit int) ([]store.SearchHit, error) {
	f.vectorLimit = limit
	return f.vectorHits, nil
}

func (f *fakeStore) KeywordSearch(_ context.Context, tsquery, _, _ string, limit int) ([]store.SearchHit, error) {
	f.lastTsquery = tsquery
	f.keywordLimit = limit
	return f.keywordHits, nil
}

type fakeEmbedder struct {
	lastText string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.lastText = text
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := f.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                  { return 3 }
func (f *fakeEmbedder) ModelName() string                { return "fake" }
func (f *fakeEmbedder) Available(context.Context) bool   { return true }
func (f *fakeEmbedder) Close() error                     { return nil }

func hit(id string, score float64) store.SearchHit {
	return store.SearchHit{Chunk: store.ChunkRecord{ID: id}, Score: score}
}

func TestHybrid_FusesBothRankings(t *testing.T) {
	st := &fakeStore{
		vectorHits:  []store.SearchHit{hit("a", 0.9), hit("b", 0.8), hit("c", 0.7)},
		keywordHits: []store.SearchHit{hit("b", 2.0), hit("d", 1.0)},
	}
	s := New(st, &fakeEmbedder{})

	res, err := s.Hybrid(context.Background(), "rate limiter", Options{Limit: 3})
	require.NoError(t, err)
	require.False(t, res.FallbackUsed)
	require.Len(t, res.Hits, 3)

	// b appears in both rankings and wins
	assert.Equal(t, "b", res.Hits[0].Chunk.ID)
	assert.Equal(t, 2, res.Hits[0].VectorRank)
	assert.Equal(t, 1, res.Hits[0].KeywordRank)
	assert.ElementsMatch(t, []string{"vector", "keyword"}, res.Hits[0].Sources)
	assert.Equal(t, "a", res.Hits[1].Chunk.ID)

	// Both sides are over-fetched relative to the limit
	assert.Equal(t, 6, st.vectorLimit)
	assert.Equal(t, 6, st.keywordLimit)
}

func TestHybrid_RRFScores(t *testing.T) {
	st := &fakeStore{
		vectorHits:  []store.SearchHit{hit("a", 0.9)},
		keywordHits: []store.SearchHit{hit("a", 2.0)},
	}
	s := New(st, &fakeEmbedder{})

	res, err := s.Hybrid(context.Background(), "q", Options{Limit: 5})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.InDelta(t, 0.6/61.0+0.4/61.0, res.Hits[0].RRFScore, 1e-9)
}

func TestHybrid_VectorFallback(t *testing.T) {
	st := &fakeStore{
		vectorHits: []store.SearchHit{hit("a", 0.9), hit("b", 0.8)},
	}
	s := New(st, &fakeEmbedder{})

	res, err := s.Hybrid(context.Background(), "no keyword matches", Options{Limit: 1})
	require.NoError(t, err)
	assert.True(t, res.FallbackUsed)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "a", res.Hits[0].Chunk.ID)
	assert.Equal(t, 1, res.Hits[0].VectorRank)
	assert.Equal(t, []string{"vector"}, res.Hits[0].Sources)
}

func TestHybrid_FallbackDisabled(t *testing.T) {
	st := &fakeStore{
		vectorHits: []store.SearchHit{hit("a", 0.9)},
	}
	s := New(st, &fakeEmbedder{})

	res, err := s.Hybrid(context.Background(), "q", Options{Limit: 5, DisableFallback: true})
	require.NoError(t, err)
	assert.False(t, res.FallbackUsed)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "a", res.Hits[0].Chunk.ID)
}

func TestHybrid_QuotedPhraseSteersKeywordSide(t *testing.T) {
	st := &fakeStore{
		vectorHits:  []store.SearchHit{hit("a", 0.9)},
		keywordHits: []store.SearchHit{hit("a", 1.0)},
	}
	emb := &fakeEmbedder{}
	s := New(st, emb)

	_, err := s.Hybrid(context.Background(), `where is "tokenRefresh" handled`, Options{Limit: 5})
	require.NoError(t, err)

	// Keyword side sees only the quoted phrase; vector side the full
	// de-quoted text
	assert.Contains(t, st.lastTsquery, "tokenrefresh")
	assert.NotContains(t, st.lastTsquery, "handled")
	assert.Equal(t, "where is tokenRefresh handled", emb.lastText)
}

func TestSearcher_EmptyQuery(t *testing.T) {
	s := New(&fakeStore{}, &fakeEmbedder{})

	_, err := s.Semantic(context.Background(), "  ", Options{})
	assert.Error(t, err)
	_, err = s.Keyword(context.Background(), "", Options{})
	assert.Error(t, err)
	_, err = s.Hybrid(context.Background(), "", Options{})
	assert.Error(t, err)
}

func TestKeyword_AppliesBoostAndTruncates(t *testing.T) {
	st := &fakeStore{
		keywordHits: []store.SearchHit{
			{Chunk: store.ChunkRecord{ID: "low", SymbolNames: []string{"getUserName"}}, Score: 0.4},
			hit("high", 1.0),
		},
	}
	s := New(st, &fakeEmbedder{})

	hits, err := s.Keyword(context.Background(), "getUserName", Options{Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	// The exact symbol match overtakes the raw-score leader
	assert.Equal(t, "low", hits[0].Chunk.ID)
}
