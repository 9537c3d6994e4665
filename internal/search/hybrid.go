package search

import (
	"context"
	"sort"
	"strings"

	"github.com/Aman-CERP/repograph/internal/embed"
	grapherrors "github.com/Aman-CERP/repograph/internal/errors"
	"github.com/Aman-CERP/repograph/internal/store"
)

const (
	// rrfK dampens the rank contribution in reciprocal-rank fusion.
	rrfK = 60

	// DefaultVectorWeight and DefaultKeywordWeight split the fused
	// score between the two rankings.
	DefaultVectorWeight  = 0.6
	DefaultKeywordWeight = 0.4
)

// ChunkSearcher is the store surface the searcher needs.
type ChunkSearcher interface {
	VectorSearch(ctx context.Context, embedding []float32, repoID, branch string, limit int) ([]store.SearchHit, error)
	KeywordSearch(ctx context.Context, tsquery, repoID, branch string, limit int) ([]store.SearchHit, error)
}

// Options tunes one search call. Zero values fall back to defaults.
type Options struct {
	RepoID        string
	Branch        string
	Limit         int
	Boost         float64
	VectorWeight  float64
	KeywordWeight float64
	// DisableFallback keeps hybrid search from degrading to
	// vector-only when the keyword side returns nothing.
	DisableFallback bool
}

// HybridHit is one fused result with its per-ranking breakdown. A rank
// of 0 means the chunk was absent from that ranking.
type HybridHit struct {
	Chunk        store.ChunkRecord `json:"chunk"`
	VectorRank   int               `json:"vector_rank,omitempty"`
	KeywordRank  int               `json:"keyword_rank,omitempty"`
	VectorScore  float64           `json:"vector_score,omitempty"`
	KeywordScore float64           `json:"keyword_score,omitempty"`
	RRFScore     float64           `json:"rrf_score"`
	Sources      []string          `json:"sources"`
}

// Result is a fused result set with fusion diagnostics.
type Result struct {
	Hits         []HybridHit
	FallbackUsed bool
}

// Searcher runs semantic, keyword, and hybrid retrieval.
type Searcher struct {
	store    ChunkSearcher
	embedder embed.Embedder
}

// New creates a searcher over a store and an embedder.
func New(st ChunkSearcher, embedder embed.Embedder) *Searcher {
	return &Searcher{store: st, embedder: embedder}
}

func (o *Options) limit() int {
	if o.Limit <= 0 {
		return 10
	}
	return o.Limit
}

// Semantic embeds the query and ranks chunks by cosine similarity.
func (s *Searcher) Semantic(ctx context.Context, query string, opts Options) ([]store.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, grapherrors.InputError("query must not be empty")
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.store.VectorSearch(ctx, embed.Pad(vec), opts.RepoID, opts.Branch, opts.limit())
}

// Keyword expands the query, ranks by full-text cover density, and
// applies symbol boosts.
func (s *Searcher) Keyword(ctx context.Context, query string, opts Options) ([]BoostedHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, grapherrors.InputError("query must not be empty")
	}
	tsquery := ExpandQuery(query)
	if tsquery == "" {
		return []BoostedHit{}, nil
	}

	limit := opts.limit()
	hits, err := s.store.KeywordSearch(ctx, tsquery, opts.RepoID, opts.Branch, limit*2)
	if err != nil {
		return nil, err
	}
	boosted := ApplyBoosts(hits, query, opts.Boost)
	if len(boosted) > limit {
		boosted = boosted[:limit]
	}
	return boosted, nil
}

// Hybrid fuses the vector and keyword rankings with reciprocal-rank
// fusion. Quoted phrases steer the keyword side; when the keyword side
// is empty the vector ranking is returned directly unless fallback is
// disabled.
func (s *Searcher) Hybrid(ctx context.Context, query string, opts Options) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, grapherrors.InputError("query must not be empty")
	}

	phrases, dequoted := ExtractQuotedPhrases(query)
	vectorQuery := dequoted
	keywordQuery := query
	if len(phrases) > 0 {
		keywordQuery = strings.Join(phrases, " ")
	}

	limit := opts.limit()
	fetch := limit * 2

	vec, err := s.embedder.Embed(ctx, vectorQuery)
	if err != nil {
		return nil, err
	}
	vectorHits, err := s.store.VectorSearch(ctx, embed.Pad(vec), opts.RepoID, opts.Branch, fetch)
	if err != nil {
		return nil, err
	}

	var keywordHits []BoostedHit
	if tsquery := ExpandQuery(keywordQuery); tsquery != "" {
		raw, err := s.store.KeywordSearch(ctx, tsquery, opts.RepoID, opts.Branch, fetch)
		if err != nil {
			return nil, err
		}
		keywordHits = ApplyBoosts(raw, keywordQuery, opts.Boost)
	}

	if len(keywordHits) == 0 && !opts.DisableFallback {
		hits := make([]HybridHit, 0, min(len(vectorHits), limit))
		for i, hit := range vectorHits {
			if i >= limit {
				break
			}
			hits = append(hits, HybridHit{
				Chunk:       hit.Chunk,
				VectorRank:  i + 1,
				VectorScore: hit.Score,
				Sources:     []string{"vector"},
			})
		}
		return &Result{Hits: hits, FallbackUsed: true}, nil
	}

	fused := fuseRankings(vectorHits, keywordHits, opts.VectorWeight, opts.KeywordWeight)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	return &Result{Hits: fused}, nil
}

// fuseRankings computes the weighted RRF score for every chunk seen in
// either ranking and sorts descending, chunk id ascending on ties.
func fuseRankings(vectorHits []store.SearchHit, keywordHits []BoostedHit, vectorWeight, keywordWeight float64) []HybridHit {
	if vectorWeight <= 0 && keywordWeight <= 0 {
		vectorWeight, keywordWeight = DefaultVectorWeight, DefaultKeywordWeight
	}
	total := vectorWeight + keywordWeight
	vectorWeight /= total
	keywordWeight /= total

	merged := make(map[string]*HybridHit)

	for i, hit := range vectorHits {
		merged[hit.Chunk.ID] = &HybridHit{
			Chunk:       hit.Chunk,
			VectorRank:  i + 1,
			VectorScore: hit.Score,
			RRFScore:    vectorWeight / float64(rrfK+i+1),
			Sources:     []string{"vector"},
		}
	}
	for i, hit := range keywordHits {
		contribution := keywordWeight / float64(rrfK+i+1)
		if h, ok := merged[hit.Chunk.ID]; ok {
			h.KeywordRank = i + 1
			h.KeywordScore = hit.Score
			h.RRFScore += contribution
			h.Sources = append(h.Sources, "keyword")
		} else {
			merged[hit.Chunk.ID] = &HybridHit{
				Chunk:        hit.Chunk,
				KeywordRank:  i + 1,
				KeywordScore: hit.Score,
				RRFScore:     contribution,
				Sources:      []string{"keyword"},
			}
		}
	}

	fused := make([]HybridHit, 0, len(merged))
	for _, h := range merged {
		fused = append(fused, *h)
	}
	sort.Slice(fused, func(a, b int) bool {
		if fused[a].RRFScore != fused[b].RRFScore {
			return fused[a].RRFScore > fused[b].RRFScore
		}
		return fused[a].Chunk.ID < fused[b].Chunk.ID
	})
	return fused
}

// ExtractQuotedPhrases pulls double- or single-quoted phrases out of a
// query and returns them with the de-quoted remainder. An unbalanced
// quote is treated as literal text.
func ExtractQuotedPhrases(query string) (phrases []string, dequoted string) {
	var rest strings.Builder
	runes := []rune(query)
	i := 0
	for i < len(runes) {
		r := runes[i]
		if r == '"' || r == '\'' {
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == r {
					end = j
					break
				}
			}
			if end > i {
				phrase := strings.TrimSpace(string(runes[i+1 : end]))
				if phrase != "" {
					phrases = append(phrases, phrase)
					rest.WriteString(phrase)
				}
				i = end + 1
				continue
			}
		}
		rest.WriteRune(r)
		i++
	}
	return phrases, strings.TrimSpace(rest.String())
}
