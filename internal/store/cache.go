package store

import (
	"context"

	pgvector "github.com/pgvector/pgvector-go"

	grapherrors "github.com/Aman-CERP/repograph/internal/errors"
)

// CacheEntry is one embedding to persist in the content-addressed
// cache.
type CacheEntry struct {
	ContentHash string
	Embedding   []float32
	NativeDim   int
}

// CacheLookup fetches cached embeddings for the given content hashes
// in a single round trip. Hits atomically bump last_used_at and
// hit_count as part of the read.
func (s *Store) CacheLookup(ctx context.Context, hashes []string, model string) (map[string][]float32, error) {
	if len(hashes) == 0 {
		return map[string][]float32{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		UPDATE embedding_cache
		SET last_used_at = now(), hit_count = hit_count + 1
		WHERE content_hash = ANY($1) AND model_name = $2
		RETURNING content_hash, embedding`,
		hashes, model)
	if err != nil {
		return nil, grapherrors.New(grapherrors.ErrCodeCacheFailure, "cache lookup failed", err)
	}
	defer rows.Close()

	hits := make(map[string][]float32)
	for rows.Next() {
		var hash string
		var vec pgvector.Vector
		if err := rows.Scan(&hash, &vec); err != nil {
			return nil, grapherrors.New(grapherrors.ErrCodeCacheFailure, "cache scan failed", err)
		}
		hits[hash] = vec.Slice()
	}
	return hits, rows.Err()
}

// CacheStore upserts embeddings. A conflicting write behaves as a hit:
// the value is replaced (it is a pure function of content and model)
// and the usage counters advance.
func (s *Store) CacheStore(ctx context.Context, entries []CacheEntry, model string) error {
	for _, e := range entries {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO embedding_cache (content_hash, model_name, embedding, embedding_dim)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (content_hash, model_name) DO UPDATE SET
				embedding = EXCLUDED.embedding,
				embedding_dim = EXCLUDED.embedding_dim,
				last_used_at = now(),
				hit_count = embedding_cache.hit_count + 1`,
			e.ContentHash, model, pgvector.NewVector(e.Embedding), e.NativeDim)
		if err != nil {
			return grapherrors.New(grapherrors.ErrCodeCacheFailure, "cache store failed", err)
		}
	}
	return nil
}
