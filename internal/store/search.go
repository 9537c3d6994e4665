package store

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	grapherrors "github.com/Aman-CERP/repograph/internal/errors"
)

// VectorSearch returns the chunks nearest to the query embedding by
// cosine similarity. Score is 1 - cosine distance.
func (s *Store) VectorSearch(ctx context.Context, embedding []float32, repoID, branch string, limit int) ([]SearchHit, error) {
	vec := pgvector.NewVector(embedding)

	where, args := repoFilter(repoID, branch, 2)
	args = append([]any{vec}, args...)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, `
		SELECT `+chunkColumns+`, 1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE `+where+`
		ORDER BY embedding <=> $1
		LIMIT $`+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return nil, grapherrors.StoreError("vector search", err)
	}
	defer rows.Close()
	return scanHits(rows)
}

// KeywordSearch ranks chunks against a tsquery expression with
// cover-density ranking. Normalization flag 1 divides the rank by
// 1 + log(document length).
func (s *Store) KeywordSearch(ctx context.Context, tsquery, repoID, branch string, limit int) ([]SearchHit, error) {
	where, args := repoFilter(repoID, branch, 2)
	args = append([]any{tsquery}, args...)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, `
		SELECT `+chunkColumns+`,
		       ts_rank_cd(full_text_index, to_tsquery('english', $1), 1) AS score
		FROM chunks
		WHERE `+where+`
		  AND full_text_index @@ to_tsquery('english', $1)
		ORDER BY score DESC, id ASC
		LIMIT $`+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return nil, grapherrors.StoreError("keyword search", err)
	}
	defer rows.Close()
	return scanHits(rows)
}

// repoFilter builds the optional repo/branch WHERE clause starting at
// the given placeholder index.
func repoFilter(repoID, branch string, next int) (string, []any) {
	where := "TRUE"
	var args []any
	if repoID != "" {
		where += " AND repo_id = $" + strconv.Itoa(next)
		args = append(args, repoID)
		next++
	}
	if branch != "" {
		where += " AND branch = $" + strconv.Itoa(next)
		args = append(args, branch)
	}
	return where, args
}

func scanHits(rows pgx.Rows) ([]SearchHit, error) {
	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		c := &h.Chunk
		err := rows.Scan(&c.ID, &c.RepoID, &c.RepoURL, &c.Branch, &c.FilePath, &c.Language,
			&c.ChunkType, &c.SymbolName, &c.SymbolNames, &c.Imports, &c.Exports,
			&c.LineStart, &c.LineEnd, &c.Content, &c.ContentHash, &c.Metadata,
			&h.Score)
		if err != nil {
			return nil, grapherrors.StoreError("scan search hit", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

