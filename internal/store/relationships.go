package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	grapherrors "github.com/Aman-CERP/repograph/internal/errors"
)

// pgForeignKeyViolation is the SQLSTATE for a missing edge endpoint.
const pgForeignKeyViolation = "23503"

// InsertRelationships writes chunk-to-chunk edges. Duplicate edges are
// ignored; edges whose endpoints were deleted by a concurrent run are
// dropped silently. Returns the number of edges inserted.
func (s *Store) InsertRelationships(ctx context.Context, edges []Relationship) (int, error) {
	inserted := 0
	for _, e := range edges {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO relationships (source_chunk_id, target_chunk_id, relationship_type, metadata)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (source_chunk_id, target_chunk_id, relationship_type) DO NOTHING`,
			e.SourceChunkID, e.TargetChunkID, e.Type, e.Metadata)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				continue // endpoint deleted since the edge was computed
			}
			return inserted, grapherrors.StoreError("insert relationship", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// DeleteRelationships removes all edges of the given types whose
// source chunk belongs to the repo/branch. Graph builders call this
// before re-inserting so each build is idempotent.
func (s *Store) DeleteRelationships(ctx context.Context, repoID, branch string, types ...string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM relationships r
		USING chunks c
		WHERE r.source_chunk_id = c.id
		  AND c.repo_id = $1 AND c.branch = $2
		  AND r.relationship_type = ANY($3)`,
		repoID, branch, types)
	if err != nil {
		return grapherrors.StoreError("delete relationships", err)
	}
	return nil
}

// EdgesInto returns edges of the given types pointing at any of the
// chunk ids.
func (s *Store) EdgesInto(ctx context.Context, chunkIDs []string, types []string) ([]Relationship, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT source_chunk_id, target_chunk_id, relationship_type, metadata
		FROM relationships
		WHERE target_chunk_id = ANY($1::uuid[]) AND relationship_type = ANY($2)`,
		chunkIDs, types)
	if err != nil {
		return nil, grapherrors.StoreError("query incoming edges", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

// EdgesFrom returns edges of the given types leaving any of the chunk
// ids.
func (s *Store) EdgesFrom(ctx context.Context, chunkIDs []string, types []string) ([]Relationship, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT source_chunk_id, target_chunk_id, relationship_type, metadata
		FROM relationships
		WHERE source_chunk_id = ANY($1::uuid[]) AND relationship_type = ANY($2)`,
		chunkIDs, types)
	if err != nil {
		return nil, grapherrors.StoreError("query outgoing edges", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

// CallEdges returns every calls edge for a repo/branch. The call-graph
// BFS walks these in memory.
func (s *Store) CallEdges(ctx context.Context, repoID, branch string) ([]Relationship, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.source_chunk_id, r.target_chunk_id, r.relationship_type, r.metadata
		FROM relationships r
		JOIN chunks c ON c.id = r.source_chunk_id
		WHERE c.repo_id = $1 AND c.branch = $2 AND r.relationship_type = $3`,
		repoID, branch, RelationCalls)
	if err != nil {
		return nil, grapherrors.StoreError("query call edges", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

func scanRelationships(rows pgx.Rows) ([]Relationship, error) {
	var edges []Relationship
	for rows.Next() {
		var e Relationship
		if err := rows.Scan(&e.SourceChunkID, &e.TargetChunkID, &e.Type, &e.Metadata); err != nil {
			return nil, grapherrors.StoreError("scan relationship", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ReplaceFileImports rebuilds the file-import edge set for a
// repo/branch in one transaction.
func (s *Store) ReplaceFileImports(ctx context.Context, repoID, branch string, edges []FileImport) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return grapherrors.StoreError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`DELETE FROM file_imports WHERE repo_id = $1 AND branch = $2`,
		repoID, branch)
	if err != nil {
		return grapherrors.StoreError("delete file imports", err)
	}

	for _, e := range edges {
		_, err = tx.Exec(ctx, `
			INSERT INTO file_imports (source_file, target_file, repo_id, branch, import_type, imported_symbols)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (source_file, target_file, repo_id, branch) DO UPDATE SET
				import_type = EXCLUDED.import_type,
				imported_symbols = EXCLUDED.imported_symbols`,
			e.SourceFile, e.TargetFile, repoID, branch, e.ImportType, e.ImportedSymbols)
		if err != nil {
			return grapherrors.StoreError("insert file import", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return grapherrors.StoreError("commit file imports", err)
	}
	return nil
}

// ListFileImports returns every file-import edge for a repo/branch.
func (s *Store) ListFileImports(ctx context.Context, repoID, branch string) ([]FileImport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source_file, target_file, repo_id, branch, import_type, imported_symbols
		FROM file_imports
		WHERE repo_id = $1 AND branch = $2
		ORDER BY source_file, target_file`,
		repoID, branch)
	if err != nil {
		return nil, grapherrors.StoreError("list file imports", err)
	}
	defer rows.Close()

	var edges []FileImport
	for rows.Next() {
		var e FileImport
		if err := rows.Scan(&e.SourceFile, &e.TargetFile, &e.RepoID, &e.Branch, &e.ImportType, &e.ImportedSymbols); err != nil {
			return nil, grapherrors.StoreError("scan file import", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
