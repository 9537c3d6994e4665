package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	grapherrors "github.com/Aman-CERP/repograph/internal/errors"
)

const chunkColumns = `id, repo_id, repo_url, branch, file_path, language, chunk_type,
	symbol_name, symbol_names, imports, exports, line_start, line_end,
	content, content_hash, metadata`

// ReplaceFileChunks upserts the file row, deletes the file's existing
// chunks, and inserts the new ones in a single transaction. Chunk
// deletion cascades to relationships.
func (s *Store) ReplaceFileChunks(ctx context.Context, file FileRecord, chunks []ChunkRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return grapherrors.StoreError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO files (repo_id, branch, path, repo_url, language, size, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (repo_id, branch, path) DO UPDATE SET
			repo_url = EXCLUDED.repo_url,
			language = EXCLUDED.language,
			size = EXCLUDED.size,
			last_modified = EXCLUDED.last_modified`,
		file.RepoID, file.Branch, file.Path, file.RepoURL, file.Language, file.Size, file.LastModified)
	if err != nil {
		return grapherrors.StoreError("upsert file", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM chunks WHERE repo_id = $1 AND branch = $2 AND file_path = $3`,
		file.RepoID, file.Branch, file.Path)
	if err != nil {
		return grapherrors.StoreError("delete stale chunks", err)
	}

	for _, c := range chunks {
		_, err = tx.Exec(ctx, `
			INSERT INTO chunks (`+chunkColumns+`, embedding)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			c.ID, c.RepoID, c.RepoURL, c.Branch, c.FilePath, c.Language, c.ChunkType,
			c.SymbolName, c.SymbolNames, c.Imports, c.Exports, c.LineStart, c.LineEnd,
			c.Content, c.ContentHash, c.Metadata, pgvector.NewVector(c.Embedding))
		if err != nil {
			return grapherrors.StoreError("insert chunk", err).
				WithDetail("file", c.FilePath).
				WithDetail("chunk_id", c.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return grapherrors.StoreError("commit file chunks", err)
	}
	return nil
}

// DeleteFiles removes files, their chunks, and file-import edges that
// touch them on either side. Returns the number of chunks deleted.
func (s *Store) DeleteFiles(ctx context.Context, repoID, branch string, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, grapherrors.StoreError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`DELETE FROM chunks WHERE repo_id = $1 AND branch = $2 AND file_path = ANY($3)`,
		repoID, branch, paths)
	if err != nil {
		return 0, grapherrors.StoreError("delete chunks", err)
	}
	deleted := tag.RowsAffected()

	_, err = tx.Exec(ctx, `
		DELETE FROM file_imports
		WHERE repo_id = $1 AND branch = $2
		  AND (source_file = ANY($3) OR target_file = ANY($3))`,
		repoID, branch, paths)
	if err != nil {
		return 0, grapherrors.StoreError("delete file imports", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM files WHERE repo_id = $1 AND branch = $2 AND path = ANY($3)`,
		repoID, branch, paths)
	if err != nil {
		return 0, grapherrors.StoreError("delete files", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, grapherrors.StoreError("commit file deletion", err)
	}
	return deleted, nil
}

// DeleteRepoBranch removes everything indexed for a repo. An empty
// branch removes all branches. Returns the number of chunks deleted.
func (s *Store) DeleteRepoBranch(ctx context.Context, repoID, branch string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, grapherrors.StoreError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	branchClause := ``
	args := []any{repoID}
	if branch != "" {
		branchClause = ` AND branch = $2`
		args = append(args, branch)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM chunks WHERE repo_id = $1`+branchClause, args...)
	if err != nil {
		return 0, grapherrors.StoreError("delete chunks", err)
	}
	deleted := tag.RowsAffected()

	if _, err := tx.Exec(ctx, `DELETE FROM file_imports WHERE repo_id = $1`+branchClause, args...); err != nil {
		return 0, grapherrors.StoreError("delete file imports", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM files WHERE repo_id = $1`+branchClause, args...); err != nil {
		return 0, grapherrors.StoreError("delete files", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, grapherrors.StoreError("commit repo deletion", err)
	}
	return deleted, nil
}

// ListChunks returns every chunk for a repo/branch without embeddings.
// Used by the graph builders, which need symbols, imports, exports,
// and content.
func (s *Store) ListChunks(ctx context.Context, repoID, branch string) ([]ChunkRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks
		WHERE repo_id = $1 AND branch = $2
		ORDER BY file_path, line_start`,
		repoID, branch)
	if err != nil {
		return nil, grapherrors.StoreError("list chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ChunksBySymbol returns chunks whose symbol_names contains the symbol.
func (s *Store) ChunksBySymbol(ctx context.Context, repoID, branch, symbol string, limit int) ([]ChunkRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks
		WHERE repo_id = $1 AND branch = $2 AND symbol_names @> ARRAY[$3]::text[]
		ORDER BY file_path, line_start
		LIMIT $4`,
		repoID, branch, symbol, limit)
	if err != nil {
		return nil, grapherrors.StoreError("query chunks by symbol", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ChunksByExport returns chunks whose exports contains the symbol.
func (s *Store) ChunksByExport(ctx context.Context, repoID, branch, symbol string, limit int) ([]ChunkRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks
		WHERE repo_id = $1 AND branch = $2 AND exports @> ARRAY[$3]::text[]
		ORDER BY file_path, line_start
		LIMIT $4`,
		repoID, branch, symbol, limit)
	if err != nil {
		return nil, grapherrors.StoreError("query chunks by export", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// GetChunks returns the chunks with the given ids.
func (s *Store) GetChunks(ctx context.Context, ids []string) ([]ChunkRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks
		WHERE id = ANY($1::uuid[])`,
		ids)
	if err != nil {
		return nil, grapherrors.StoreError("get chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// Stats returns chunk/file counts and breakdowns for a repo/branch.
func (s *Store) Stats(ctx context.Context, repoID, branch string) (*RepoStats, error) {
	stats := &RepoStats{
		RepoID:     repoID,
		Branch:     branch,
		Languages:  map[string]int{},
		ChunkTypes: map[string]int{},
	}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT file_path), COALESCE(MAX(repo_url), '')
		FROM chunks WHERE repo_id = $1 AND branch = $2`,
		repoID, branch).Scan(&stats.ChunkCount, &stats.FileCount, &stats.RepoURL)
	if err != nil {
		return nil, grapherrors.StoreError("query stats", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT language, COUNT(*) FROM chunks
		WHERE repo_id = $1 AND branch = $2 AND language <> ''
		GROUP BY language`,
		repoID, branch)
	if err != nil {
		return nil, grapherrors.StoreError("query language breakdown", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, grapherrors.StoreError("scan language breakdown", err)
		}
		stats.Languages[lang] = n
	}
	if err := rows.Err(); err != nil {
		return nil, grapherrors.StoreError("read language breakdown", err)
	}

	typeRows, err := s.pool.Query(ctx, `
		SELECT chunk_type, COUNT(*) FROM chunks
		WHERE repo_id = $1 AND branch = $2
		GROUP BY chunk_type`,
		repoID, branch)
	if err != nil {
		return nil, grapherrors.StoreError("query type breakdown", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var t string
		var n int
		if err := typeRows.Scan(&t, &n); err != nil {
			return nil, grapherrors.StoreError("scan type breakdown", err)
		}
		stats.ChunkTypes[t] = n
	}
	if err := typeRows.Err(); err != nil {
		return nil, grapherrors.StoreError("read type breakdown", err)
	}

	return stats, nil
}

// Repos lists every indexed repository with its branches.
func (s *Store) Repos(ctx context.Context) ([]RepoInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT repo_id,
		       COALESCE(MAX(repo_url), ''),
		       ARRAY_AGG(DISTINCT branch ORDER BY branch),
		       COUNT(*),
		       MAX(created_at)
		FROM chunks
		GROUP BY repo_id
		ORDER BY repo_id`)
	if err != nil {
		return nil, grapherrors.StoreError("list repos", err)
	}
	defer rows.Close()

	var repos []RepoInfo
	for rows.Next() {
		var r RepoInfo
		if err := rows.Scan(&r.RepoID, &r.RepoURL, &r.Branches, &r.ChunkCount, &r.LastIndexed); err != nil {
			return nil, grapherrors.StoreError("scan repo", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// scanChunks reads chunk rows selected with chunkColumns.
func scanChunks(rows pgx.Rows) ([]ChunkRecord, error) {
	var chunks []ChunkRecord
	for rows.Next() {
		var c ChunkRecord
		err := rows.Scan(&c.ID, &c.RepoID, &c.RepoURL, &c.Branch, &c.FilePath, &c.Language,
			&c.ChunkType, &c.SymbolName, &c.SymbolNames, &c.Imports, &c.Exports,
			&c.LineStart, &c.LineEnd, &c.Content, &c.ContentHash, &c.Metadata)
		if err != nil {
			return nil, grapherrors.StoreError("scan chunk", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
