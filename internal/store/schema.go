package store

import (
	"context"

	grapherrors "github.com/Aman-CERP/repograph/internal/errors"
)

// EmbeddingDim is the fixed width of stored embeddings. Model output
// shorter than this is zero-padded before the write.
const EmbeddingDim = 1536

const schemaDDL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS files (
  repo_id       TEXT NOT NULL,
  branch        TEXT NOT NULL,
  path          TEXT NOT NULL,
  repo_url      TEXT NOT NULL DEFAULT '',
  language      TEXT NOT NULL DEFAULT '',
  size          BIGINT NOT NULL DEFAULT 0,
  last_modified TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (repo_id, branch, path)
);

CREATE INDEX IF NOT EXISTS files_repo_branch_idx
  ON files (repo_id, branch);

CREATE TABLE IF NOT EXISTS chunks (
  id              UUID PRIMARY KEY,
  repo_id         TEXT NOT NULL,
  repo_url        TEXT NOT NULL DEFAULT '',
  branch          TEXT NOT NULL,
  file_path       TEXT NOT NULL,
  language        TEXT NOT NULL DEFAULT '',
  chunk_type      TEXT NOT NULL,
  symbol_name     TEXT NOT NULL DEFAULT '',
  symbol_names    TEXT[] NOT NULL DEFAULT '{}',
  imports         TEXT[] NOT NULL DEFAULT '{}',
  exports         TEXT[] NOT NULL DEFAULT '{}',
  line_start      INT NOT NULL,
  line_end        INT NOT NULL,
  content         TEXT NOT NULL,
  content_hash    TEXT NOT NULL,
  embedding       vector(1536) NOT NULL,
  metadata        JSONB NOT NULL DEFAULT '{}',
  full_text_index tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  CHECK (line_start <= line_end)
);

CREATE INDEX IF NOT EXISTS chunks_repo_branch_idx
  ON chunks (repo_id, branch);
CREATE INDEX IF NOT EXISTS chunks_file_idx
  ON chunks (repo_id, branch, file_path);
CREATE INDEX IF NOT EXISTS chunks_hash_idx
  ON chunks (content_hash);
CREATE INDEX IF NOT EXISTS chunks_symbol_names_gin
  ON chunks USING GIN (symbol_names);
CREATE INDEX IF NOT EXISTS chunks_fts_gin
  ON chunks USING GIN (full_text_index);
CREATE INDEX IF NOT EXISTS chunks_embedding_idx
  ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);

CREATE TABLE IF NOT EXISTS relationships (
  source_chunk_id   UUID NOT NULL REFERENCES chunks(id) ON DELETE CASCADE,
  target_chunk_id   UUID NOT NULL REFERENCES chunks(id) ON DELETE CASCADE,
  relationship_type TEXT NOT NULL,
  metadata          JSONB NOT NULL DEFAULT '{}',
  PRIMARY KEY (source_chunk_id, target_chunk_id, relationship_type),
  CHECK (source_chunk_id <> target_chunk_id)
);

CREATE INDEX IF NOT EXISTS relationships_source_type_idx
  ON relationships (source_chunk_id, relationship_type);
CREATE INDEX IF NOT EXISTS relationships_target_type_idx
  ON relationships (target_chunk_id, relationship_type);

CREATE TABLE IF NOT EXISTS file_imports (
  source_file      TEXT NOT NULL,
  target_file      TEXT NOT NULL,
  repo_id          TEXT NOT NULL,
  branch           TEXT NOT NULL,
  import_type      TEXT NOT NULL DEFAULT 'static',
  imported_symbols TEXT[] NOT NULL DEFAULT '{}',
  PRIMARY KEY (source_file, target_file, repo_id, branch)
);

CREATE INDEX IF NOT EXISTS file_imports_repo_branch_idx
  ON file_imports (repo_id, branch);
CREATE INDEX IF NOT EXISTS file_imports_target_idx
  ON file_imports (repo_id, branch, target_file);

CREATE TABLE IF NOT EXISTS embedding_cache (
  content_hash  TEXT NOT NULL,
  model_name    TEXT NOT NULL,
  embedding     vector(1536) NOT NULL,
  embedding_dim INT NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  last_used_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  hit_count     BIGINT NOT NULL DEFAULT 0,
  PRIMARY KEY (content_hash, model_name)
);
`

// Migrate creates the schema. It is idempotent and safe to run on
// every process start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return grapherrors.MigrationError("schema creation failed", err)
	}
	return nil
}
