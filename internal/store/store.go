// Package store persists chunks, files, relationship edges, and the
// embedding cache in PostgreSQL with pgvector.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	grapherrors "github.com/Aman-CERP/repograph/internal/errors"
)

// Store provides database access for indexing and retrieval.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database at the given URL.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, grapherrors.StoreError("invalid database URL", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, grapherrors.StoreError("failed to create connection pool", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database connectivity with a short timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// RepoIDFor derives the stable repository identifier from a repo URL:
// the first 16 hex characters of its SHA-256.
func RepoIDFor(repoURL string) string {
	sum := sha256.Sum256([]byte(repoURL))
	return hex.EncodeToString(sum[:])[:16]
}

// ChunkIDFor derives the deterministic chunk id so re-chunking an
// unchanged file converges to the same rows.
func ChunkIDFor(repoID, branch, filePath string, lineStart, lineEnd int) string {
	name := fmt.Sprintf("%s:%s:%s:%d-%d", repoID, branch, filePath, lineStart, lineEnd)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
