package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepoIDFor(t *testing.T) {
	id := RepoIDFor("https://github.com/acme/widgets")

	assert.Len(t, id, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", id)
	assert.Equal(t, id, RepoIDFor("https://github.com/acme/widgets"))
	assert.NotEqual(t, id, RepoIDFor("https://github.com/acme/other"))
}

func TestChunkIDFor_Deterministic(t *testing.T) {
	a := ChunkIDFor("abc123", "main", "src/a.ts", 1, 40)
	b := ChunkIDFor("abc123", "main", "src/a.ts", 1, 40)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, ChunkIDFor("abc123", "main", "src/a.ts", 2, 40))
	assert.NotEqual(t, a, ChunkIDFor("abc123", "dev", "src/a.ts", 1, 40))
	assert.NotEqual(t, a, ChunkIDFor("other", "main", "src/a.ts", 1, 40))

	// Valid UUID shape
	assert.Regexp(t, "^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$", a)
}

func TestRepoFilter(t *testing.T) {
	where, args := repoFilter("", "", 2)
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, args)

	where, args = repoFilter("abc", "", 2)
	assert.Equal(t, "TRUE AND repo_id = $2", where)
	assert.Equal(t, []any{"abc"}, args)

	where, args = repoFilter("abc", "main", 2)
	assert.Equal(t, "TRUE AND repo_id = $2 AND branch = $3", where)
	assert.Equal(t, []any{"abc", "main"}, args)
}
