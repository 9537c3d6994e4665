package preflight

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeModel struct{ up bool }

func (f fakeModel) ModelName() string              { return "nomic-embed-text" }
func (f fakeModel) Available(context.Context) bool { return f.up }

func TestCheckDatabase(t *testing.T) {
	c := New(fakePinger{}, nil, "")
	res := c.CheckDatabase(context.Background())
	assert.Equal(t, StatusPass, res.Status)
	assert.True(t, res.Required)

	c = New(fakePinger{err: errors.New("refused")}, nil, "")
	res = c.CheckDatabase(context.Background())
	assert.Equal(t, StatusFail, res.Status)
	assert.True(t, res.IsCritical())
}

func TestCheckRepoPath(t *testing.T) {
	c := New(nil, nil, t.TempDir())
	assert.Equal(t, StatusPass, c.CheckRepoPath().Status)

	c = New(nil, nil, "/nonexistent/repo")
	assert.Equal(t, StatusFail, c.CheckRepoPath().Status)
}

func TestCheckEmbedder(t *testing.T) {
	c := New(nil, fakeModel{up: true}, "")
	res := c.CheckEmbedder(context.Background())
	assert.Equal(t, StatusPass, res.Status)
	assert.Equal(t, "nomic-embed-text", res.Message)

	c = New(nil, fakeModel{up: false}, "")
	res = c.CheckEmbedder(context.Background())
	assert.Equal(t, StatusWarn, res.Status)
	assert.False(t, res.IsCritical(), "embedder is not a required check")
}

func TestRunAllAndSummary(t *testing.T) {
	c := New(fakePinger{}, fakeModel{up: true}, t.TempDir())
	results := c.RunAll(context.Background())
	require.NotEmpty(t, results)
	assert.False(t, HasCriticalFailures(results))

	failed := []CheckResult{{Name: "database", Status: StatusFail, Required: true}}
	assert.True(t, HasCriticalFailures(failed))
	assert.Equal(t, "failed", SummaryStatus(failed))

	warned := []CheckResult{
		{Name: "database", Status: StatusPass, Required: true},
		{Name: "embedding_model", Status: StatusWarn},
	}
	assert.Equal(t, "ready_with_warnings", SummaryStatus(warned))
}

func TestFormat(t *testing.T) {
	out := Format([]CheckResult{
		{Name: "database", Status: StatusPass, Message: "connected", Required: true},
	})
	assert.Contains(t, out, "[PASS] database: connected")
	assert.Contains(t, out, "Status: READY")
}
