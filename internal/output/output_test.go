package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Status("→", "indexing repo")
	assert.Equal(t, "→ indexing repo\n", buf.String())
}

func TestStatus_NoIcon(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Status("", "detail line")
	assert.Equal(t, "   detail line\n", buf.String())
}

func TestSuccessWarningError(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Successf("indexed %d files", 12)
	w.Warning("embedder unreachable")
	w.Error("store failure")

	out := buf.String()
	assert.Contains(t, out, "✅ indexed 12 files")
	assert.Contains(t, out, "embedder unreachable")
	assert.Contains(t, out, "❌ store failure")
}
