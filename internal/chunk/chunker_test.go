package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkFile(t *testing.T, path, content string, opts Options) []*Chunk {
	t.Helper()
	c := NewASTChunkerWithOptions(opts)
	defer c.Close()

	chunks, err := c.Chunk(context.Background(), &FileInput{Path: path, Content: []byte(content)})
	require.NoError(t, err)
	return chunks
}

func TestChunk_EmptyFile(t *testing.T) {
	assert.Empty(t, chunkFile(t, "empty.go", "", Options{}))
	assert.Empty(t, chunkFile(t, "blank.go", "\n\n   \n\t\n", Options{}))
}

func TestChunk_GoFunctions(t *testing.T) {
	source := `package main

import "fmt"

// greet prints a greeting.
func greet(name string) {
	fmt.Println("hello", name)
}

func main() {
	greet("world")
}
`
	chunks := chunkFile(t, "main.go", source, Options{})
	require.NotEmpty(t, chunks)

	var greet *Chunk
	for _, ch := range chunks {
		if ch.SymbolName == "greet" {
			greet = ch
		}
	}
	require.NotNil(t, greet, "greet chunk missing")

	assert.Equal(t, ChunkTypeFunction, greet.Type)
	assert.Contains(t, greet.Content, "// greet prints a greeting.")
	assert.Contains(t, greet.SymbolNames, "greet")
	assert.Contains(t, greet.Imports, "fmt")

	// The package clause and import land in a gap chunk
	var other *Chunk
	for _, ch := range chunks {
		if ch.Type == ChunkTypeOther {
			other = ch
			break
		}
	}
	require.NotNil(t, other)
	assert.Contains(t, other.Content, "package main")
}

func TestChunk_TypeScriptClassWithMethods(t *testing.T) {
	source := `class S {
  helper() { return 1; }
  public doWork() { return this.helper(); }
}
`
	chunks := chunkFile(t, "svc.ts", source, Options{})
	require.Len(t, chunks, 1)

	cls := chunks[0]
	assert.Equal(t, ChunkTypeClass, cls.Type)
	assert.Equal(t, "S", cls.SymbolName)
	assert.Subset(t, cls.SymbolNames, []string{"S", "helper", "doWork"})
	assert.Equal(t, 1, cls.StartLine)
}

func TestChunk_CoverageIsExact(t *testing.T) {
	source := `import { x } from "./x.js";

// top comment
function a() {
  return x;
}

const helper = 1;

function b() {
  return helper;
}
`
	chunks := chunkFile(t, "mod.ts", source, Options{})
	require.NotEmpty(t, chunks)

	lines := strings.Split(source, "\n")
	counts := make([]int, len(lines)+1)
	for _, ch := range chunks {
		for l := ch.StartLine; l <= ch.EndLine; l++ {
			counts[l]++
		}
	}

	for i := 1; i <= len(lines); i++ {
		if strings.TrimSpace(lines[i-1]) == "" {
			continue
		}
		assert.Equal(t, 1, counts[i], "line %d covered %d times", i, counts[i])
	}

	// Reassembling by line range reproduces the non-blank lines in order
	var rebuilt []string
	for _, ch := range chunks {
		rebuilt = append(rebuilt, strings.Split(ch.Content, "\n")...)
	}
	var wantLines []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			wantLines = append(wantLines, l)
		}
	}
	var gotLines []string
	for _, l := range rebuilt {
		if strings.TrimSpace(l) != "" {
			gotLines = append(gotLines, l)
		}
	}
	assert.Equal(t, wantLines, gotLines)
}

func TestChunk_GapChunksCarryImports(t *testing.T) {
	source := `import os

CONSTANT = 1

def f():
    return CONSTANT
`
	chunks := chunkFile(t, "mod.py", source, Options{})
	require.NotEmpty(t, chunks)

	var gap *Chunk
	for _, ch := range chunks {
		if ch.Type == ChunkTypeOther {
			gap = ch
			break
		}
	}
	require.NotNil(t, gap, "expected a gap chunk for module-level code")
	assert.Contains(t, gap.Imports, "os")
}

func TestChunk_NestedFunctionThreshold(t *testing.T) {
	buildNested := func(innerLines int) string {
		var sb strings.Builder
		sb.WriteString("def outer():\n")
		sb.WriteString("    def inner():\n")
		for i := 0; i < innerLines-1; i++ {
			sb.WriteString("        x = 1\n")
		}
		sb.WriteString("    return inner\n")
		return sb.String()
	}

	const threshold = 10

	// Inner spans threshold-1 lines: inlined only
	chunks := chunkFile(t, "small.py", buildNested(threshold-1), Options{NestedThreshold: threshold})
	names := symbolNamesOf(chunks)
	assert.NotContains(t, names, "inner")

	// Inner spans >= threshold lines: emitted additionally
	chunks = chunkFile(t, "big.py", buildNested(threshold), Options{NestedThreshold: threshold})
	names = symbolNamesOf(chunks)
	assert.Contains(t, names, "inner")
	assert.Contains(t, names, "outer")
}

func symbolNamesOf(chunks []*Chunk) []string {
	var names []string
	for _, ch := range chunks {
		names = append(names, ch.SymbolName)
	}
	return names
}

func TestChunk_NoUnitsBecomesModule(t *testing.T) {
	source := `import sys

VALUE = 42
OTHER = "text"
`
	chunks := chunkFile(t, "consts.py", source, Options{})
	require.Len(t, chunks, 1)
	assert.Equal(t, ChunkTypeModule, chunks[0].Type)
	assert.Contains(t, chunks[0].Imports, "sys")
	assert.Equal(t, 1, chunks[0].StartLine)
}

func TestChunk_UnsupportedExtensionFallsBack(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 120; i++ {
		sb.WriteString("line of text\n")
	}

	chunks := chunkFile(t, "notes.txt", sb.String(), Options{FallbackMaxLines: 50, FallbackOverlap: 10})
	require.True(t, len(chunks) >= 2, "expected windowed chunks, got %d", len(chunks))

	first, second := chunks[0], chunks[1]
	assert.Equal(t, ChunkTypeOther, first.Type)
	assert.Equal(t, 1, first.StartLine)
	assert.Equal(t, 50, first.EndLine)
	// Back-overlap of 10 lines
	assert.Equal(t, 41, second.StartLine)
}

func TestChunk_GoMethodOutsideClassIsFunction(t *testing.T) {
	source := `package geo

type Pt struct{ X int }

func (p Pt) Norm() int {
	return p.X
}
`
	chunks := chunkFile(t, "pt.go", source, Options{})

	var norm *Chunk
	for _, ch := range chunks {
		if ch.SymbolName == "Norm" {
			norm = ch
		}
	}
	require.NotNil(t, norm)
	assert.Equal(t, ChunkTypeFunction, norm.Type)
}

func TestChunk_SortedByStartLine(t *testing.T) {
	source := `def a():
    pass

def b():
    pass

def c():
    pass
`
	chunks := chunkFile(t, "abc.py", source, Options{})
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i-1].StartLine, chunks[i].StartLine)
	}
}

func TestChunk_CommentAbsorptionToleratesOneBlankLine(t *testing.T) {
	source := `# explains f

def f():
    pass
`
	chunks := chunkFile(t, "doc.py", source, Options{})
	require.NotEmpty(t, chunks)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Contains(t, chunks[0].Content, "# explains f")
}
