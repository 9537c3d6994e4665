package chunk

import "context"

// Chunking defaults. The nested threshold is the line count at which a
// function nested inside another unit is emitted as its own chunk; the
// fallback values drive line-window chunking when AST parsing yields
// nothing usable.
const (
	DefaultNestedThreshold  = 50
	DefaultFallbackMaxLines = 500
	DefaultFallbackOverlap  = 50
)

// ChunkType classifies what a chunk covers.
type ChunkType string

const (
	ChunkTypeFunction  ChunkType = "function"
	ChunkTypeClass     ChunkType = "class"
	ChunkTypeMethod    ChunkType = "method"
	ChunkTypeInterface ChunkType = "interface"
	ChunkTypeModule    ChunkType = "module"
	ChunkTypeConfig    ChunkType = "config"
	ChunkTypeOther     ChunkType = "other"
)

// Chunk is a contiguous line range of a file associated with a semantic
// unit, a module-level gap, or a whole config file. Lines are 1-indexed
// inclusive.
type Chunk struct {
	FilePath    string
	Language    string
	Type        ChunkType
	SymbolName  string   // declared identifier, empty for gaps
	SymbolNames []string // own name plus direct method names for class-like units
	Imports     []string
	Exports     []string
	StartLine   int
	EndLine     int
	Content     string
	Metadata    map[string]any // typed config-file metadata only
}

// FileInput is the input for chunking a single file.
type FileInput struct {
	Path    string // relative to the repository root
	Content []byte
}

// Chunker splits files into chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
}

// Options tune the AST chunker.
type Options struct {
	NestedThreshold  int
	FallbackMaxLines int
	FallbackOverlap  int
}

func (o Options) withDefaults() Options {
	if o.NestedThreshold == 0 {
		o.NestedThreshold = DefaultNestedThreshold
	}
	if o.FallbackMaxLines == 0 {
		o.FallbackMaxLines = DefaultFallbackMaxLines
	}
	if o.FallbackOverlap == 0 {
		o.FallbackOverlap = DefaultFallbackOverlap
	}
	return o
}

// FileFacts are the per-file results of the symbol/import/export pass.
// Order follows declaration order; duplicates are removed.
type FileFacts struct {
	Symbols        []string
	Imports        []string
	DynamicImports []string
	Exports        []string
}

// CallSite is one call expression found inside a chunk's line range.
type CallSite struct {
	Callee    string
	Receiver  string // empty for plain calls
	IsMethod  bool
	IsDynamic bool
	Line      int // 1-indexed
}

// Tree represents a parsed AST.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node represents a node in the AST.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point represents a position in the source code.
type Point struct {
	Row    uint32 // 0-indexed line number
	Column uint32
}

// LanguageConfig holds the node-kind vocabulary for one grammar.
// Components never hardcode grammar knowledge; new languages register
// an entry here and everything downstream picks them up.
type LanguageConfig struct {
	Name       string
	Extensions []string

	// Node kinds that open semantic units.
	FunctionTypes  []string
	ClassTypes     []string
	MethodTypes    []string
	InterfaceTypes []string

	// Node kinds carrying imports and exports.
	ImportTypes []string
	ExportTypes []string

	// Node kinds that may carry the declared identifier.
	NameNodeTypes []string

	// Line comment prefix used for leading-comment absorption.
	LineCommentPrefix string
}
