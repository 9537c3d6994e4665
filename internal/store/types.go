package store

import "time"

// Relationship edge types.
const (
	RelationImports    = "imports"
	RelationReferences = "references"
	RelationCalls      = "calls"
)

// File-import edge types.
const (
	ImportStatic   = "static"
	ImportDynamic  = "dynamic"
	ImportReExport = "re-export"
)

// FileRecord is a row in the files table.
type FileRecord struct {
	RepoID       string
	Branch       string
	Path         string
	RepoURL      string
	Language     string
	Size         int64
	LastModified time.Time
}

// ChunkRecord is a row in the chunks table.
type ChunkRecord struct {
	ID          string
	RepoID      string
	RepoURL     string
	Branch      string
	FilePath    string
	Language    string
	ChunkType   string
	SymbolName  string
	SymbolNames []string
	Imports     []string
	Exports     []string
	LineStart   int
	LineEnd     int
	Content     string
	ContentHash string
	Embedding   []float32
	Metadata    map[string]any
}

// Relationship is a chunk-to-chunk edge.
type Relationship struct {
	SourceChunkID string
	TargetChunkID string
	Type          string
	Metadata      map[string]any
}

// FileImport is a file-to-file import edge.
type FileImport struct {
	SourceFile      string
	TargetFile      string
	RepoID          string
	Branch          string
	ImportType      string
	ImportedSymbols []string
}

// SearchHit is one retrieval result with its backend score.
type SearchHit struct {
	Chunk ChunkRecord
	Score float64
}

// RepoStats summarizes an indexed repo/branch.
type RepoStats struct {
	RepoID     string         `json:"repo_id"`
	RepoURL    string         `json:"repo_url"`
	Branch     string         `json:"branch"`
	FileCount  int            `json:"file_count"`
	ChunkCount int            `json:"chunk_count"`
	Languages  map[string]int `json:"languages"`
	ChunkTypes map[string]int `json:"chunk_types"`
}

// RepoInfo describes one indexed repository.
type RepoInfo struct {
	RepoID      string    `json:"repo_id"`
	RepoURL     string    `json:"repo_url"`
	Branches    []string  `json:"branches"`
	ChunkCount  int       `json:"chunk_count"`
	LastIndexed time.Time `json:"last_indexed"`
}
