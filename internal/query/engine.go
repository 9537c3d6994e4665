// Package query answers structural questions over the stored chunk
// and edge sets: definitions, usages, import trees, cycles, hubs, and
// call graphs.
package query

import (
	"context"
	"sort"

	grapherrors "github.com/Aman-CERP/repograph/internal/errors"
	"github.com/Aman-CERP/repograph/internal/store"
)

// symbolLookupLimit bounds how many defining chunks a symbol query
// fans out to.
const symbolLookupLimit = 100

// GraphStore is the store surface the engine reads from.
type GraphStore interface {
	ChunksBySymbol(ctx context.Context, repoID, branch, symbol string, limit int) ([]store.ChunkRecord, error)
	ChunksByExport(ctx context.Context, repoID, branch, symbol string, limit int) ([]store.ChunkRecord, error)
	GetChunks(ctx context.Context, ids []string) ([]store.ChunkRecord, error)
	EdgesInto(ctx context.Context, chunkIDs []string, types []string) ([]store.Relationship, error)
	EdgesFrom(ctx context.Context, chunkIDs []string, types []string) ([]store.Relationship, error)
	CallEdges(ctx context.Context, repoID, branch string) ([]store.Relationship, error)
	ListFileImports(ctx context.Context, repoID, branch string) ([]store.FileImport, error)
}

// Engine runs graph queries against a store.
type Engine struct {
	store GraphStore
}

// New creates a query engine.
func New(st GraphStore) *Engine {
	return &Engine{store: st}
}

// Scope selects the repo and branch a query runs against.
type Scope struct {
	RepoID string
	Branch string
}

// Definition is one chunk defining (or re-exporting) a symbol.
type Definition struct {
	Chunk          store.ChunkRecord `json:"chunk"`
	IsReexport     bool              `json:"is_reexport"`
	ReexportSource string            `json:"reexport_source,omitempty"`
}

// Definitions returns the chunks declaring symbol. With reexports
// enabled, chunks that export the symbol and link to a direct
// definition are appended and marked.
func (e *Engine) Definitions(ctx context.Context, scope Scope, symbol string, includeReexports bool) ([]Definition, error) {
	if symbol == "" {
		return nil, grapherrors.InputError("symbol must not be empty")
	}

	direct, err := e.store.ChunksBySymbol(ctx, scope.RepoID, scope.Branch, symbol, symbolLookupLimit)
	if err != nil {
		return nil, err
	}

	defs := make([]Definition, 0, len(direct))
	directIDs := make(map[string]store.ChunkRecord, len(direct))
	for _, c := range direct {
		defs = append(defs, Definition{Chunk: c})
		directIDs[c.ID] = c
	}

	if !includeReexports {
		return defs, nil
	}

	exporters, err := e.store.ChunksByExport(ctx, scope.RepoID, scope.Branch, symbol, symbolLookupLimit)
	if err != nil {
		return nil, err
	}

	var candidateIDs []string
	candidates := make(map[string]store.ChunkRecord)
	for _, c := range exporters {
		if _, isDirect := directIDs[c.ID]; isDirect {
			continue
		}
		candidateIDs = append(candidateIDs, c.ID)
		candidates[c.ID] = c
	}
	if len(candidateIDs) == 0 {
		return defs, nil
	}

	edges, err := e.store.EdgesFrom(ctx, candidateIDs, []string{store.RelationImports, store.RelationReferences})
	if err != nil {
		return nil, err
	}

	added := make(map[string]bool)
	for _, edge := range edges {
		target, ok := directIDs[edge.TargetChunkID]
		if !ok || added[edge.SourceChunkID] {
			continue
		}
		added[edge.SourceChunkID] = true
		defs = append(defs, Definition{
			Chunk:          candidates[edge.SourceChunkID],
			IsReexport:     true,
			ReexportSource: target.FilePath,
		})
	}

	return defs, nil
}

// Usage is one chunk whose edge targets a definition of the symbol.
type Usage struct {
	Chunk     store.ChunkRecord `json:"chunk"`
	UsageType string            `json:"usage_type"`
	IsDynamic bool              `json:"is_dynamic"`
}

// Usages returns the chunks using a symbol through calls, imports, or
// references edges into its defining chunks.
func (e *Engine) Usages(ctx context.Context, scope Scope, symbol string) ([]Usage, error) {
	if symbol == "" {
		return nil, grapherrors.InputError("symbol must not be empty")
	}

	defining, err := e.store.ChunksBySymbol(ctx, scope.RepoID, scope.Branch, symbol, symbolLookupLimit)
	if err != nil {
		return nil, err
	}
	if len(defining) == 0 {
		return []Usage{}, nil
	}

	definingIDs := make([]string, len(defining))
	for i, c := range defining {
		definingIDs[i] = c.ID
	}

	edges, err := e.store.EdgesInto(ctx, definingIDs,
		[]string{store.RelationCalls, store.RelationImports, store.RelationReferences})
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return []Usage{}, nil
	}

	// One usage per source chunk; calls outrank imports outrank
	// references when a chunk carries several edge kinds.
	rank := map[string]int{
		store.RelationCalls:      0,
		store.RelationImports:    1,
		store.RelationReferences: 2,
	}
	bySource := make(map[string]store.Relationship)
	for _, edge := range edges {
		prev, ok := bySource[edge.SourceChunkID]
		if !ok || rank[edge.Type] < rank[prev.Type] {
			bySource[edge.SourceChunkID] = edge
		}
	}

	sourceIDs := make([]string, 0, len(bySource))
	for id := range bySource {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)

	chunks, err := e.store.GetChunks(ctx, sourceIDs)
	if err != nil {
		return nil, err
	}
	chunkByID := make(map[string]store.ChunkRecord, len(chunks))
	for _, c := range chunks {
		chunkByID[c.ID] = c
	}

	usages := make([]Usage, 0, len(sourceIDs))
	for _, id := range sourceIDs {
		c, ok := chunkByID[id]
		if !ok {
			continue
		}
		edge := bySource[id]
		dynamic, _ := edge.Metadata["is_dynamic"].(bool)
		usages = append(usages, Usage{Chunk: c, UsageType: edge.Type, IsDynamic: dynamic})
	}
	return usages, nil
}
