package graph

import (
	"sort"

	"github.com/Aman-CERP/repograph/internal/chunk"
	"github.com/Aman-CERP/repograph/internal/store"
)

// builtinCallees are runtime and standard-library names that would
// otherwise flood the call graph with unresolvable edges.
var builtinCallees = map[string]bool{
	"console": true, "Math": true, "JSON": true, "Object": true,
	"Array": true, "Promise": true, "window": true, "document": true,
	"process": true, "log": true, "print": true, "len": true,
	"range": true, "super": true, "require": true, "setTimeout": true,
	"setInterval": true, "parseInt": true, "parseFloat": true,
	"isNaN": true, "String": true, "Number": true, "Boolean": true,
	"Symbol": true, "fmt": true, "errors": true,
}

type callEdgeKey struct {
	source, target, callee string
}

// BuildCallEdges resolves extracted call sites to the chunks defining
// their callees. Call sites are grouped per file and assigned to the
// innermost chunk covering their line.
func BuildCallEdges(chunks []store.ChunkRecord, callSitesByFile map[string][]chunk.CallSite) []store.Relationship {
	chunksByFile := make(map[string][]int)
	for i, c := range chunks {
		chunksByFile[c.FilePath] = append(chunksByFile[c.FilePath], i)
	}

	// Symbol name -> defining chunk indexes, held in deterministic
	// order for tie-breaking.
	symbolIndex := make(map[string][]int)
	for i, c := range chunks {
		for _, sym := range c.SymbolNames {
			symbolIndex[sym] = append(symbolIndex[sym], i)
		}
	}
	for sym := range symbolIndex {
		idxs := symbolIndex[sym]
		sort.Slice(idxs, func(a, b int) bool {
			return chunks[idxs[a]].ID < chunks[idxs[b]].ID
		})
	}

	seen := make(map[callEdgeKey]bool)
	var edges []store.Relationship

	for filePath, sites := range callSitesByFile {
		fileChunks := chunksByFile[filePath]
		if len(fileChunks) == 0 {
			continue
		}

		for _, site := range sites {
			if site.IsDynamic || site.Callee == chunk.CalleeAnonymous {
				continue
			}
			if builtinCallees[site.Callee] || builtinCallees[site.Receiver] {
				continue
			}

			sourceIdx := innermostChunkAt(chunks, fileChunks, site.Line)
			if sourceIdx < 0 {
				continue
			}
			targetIdx := resolveCallee(chunks, symbolIndex, filePath, site)
			if targetIdx < 0 || targetIdx == sourceIdx {
				continue
			}

			source := chunks[sourceIdx].ID
			target := chunks[targetIdx].ID
			key := callEdgeKey{source, target, site.Callee}
			if seen[key] {
				continue
			}
			seen[key] = true

			metadata := map[string]any{
				"callee_name": site.Callee,
				"line":        site.Line,
			}
			if site.Receiver != "" {
				metadata["receiver"] = site.Receiver
			}
			edges = append(edges, store.Relationship{
				SourceChunkID: source,
				TargetChunkID: target,
				Type:          store.RelationCalls,
				Metadata:      metadata,
			})
		}
	}

	sort.Slice(edges, func(a, b int) bool {
		if edges[a].SourceChunkID != edges[b].SourceChunkID {
			return edges[a].SourceChunkID < edges[b].SourceChunkID
		}
		if edges[a].TargetChunkID != edges[b].TargetChunkID {
			return edges[a].TargetChunkID < edges[b].TargetChunkID
		}
		return edges[a].Metadata["callee_name"].(string) < edges[b].Metadata["callee_name"].(string)
	})
	return edges
}

// innermostChunkAt picks the covering chunk with the greatest start
// line, so a nested chunk wins over the enclosing unit.
func innermostChunkAt(chunks []store.ChunkRecord, fileChunks []int, line int) int {
	best := -1
	for _, i := range fileChunks {
		c := chunks[i]
		if line < c.LineStart || line > c.LineEnd {
			continue
		}
		if best < 0 || c.LineStart > chunks[best].LineStart ||
			(c.LineStart == chunks[best].LineStart && c.LineEnd < chunks[best].LineEnd) {
			best = i
		}
	}
	return best
}

// resolveCallee maps a call site to the defining chunk index, or -1.
//
// Resolution order: this/self receivers bind within the same file; a
// named receiver requires a chunk declaring both receiver and callee;
// plain calls prefer same-file definitions before falling back to the
// repo-wide symbol index. Remaining ties break on sorted chunk id.
func resolveCallee(chunks []store.ChunkRecord, symbolIndex map[string][]int, filePath string, site chunk.CallSite) int {
	candidates := symbolIndex[site.Callee]
	if len(candidates) == 0 {
		return -1
	}

	switch {
	case site.Receiver == "this" || site.Receiver == "self":
		return firstInFile(chunks, candidates, filePath)

	case site.Receiver != "":
		var withReceiver []int
		for _, i := range candidates {
			if containsSymbol(chunks[i].SymbolNames, site.Receiver) {
				withReceiver = append(withReceiver, i)
			}
		}
		if len(withReceiver) == 0 {
			return -1
		}
		if idx := firstInFile(chunks, withReceiver, filePath); idx >= 0 {
			return idx
		}
		return withReceiver[0]

	default:
		if idx := firstInFile(chunks, candidates, filePath); idx >= 0 {
			return idx
		}
		return candidates[0]
	}
}

func firstInFile(chunks []store.ChunkRecord, candidates []int, filePath string) int {
	for _, i := range candidates {
		if chunks[i].FilePath == filePath {
			return i
		}
	}
	return -1
}

func containsSymbol(names []string, sym string) bool {
	for _, n := range names {
		if n == sym {
			return true
		}
	}
	return false
}
