package graph

import (
	"regexp"
	"sync"

	"github.com/Aman-CERP/repograph/internal/store"
)

// minReferenceSymbolLength filters short, noisy identifiers out of the
// textual reference pass.
const minReferenceSymbolLength = 3

// RelationshipOptions controls the chunk-level relationship pass.
type RelationshipOptions struct {
	// EnableReferenceEdges turns the textual reference heuristic on.
	// Import edges are always emitted.
	EnableReferenceEdges bool
}

// DefaultRelationshipOptions enables both edge kinds.
func DefaultRelationshipOptions() RelationshipOptions {
	return RelationshipOptions{EnableReferenceEdges: true}
}

type relationshipKey struct {
	source, target, relType string
}

// BuildRelationships derives chunk-to-chunk imports and references
// edges from the stored chunk facts.
func BuildRelationships(chunks []store.ChunkRecord, opts RelationshipOptions) []store.Relationship {
	seen := make(map[relationshipKey]bool)
	var edges []store.Relationship

	add := func(source, target, relType string, metadata map[string]any) bool {
		if source == target {
			return false
		}
		key := relationshipKey{source, target, relType}
		if seen[key] {
			return false
		}
		seen[key] = true
		edges = append(edges, store.Relationship{
			SourceChunkID: source,
			TargetChunkID: target,
			Type:          relType,
			Metadata:      metadata,
		})
		return true
	}

	// Exported symbol -> exporting chunks
	exporters := make(map[string][]int)
	for i, c := range chunks {
		for _, sym := range c.Exports {
			exporters[sym] = append(exporters[sym], i)
		}
	}

	for i, importer := range chunks {
		for _, sym := range importer.Imports {
			for _, j := range exporters[sym] {
				if j == i {
					continue
				}
				add(importer.ID, chunks[j].ID, store.RelationImports,
					map[string]any{"imported_symbol": sym})
			}
		}
	}

	if opts.EnableReferenceEdges {
		for i, defining := range chunks {
			for _, sym := range defining.SymbolNames {
				if len(sym) < minReferenceSymbolLength {
					continue
				}
				pattern := symbolUsePattern(sym)
				for j, using := range chunks {
					if j == i {
						continue
					}
					if seen[relationshipKey{using.ID, defining.ID, store.RelationImports}] {
						continue
					}
					if !pattern.MatchString(using.Content) {
						continue
					}
					add(using.ID, defining.ID, store.RelationReferences,
						map[string]any{"symbol": sym})
				}
			}
		}
	}

	return edges
}

var (
	symbolPatternMu    sync.Mutex
	symbolPatternCache = map[string]*regexp.Regexp{}
)

// symbolUsePattern matches a whole-word occurrence of the symbol
// followed by a call, member access, or whitespace.
func symbolUsePattern(sym string) *regexp.Regexp {
	symbolPatternMu.Lock()
	defer symbolPatternMu.Unlock()
	if re, ok := symbolPatternCache[sym]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(sym) + `[\s(.]`)
	symbolPatternCache[sym] = re
	return re
}
