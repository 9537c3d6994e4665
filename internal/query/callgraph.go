package query

import (
	"context"
	"sort"

	grapherrors "github.com/Aman-CERP/repograph/internal/errors"
	"github.com/Aman-CERP/repograph/internal/store"
)

const (
	// DefaultCallDepth is the traversal depth when none is given.
	DefaultCallDepth = 2

	// MaxCallDepth caps the traversal depth.
	MaxCallDepth = 5

	// callNodeLimit caps the node count of one call-graph answer.
	callNodeLimit = 100
)

// Call-graph traversal directions.
const (
	DirectionCallers = "callers"
	DirectionCallees = "callees"
	DirectionBoth    = "both"
)

// CallNode is one chunk in a call-graph answer.
type CallNode struct {
	ChunkID    string `json:"chunk_id"`
	FilePath   string `json:"file_path"`
	SymbolName string `json:"symbol_name,omitempty"`
	LineStart  int    `json:"line_start"`
	LineEnd    int    `json:"line_end"`
	Depth      int    `json:"depth"`
}

// CallEdge is one resolved call between two chunks in the answer.
type CallEdge struct {
	SourceChunkID string `json:"source_chunk_id"`
	TargetChunkID string `json:"target_chunk_id"`
	CalleeName    string `json:"callee_name"`
	Line          int    `json:"line,omitempty"`
	Receiver      string `json:"receiver,omitempty"`
}

// CallGraph is the bounded neighborhood of a function in the call
// graph. Truncated reports whether the node limit cut the traversal.
type CallGraph struct {
	Function  string     `json:"function"`
	Direction string     `json:"direction"`
	Depth     int        `json:"depth"`
	Nodes     []CallNode `json:"nodes"`
	Edges     []CallEdge `json:"edges"`
	Truncated bool       `json:"truncated"`
}

// CallGraph walks the stored call edges out from every chunk defining
// the function, in the requested direction, to the requested depth.
func (e *Engine) CallGraph(ctx context.Context, scope Scope, function, direction string, depth int) (*CallGraph, error) {
	if function == "" {
		return nil, grapherrors.InputError("function name must not be empty")
	}
	switch direction {
	case DirectionCallers, DirectionCallees, DirectionBoth:
	case "":
		direction = DirectionBoth
	default:
		return nil, grapherrors.InputError("direction must be callers, callees, or both").
			WithDetail("direction", direction)
	}
	if depth == 0 {
		depth = DefaultCallDepth
	}
	if depth < 1 || depth > MaxCallDepth {
		return nil, grapherrors.InputError("depth out of range").
			WithSuggestion("use a depth between 1 and 5")
	}

	seeds, err := e.store.ChunksBySymbol(ctx, scope.RepoID, scope.Branch, function, symbolLookupLimit)
	if err != nil {
		return nil, err
	}
	result := &CallGraph{Function: function, Direction: direction, Depth: depth}
	if len(seeds) == 0 {
		return result, nil
	}

	edges, err := e.store.CallEdges(ctx, scope.RepoID, scope.Branch)
	if err != nil {
		return nil, err
	}

	outgoing := make(map[string][]store.Relationship)
	incoming := make(map[string][]store.Relationship)
	for _, edge := range edges {
		outgoing[edge.SourceChunkID] = append(outgoing[edge.SourceChunkID], edge)
		incoming[edge.TargetChunkID] = append(incoming[edge.TargetChunkID], edge)
	}

	depthOf := make(map[string]int, len(seeds))
	frontier := make([]string, 0, len(seeds))
	for _, c := range seeds {
		depthOf[c.ID] = 0
		frontier = append(frontier, c.ID)
	}
	sort.Strings(frontier)

	type edgeKey struct{ source, target, callee string }
	keptEdges := make(map[edgeKey]store.Relationship)

	truncated := false
	for level := 1; level <= depth && len(frontier) > 0 && !truncated; level++ {
		var next []string
		for _, id := range frontier {
			var adjacent []store.Relationship
			if direction == DirectionCallees || direction == DirectionBoth {
				adjacent = append(adjacent, outgoing[id]...)
			}
			if direction == DirectionCallers || direction == DirectionBoth {
				adjacent = append(adjacent, incoming[id]...)
			}

			for _, edge := range adjacent {
				other := edge.TargetChunkID
				if other == id {
					other = edge.SourceChunkID
				}
				if _, known := depthOf[other]; !known {
					if len(depthOf) >= callNodeLimit {
						truncated = true
						continue
					}
					depthOf[other] = level
					next = append(next, other)
				}
				callee, _ := edge.Metadata["callee_name"].(string)
				keptEdges[edgeKey{edge.SourceChunkID, edge.TargetChunkID, callee}] = edge
			}
		}
		sort.Strings(next)
		frontier = next
	}

	ids := make([]string, 0, len(depthOf))
	for id := range depthOf {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	chunks, err := e.store.GetChunks(ctx, ids)
	if err != nil {
		return nil, err
	}
	chunkByID := make(map[string]store.ChunkRecord, len(chunks))
	for _, c := range chunks {
		chunkByID[c.ID] = c
	}

	for _, id := range ids {
		c, ok := chunkByID[id]
		if !ok {
			continue
		}
		result.Nodes = append(result.Nodes, CallNode{
			ChunkID:    c.ID,
			FilePath:   c.FilePath,
			SymbolName: c.SymbolName,
			LineStart:  c.LineStart,
			LineEnd:    c.LineEnd,
			Depth:      depthOf[id],
		})
	}

	for key, edge := range keptEdges {
		// Edges between a kept node and a cut-off one are dropped with
		// the node.
		if _, ok := depthOf[edge.SourceChunkID]; !ok {
			continue
		}
		if _, ok := depthOf[edge.TargetChunkID]; !ok {
			continue
		}
		line := 0
		switch v := edge.Metadata["line"].(type) {
		case int:
			line = v
		case float64:
			line = int(v)
		}
		receiver, _ := edge.Metadata["receiver"].(string)
		result.Edges = append(result.Edges, CallEdge{
			SourceChunkID: edge.SourceChunkID,
			TargetChunkID: edge.TargetChunkID,
			CalleeName:    key.callee,
			Line:          line,
			Receiver:      receiver,
		})
	}
	sort.Slice(result.Edges, func(a, b int) bool {
		ea, eb := result.Edges[a], result.Edges[b]
		if ea.SourceChunkID != eb.SourceChunkID {
			return ea.SourceChunkID < eb.SourceChunkID
		}
		if ea.TargetChunkID != eb.TargetChunkID {
			return ea.TargetChunkID < eb.TargetChunkID
		}
		return ea.CalleeName < eb.CalleeName
	})
	result.Truncated = truncated
	return result, nil
}
