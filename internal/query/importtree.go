package query

import (
	"context"
	"sort"

	grapherrors "github.com/Aman-CERP/repograph/internal/errors"
	"github.com/Aman-CERP/repograph/internal/store"
)

const (
	// DefaultMaxCycleLength caps cycle detection.
	DefaultMaxCycleLength = 10

	// DefaultHubThreshold is the minimum in-degree for hub files.
	DefaultHubThreshold = 10

	// hubSampleImporters caps the importer sample per hub.
	hubSampleImporters = 10
)

// importAdjacency holds forward and reverse file-import maps.
type importAdjacency struct {
	imports    map[string][]string // file -> files it imports
	importedBy map[string][]string // file -> files importing it
}

func (e *Engine) importGraph(ctx context.Context, scope Scope) (*importAdjacency, error) {
	edges, err := e.store.ListFileImports(ctx, scope.RepoID, scope.Branch)
	if err != nil {
		return nil, err
	}
	return newImportAdjacency(edges), nil
}

func newImportAdjacency(edges []store.FileImport) *importAdjacency {
	adj := &importAdjacency{
		imports:    make(map[string][]string),
		importedBy: make(map[string][]string),
	}
	for _, edge := range edges {
		adj.imports[edge.SourceFile] = append(adj.imports[edge.SourceFile], edge.TargetFile)
		adj.importedBy[edge.TargetFile] = append(adj.importedBy[edge.TargetFile], edge.SourceFile)
	}
	for _, m := range []map[string][]string{adj.imports, adj.importedBy} {
		for k := range m {
			sort.Strings(m[k])
		}
	}
	return adj
}

// ImportTree is the two-level import neighborhood of a file.
type ImportTree struct {
	File               string   `json:"file"`
	Imports            []string `json:"imports"`
	ImportedBy         []string `json:"imported_by"`
	TransitiveImports  []string `json:"transitive_imports"`
	TransitiveImporters []string `json:"transitive_importers"`
}

// ImportTree returns a file's direct imports and importers, plus the
// second level with the file itself and level-1 entries excluded.
func (e *Engine) ImportTree(ctx context.Context, scope Scope, file string) (*ImportTree, error) {
	if file == "" {
		return nil, grapherrors.InputError("file path must not be empty")
	}

	adj, err := e.importGraph(ctx, scope)
	if err != nil {
		return nil, err
	}

	level1Imports := adj.imports[file]
	level1Importers := adj.importedBy[file]

	secondLevel := func(seeds []string, next map[string][]string) []string {
		exclude := map[string]bool{file: true}
		for _, f := range seeds {
			exclude[f] = true
		}
		seen := make(map[string]bool)
		var out []string
		for _, seed := range seeds {
			for _, f := range next[seed] {
				if exclude[f] || seen[f] {
					continue
				}
				seen[f] = true
				out = append(out, f)
			}
		}
		sort.Strings(out)
		return out
	}

	return &ImportTree{
		File:                file,
		Imports:             append([]string{}, level1Imports...),
		ImportedBy:          append([]string{}, level1Importers...),
		TransitiveImports:   secondLevel(level1Imports, adj.imports),
		TransitiveImporters: secondLevel(level1Importers, adj.importedBy),
	}, nil
}

// Cycle is one directed cycle in the import graph.
type Cycle struct {
	Files []string `json:"files"`
	Kind  string   `json:"kind"` // direct or indirect
}

// Cycles finds directed cycles in the import graph up to maxLength
// nodes. Cycles sharing a node set are reported once.
func (e *Engine) Cycles(ctx context.Context, scope Scope, maxLength int) ([]Cycle, error) {
	adj, err := e.importGraph(ctx, scope)
	if err != nil {
		return nil, err
	}
	return findCycles(adj, maxLength), nil
}

// CyclesInEdges runs cycle detection over an in-memory edge set. The
// indexer uses it to count cycles for the run result.
func CyclesInEdges(edges []store.FileImport, maxLength int) []Cycle {
	return findCycles(newImportAdjacency(edges), maxLength)
}

func findCycles(adj *importAdjacency, maxLength int) []Cycle {
	if maxLength <= 0 {
		maxLength = DefaultMaxCycleLength
	}

	nodes := make([]string, 0, len(adj.imports))
	for n := range adj.imports {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	type frame struct {
		node string
		next int
	}

	visited := make(map[string]bool)
	seenSets := make(map[string]bool)
	var cycles []Cycle

	for _, start := range nodes {
		if visited[start] {
			continue
		}

		stack := []frame{{node: start}}
		onStack := map[string]bool{start: true}
		path := []string{start}
		visited[start] = true

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			targets := adj.imports[top.node]

			if top.next >= len(targets) {
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
				delete(onStack, top.node)
				continue
			}

			next := targets[top.next]
			top.next++

			if onStack[next] {
				// Back edge: the cycle runs from next's position in
				// the path through the current node.
				idx := 0
				for i, n := range path {
					if n == next {
						idx = i
						break
					}
				}
				cycleNodes := append([]string{}, path[idx:]...)
				if len(cycleNodes) > maxLength {
					continue
				}
				key := canonicalCycleKey(cycleNodes)
				if seenSets[key] {
					continue
				}
				seenSets[key] = true
				cycles = append(cycles, newCycle(cycleNodes))
				continue
			}

			if visited[next] {
				continue
			}
			visited[next] = true
			onStack[next] = true
			path = append(path, next)
			stack = append(stack, frame{node: next})
		}
	}

	sort.Slice(cycles, func(a, b int) bool {
		if len(cycles[a].Files) != len(cycles[b].Files) {
			return len(cycles[a].Files) < len(cycles[b].Files)
		}
		return cycles[a].Files[0] < cycles[b].Files[0]
	})
	return cycles
}

// canonicalCycleKey identifies a cycle by its unordered node set.
func canonicalCycleKey(nodes []string) string {
	sorted := append([]string{}, nodes...)
	sort.Strings(sorted)
	key := ""
	for _, n := range sorted {
		key += n + "\x00"
	}
	return key
}

// newCycle rotates the cycle to start at its smallest node and tags
// two-node cycles as direct.
func newCycle(nodes []string) Cycle {
	minIdx := 0
	for i, n := range nodes {
		if n < nodes[minIdx] {
			minIdx = i
		}
	}
	rotated := append(append([]string{}, nodes[minIdx:]...), nodes[:minIdx]...)

	kind := "indirect"
	if len(rotated) == 2 {
		kind = "direct"
	}
	return Cycle{Files: rotated, Kind: kind}
}

// HubFile is a file with high importer in-degree.
type HubFile struct {
	File            string   `json:"file"`
	ImporterCount   int      `json:"importer_count"`
	SampleImporters []string `json:"sample_importers"`
}

// Hubs returns files whose in-degree meets the threshold, most
// imported first, with a small importer sample each.
func (e *Engine) Hubs(ctx context.Context, scope Scope, threshold, limit int) ([]HubFile, error) {
	adj, err := e.importGraph(ctx, scope)
	if err != nil {
		return nil, err
	}
	return findHubs(adj, threshold, limit), nil
}

// HubsInEdges runs hub detection over an in-memory edge set.
func HubsInEdges(edges []store.FileImport, threshold, limit int) []HubFile {
	return findHubs(newImportAdjacency(edges), threshold, limit)
}

func findHubs(adj *importAdjacency, threshold, limit int) []HubFile {
	if threshold <= 0 {
		threshold = DefaultHubThreshold
	}

	hubs := make([]HubFile, 0)
	for file, importers := range adj.importedBy {
		if len(importers) < threshold {
			continue
		}
		sample := importers
		if len(sample) > hubSampleImporters {
			sample = sample[:hubSampleImporters]
		}
		hubs = append(hubs, HubFile{
			File:            file,
			ImporterCount:   len(importers),
			SampleImporters: append([]string{}, sample...),
		})
	}

	sort.Slice(hubs, func(a, b int) bool {
		if hubs[a].ImporterCount != hubs[b].ImporterCount {
			return hubs[a].ImporterCount > hubs[b].ImporterCount
		}
		return hubs[a].File < hubs[b].File
	})
	if limit > 0 && len(hubs) > limit {
		hubs = hubs[:limit]
	}
	return hubs
}
