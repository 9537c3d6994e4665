package index

import (
	"context"
	"os"
	"strings"

	"github.com/Aman-CERP/repograph/internal/chunk"
	"github.com/Aman-CERP/repograph/internal/config"
	"github.com/Aman-CERP/repograph/internal/embed"
	"github.com/Aman-CERP/repograph/internal/graph"
	"github.com/Aman-CERP/repograph/internal/query"
	"github.com/Aman-CERP/repograph/internal/scanner"
	"github.com/Aman-CERP/repograph/internal/store"
)

// filePayload is the per-file outcome of the parse pipeline.
type filePayload struct {
	file   scanner.FileInfo
	chunks []*chunk.Chunk
	facts  *chunk.FileFacts
	calls  []chunk.CallSite

	// factsOnly payloads feed the graph builders but are not
	// re-chunked or re-embedded.
	factsOnly bool
}

// fileProcessor holds the per-worker parser state. Tree-sitter parsers
// are not safe for concurrent use, so each worker owns one.
type fileProcessor struct {
	cfg     *config.Config
	ast     *chunk.ASTChunker
	configs *chunk.ConfigChunker
	parser  *chunk.Parser
	facts   *chunk.FactsExtractor
}

func newFileProcessor(cfg *config.Config, configs *chunk.ConfigChunker) *fileProcessor {
	registry := chunk.DefaultRegistry()
	return &fileProcessor{
		cfg: cfg,
		ast: chunk.NewASTChunkerWithOptions(chunk.Options{
			NestedThreshold:  cfg.NestedFunctionThreshold,
			FallbackMaxLines: cfg.FallbackMaxLines,
			FallbackOverlap:  cfg.FallbackOverlapLines,
		}),
		configs: configs,
		parser:  chunk.NewParserWithRegistry(registry),
		facts:   chunk.NewFactsExtractorWithRegistry(registry),
	}
}

func (p *fileProcessor) Close() {
	p.ast.Close()
	p.parser.Close()
}

// Process reads and parses one file. Decode errors are repaired by
// lossy UTF-8 replacement rather than skipping the file.
func (p *fileProcessor) Process(ctx context.Context, fi scanner.FileInfo, factsOnly bool) (*filePayload, error) {
	data, err := os.ReadFile(fi.AbsPath)
	if err != nil {
		return nil, err
	}
	content := []byte(strings.ToValidUTF8(string(data), "�"))
	input := &chunk.FileInput{Path: fi.Path, Content: content}

	payload := &filePayload{file: fi, factsOnly: factsOnly}

	if !factsOnly {
		var chunks []*chunk.Chunk
		if fi.IsConfig {
			chunks, err = p.configs.Chunk(ctx, input)
		} else {
			chunks, err = p.ast.Chunk(ctx, input)
		}
		if err != nil {
			return nil, err
		}
		payload.chunks = chunks
	}

	if !fi.IsConfig && fi.Language != "" {
		// Facts and call sites want the whole-file tree; a grammar
		// miss just leaves them empty.
		if tree, perr := p.parser.Parse(ctx, content, fi.Language); perr == nil {
			payload.facts = p.facts.Extract(tree)
			payload.calls = chunk.ExtractCalls(tree)
		}
	}

	return payload, nil
}

// embedPhase resolves an embedding for every distinct content hash:
// durable cache first, then the embedding service in batches. The
// returned map holds padded vectors; hashes missing from it failed to
// embed and their chunks are not inserted.
func (r *Runner) embedPhase(ctx context.Context, payloads []*filePayload, res *Result) map[string][]float32 {
	textByHash := make(map[string]string)
	var hashes []string
	for _, p := range payloads {
		for _, c := range p.chunks {
			h := embed.HashText(c.Content)
			if _, ok := textByHash[h]; !ok {
				textByHash[h] = c.Content
				hashes = append(hashes, h)
			}
		}
	}
	if len(hashes) == 0 {
		return map[string][]float32{}
	}

	vectors, err := r.db.CacheLookup(ctx, hashes, r.cfg.EmbeddingModel)
	if err != nil {
		r.log.Warn("embedding cache lookup failed", "error", err)
		vectors = map[string][]float32{}
	}
	res.CacheHits += len(vectors)

	var missing []string
	for _, h := range hashes {
		if _, ok := vectors[h]; !ok {
			missing = append(missing, h)
		}
	}
	res.CacheMisses += len(missing)

	batchSize := r.cfg.EmbedBatch
	if batchSize < 1 {
		batchSize = embed.DefaultBatchSize
	}

	var fresh []store.CacheEntry
	for start := 0; start < len(missing); start += batchSize {
		end := min(start+batchSize, len(missing))
		batch := missing[start:end]

		texts := make([]string, len(batch))
		for i, h := range batch {
			texts[i] = textByHash[h]
		}

		embedded, failed := r.embedBatch(ctx, texts)
		res.EmbedFailures += failed
		for i, vec := range embedded {
			if vec == nil {
				continue
			}
			nativeDim := len(vec)
			padded := embed.Pad(vec)
			vectors[batch[i]] = padded
			fresh = append(fresh, store.CacheEntry{
				ContentHash: batch[i],
				Embedding:   padded,
				NativeDim:   nativeDim,
			})
		}
	}

	if len(fresh) > 0 {
		// Cache population is best-effort and off the write path.
		r.cacheWrites.Add(1)
		go func() {
			defer r.cacheWrites.Done()
			if err := r.db.CacheStore(context.WithoutCancel(ctx), fresh, r.cfg.EmbeddingModel); err != nil {
				r.log.Warn("embedding cache store failed", "error", err)
			}
		}()
	}

	return vectors
}

// embedBatch embeds one batch, retrying once at half size on failure.
// The returned slice is index-aligned with texts; nil entries failed.
func (r *Runner) embedBatch(ctx context.Context, texts []string) ([][]float32, int) {
	out, err := r.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(out) == len(texts) {
		return out, 0
	}
	r.log.Warn("embedding batch failed, retrying at half size",
		"batch", len(texts), "error", err)

	results := make([][]float32, len(texts))
	failed := 0
	half := (len(texts) + 1) / 2
	for start := 0; start < len(texts); start += half {
		end := min(start+half, len(texts))
		sub, err := r.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil || len(sub) != end-start {
			r.log.Error("embedding batch failed twice, skipping chunks",
				"batch", end-start, "error", err)
			failed += end - start
			continue
		}
		copy(results[start:end], sub)
	}
	return results, failed
}

// writeChunks upserts each file's chunk set in its own transaction.
// A failed file is logged and counted; later files still run.
func (r *Runner) writeChunks(ctx context.Context, payloads []*filePayload, vectors map[string][]float32, res *Result) {
	for _, p := range payloads {
		if p.factsOnly {
			continue
		}

		records := make([]store.ChunkRecord, 0, len(p.chunks))
		for _, c := range p.chunks {
			hash := embed.HashText(c.Content)
			vec, ok := vectors[hash]
			if !ok {
				continue // embedding failed, chunk is not inserted
			}
			records = append(records, store.ChunkRecord{
				ID:          store.ChunkIDFor(r.repoID, r.cfg.Branch, c.FilePath, c.StartLine, c.EndLine),
				RepoID:      r.repoID,
				RepoURL:     r.cfg.RepoURL,
				Branch:      r.cfg.Branch,
				FilePath:    c.FilePath,
				Language:    c.Language,
				ChunkType:   string(c.Type),
				SymbolName:  c.SymbolName,
				SymbolNames: c.SymbolNames,
				Imports:     c.Imports,
				Exports:     c.Exports,
				LineStart:   c.StartLine,
				LineEnd:     c.EndLine,
				Content:     c.Content,
				ContentHash: hash,
				Embedding:   vec,
				Metadata:    c.Metadata,
			})
		}

		file := store.FileRecord{
			RepoID:       r.repoID,
			Branch:       r.cfg.Branch,
			Path:         p.file.Path,
			RepoURL:      r.cfg.RepoURL,
			Language:     p.file.Language,
			Size:         p.file.Size,
			LastModified: p.file.ModTime,
		}
		if err := r.db.ReplaceFileChunks(ctx, file, records); err != nil {
			r.log.Error("chunk write failed", "path", p.file.Path, "error", err)
			res.failed = true
			res.FilesSkipped++
			continue
		}
		res.persisted = true
		res.FilesProcessed++
		res.ChunksInserted += len(records)
	}
}

// buildGraphs rebuilds the three edge sets for the repo/branch from
// the committed chunk snapshot and this run's parse results.
func (r *Runner) buildGraphs(ctx context.Context, payloads []*filePayload, res *Result) error {
	sourceFiles := make([]graph.SourceFile, 0, len(payloads))
	callsByFile := make(map[string][]chunk.CallSite)
	for _, p := range payloads {
		sf := graph.SourceFile{Path: p.file.Path}
		if p.facts != nil {
			sf.Imports = p.facts.Imports
			sf.DynamicImports = p.facts.DynamicImports
			sf.Exports = p.facts.Exports
		}
		sourceFiles = append(sourceFiles, sf)
		if len(p.calls) > 0 {
			callsByFile[p.file.Path] = p.calls
		}
	}

	importEdges := graph.BuildImportEdges(r.repoID, r.cfg.Branch, sourceFiles)
	if err := r.db.ReplaceFileImports(ctx, r.repoID, r.cfg.Branch, importEdges); err != nil {
		return err
	}
	res.ImportEdges = len(importEdges)
	res.Cycles = len(query.CyclesInEdges(importEdges, query.DefaultMaxCycleLength))
	res.Hubs = len(query.HubsInEdges(importEdges, query.DefaultHubThreshold, 0))

	chunks, err := r.db.ListChunks(ctx, r.repoID, r.cfg.Branch)
	if err != nil {
		return err
	}

	rels := graph.BuildRelationships(chunks, graph.DefaultRelationshipOptions())
	if err := r.db.DeleteRelationships(ctx, r.repoID, r.cfg.Branch,
		store.RelationImports, store.RelationReferences); err != nil {
		return err
	}
	inserted, err := r.db.InsertRelationships(ctx, rels)
	if err != nil {
		return err
	}
	res.RelationshipEdges = inserted

	callEdges := graph.BuildCallEdges(chunks, callsByFile)
	if err := r.db.DeleteRelationships(ctx, r.repoID, r.cfg.Branch, store.RelationCalls); err != nil {
		return err
	}
	insertedCalls, err := r.db.InsertRelationships(ctx, callEdges)
	if err != nil {
		return err
	}
	res.CallEdges = insertedCalls
	return nil
}
