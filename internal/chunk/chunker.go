package chunk

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
)

// ASTChunker splits source files at semantic boundaries using
// tree-sitter. Output chunks are ordered by start line and, together
// with gap-fill chunks, cover every non-blank line of the file exactly
// once. Nested functions meeting the threshold are emitted as
// additional standalone chunks on top of that partition.
type ASTChunker struct {
	parser      *Parser
	facts       *FactsExtractor
	registry    *LanguageRegistry
	configFiles *ConfigChunker
	opts        Options
}

// NewASTChunker creates a chunker with default options.
func NewASTChunker() *ASTChunker {
	return NewASTChunkerWithOptions(Options{})
}

// NewASTChunkerWithOptions creates a chunker with custom options.
func NewASTChunkerWithOptions(opts Options) *ASTChunker {
	registry := DefaultRegistry()
	return &ASTChunker{
		parser:      NewParserWithRegistry(registry),
		facts:       NewFactsExtractorWithRegistry(registry),
		registry:    registry,
		configFiles: NewConfigChunker(),
		opts:        opts.withDefaults(),
	}
}

// Close releases parser resources.
func (c *ASTChunker) Close() {
	if c.parser != nil {
		c.parser.Close()
	}
}

// Chunk splits a file into semantic chunks.
func (c *ASTChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	// Recognized config files bypass the AST entirely
	if c.configFiles.Match(file.Path) {
		return c.configFiles.Chunk(ctx, file)
	}

	lines := strings.Split(content, "\n")

	config, supported := c.registry.GetByExtension(filepath.Ext(file.Path))
	if !supported {
		return c.chunkByLines(file, lines, ""), nil
	}

	tree, err := c.parser.Parse(ctx, file.Content, config.Name)
	if err != nil {
		// Unparseable input still gets indexed, just without structure
		return c.chunkByLines(file, lines, config.Name), nil
	}

	facts := c.facts.Extract(tree)
	units := c.collectUnits(tree, config)

	if len(units) == 0 {
		return []*Chunk{c.moduleChunk(file, config.Name, lines, facts)}, nil
	}

	// Absorb leading comments before coverage is computed so unit and
	// gap ranges agree. Extension never reaches into the previous unit.
	floor := 1
	for _, u := range units {
		if u.nested {
			continue
		}
		u.startLine = absorbLeadingComments(lines, u.startLine, config.LineCommentPrefix, floor)
		floor = u.endLine + 1
	}

	chunks := c.buildUnitChunks(file, config, lines, units, facts)
	chunks = append(chunks, c.gapChunks(file, config.Name, lines, units, facts)...)

	sortChunks(chunks)

	if len(chunks) == 0 {
		return c.chunkByLines(file, lines, config.Name), nil
	}
	return chunks, nil
}

// unit is one semantic unit discovered during the walk.
type unit struct {
	node      *Node
	ctype     ChunkType
	name      string
	members   []string // direct member unit names, class-like units only
	classLike bool
	nested    bool
	startLine int // extended upward over leading comments
	endLine   int
}

// collectUnits walks the tree top-down. Outer unit nodes become
// top-level units; units nested inside another unit are emitted
// additionally once they meet the nested threshold.
func (c *ASTChunker) collectUnits(tree *Tree, config *LanguageConfig) []*unit {
	var units []*unit
	c.walkUnits(tree.Root, tree.Source, config, false, nil, &units)
	return units
}

func (c *ASTChunker) walkUnits(n *Node, source []byte, config *LanguageConfig, parentIsClass bool, enclosing *unit, out *[]*unit) {
	ctype, isUnit := config.UnitType(n.Type, parentIsClass)
	if !isUnit {
		for _, child := range n.Children {
			c.walkUnits(child, source, config, parentIsClass, enclosing, out)
		}
		return
	}

	name := ExtractName(n, source, config)
	u := &unit{
		node:      n,
		ctype:     ctype,
		name:      name,
		classLike: config.IsClassLike(n.Type),
		startLine: n.StartLine(),
		endLine:   n.EndLine(),
	}

	if enclosing == nil {
		*out = append(*out, u)
	} else {
		if enclosing.classLike && name != "" {
			enclosing.members = append(enclosing.members, name)
		}
		if n.LineCount() >= c.opts.NestedThreshold {
			u.nested = true
			*out = append(*out, u)
		}
	}

	for _, child := range n.Children {
		c.walkUnits(child, source, config, u.classLike, u, out)
	}
}

// buildUnitChunks turns units into chunks, absorbing leading comments
// into each top-level unit's range.
func (c *ASTChunker) buildUnitChunks(file *FileInput, config *LanguageConfig, lines []string, units []*unit, facts *FileFacts) []*Chunk {
	chunks := make([]*Chunk, 0, len(units))

	for _, u := range units {
		symbolNames := make([]string, 0, 1+len(u.members))
		if u.name != "" {
			symbolNames = append(symbolNames, u.name)
		}
		if u.classLike {
			symbolNames = append(symbolNames, u.members...)
		}

		chunks = append(chunks, &Chunk{
			FilePath:    file.Path,
			Language:    config.Name,
			Type:        u.ctype,
			SymbolName:  u.name,
			SymbolNames: symbolNames,
			Imports:     facts.Imports,
			Exports:     facts.Exports,
			StartLine:   u.startLine,
			EndLine:     u.endLine,
			Content:     joinLines(lines, u.startLine, u.endLine),
		})
	}

	return chunks
}

// gapChunks emits chunk_type=other for uncovered regions that contain
// at least one non-blank line. Nested units overlap their parent and do
// not count toward coverage.
func (c *ASTChunker) gapChunks(file *FileInput, language string, lines []string, units []*unit, facts *FileFacts) []*Chunk {
	covered := make([]bool, len(lines)+1)
	for _, u := range units {
		if u.nested {
			continue
		}
		for line := u.startLine; line <= u.endLine && line <= len(lines); line++ {
			covered[line] = true
		}
	}

	var chunks []*Chunk
	line := 1
	for line <= len(lines) {
		if covered[line] {
			line++
			continue
		}
		gapStart := line
		for line <= len(lines) && !covered[line] {
			line++
		}
		gapEnd := line - 1

		// Trim blank edges; skip gaps that are whitespace only
		for gapStart <= gapEnd && strings.TrimSpace(lines[gapStart-1]) == "" {
			gapStart++
		}
		for gapEnd >= gapStart && strings.TrimSpace(lines[gapEnd-1]) == "" {
			gapEnd--
		}
		if gapStart > gapEnd {
			continue
		}

		chunks = append(chunks, &Chunk{
			FilePath:  file.Path,
			Language:  language,
			Type:      ChunkTypeOther,
			Imports:   facts.Imports,
			Exports:   facts.Exports,
			StartLine: gapStart,
			EndLine:   gapEnd,
			Content:   joinLines(lines, gapStart, gapEnd),
		})
	}

	return chunks
}

// moduleChunk wraps a whole file that parsed but yielded no units.
func (c *ASTChunker) moduleChunk(file *FileInput, language string, lines []string, facts *FileFacts) *Chunk {
	return &Chunk{
		FilePath:    file.Path,
		Language:    language,
		Type:        ChunkTypeModule,
		SymbolNames: facts.Symbols,
		Imports:     facts.Imports,
		Exports:     facts.Exports,
		StartLine:   1,
		EndLine:     len(lines),
		Content:     strings.Join(lines, "\n"),
	}
}

// chunkByLines is the fallback for unsupported or unparseable files:
// fixed windows with back-overlap.
func (c *ASTChunker) chunkByLines(file *FileInput, lines []string, language string) []*Chunk {
	var chunks []*Chunk

	for i := 0; i < len(lines); {
		end := i + c.opts.FallbackMaxLines
		if end > len(lines) {
			end = len(lines)
		}

		chunks = append(chunks, &Chunk{
			FilePath:  file.Path,
			Language:  language,
			Type:      ChunkTypeOther,
			StartLine: i + 1,
			EndLine:   end,
			Content:   joinLines(lines, i+1, end),
		})

		if end >= len(lines) {
			break
		}
		i = end - c.opts.FallbackOverlap
		if i < 0 {
			i = 0
		}
	}

	return chunks
}

// absorbLeadingComments extends a unit's start upward over the comment
// block immediately above it, tolerating at most one blank line between
// comment and unit. floor is the first line the extension may reach.
func absorbLeadingComments(lines []string, startLine int, prefix string, floor int) int {
	best := startLine
	blanks := 0

	for i := startLine - 1; i >= floor; i-- {
		text := strings.TrimSpace(lines[i-1])
		if text == "" {
			blanks++
			if blanks > 1 {
				break
			}
			continue
		}
		if isCommentLine(text, prefix) {
			best = i
			blanks = 0
			continue
		}
		break
	}

	return best
}

// isCommentLine recognizes line comments plus the interior lines of
// block comments in slash-comment languages.
func isCommentLine(text, prefix string) bool {
	if strings.HasPrefix(text, prefix) {
		return true
	}
	if prefix == "//" {
		return strings.HasPrefix(text, "/*") ||
			strings.HasPrefix(text, "*") ||
			strings.HasPrefix(text, "*/")
	}
	return false
}

// joinLines returns lines start..end joined, 1-indexed inclusive.
func joinLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// sortChunks orders by start line ascending, then end line.
func sortChunks(chunks []*Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].StartLine != chunks[j].StartLine {
			return chunks[i].StartLine < chunks[j].StartLine
		}
		return chunks[i].EndLine < chunks[j].EndLine
	})
}
