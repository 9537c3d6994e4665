package chunk

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser wraps tree-sitter for AST parsing. A parser instance is not
// safe for concurrent use; each worker owns its own.
type Parser struct {
	parser   *sitter.Parser
	registry *LanguageRegistry
}

// NewParser creates a new parser with the default language registry.
func NewParser() *Parser {
	return NewParserWithRegistry(DefaultRegistry())
}

// NewParserWithRegistry creates a new parser with a custom language registry.
func NewParserWithRegistry(registry *LanguageRegistry) *Parser {
	return &Parser{
		parser:   sitter.NewParser(),
		registry: registry,
	}
}

// Parse parses source code and returns the AST. A tree containing
// parse errors is still returned; chunking proceeds on the recovered
// structure.
func (p *Parser) Parse(ctx context.Context, source []byte, language string) (*Tree, error) {
	tsLang, ok := p.registry.GetTreeSitterLanguage(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}

	p.parser.SetLanguage(tsLang)

	tsTree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}
	if tsTree == nil {
		return nil, fmt.Errorf("failed to parse source: nil tree")
	}

	return &Tree{
		Root:     convertNode(tsTree.RootNode()),
		Source:   source,
		Language: language,
	}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// convertNode copies a tree-sitter node into our own tree so the rest
// of the package never touches CGo-backed memory.
func convertNode(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}

	node := &Node{
		Type:      tsNode.Type(),
		StartByte: tsNode.StartByte(),
		EndByte:   tsNode.EndByte(),
		StartPoint: Point{
			Row:    tsNode.StartPoint().Row,
			Column: tsNode.StartPoint().Column,
		},
		EndPoint: Point{
			Row:    tsNode.EndPoint().Row,
			Column: tsNode.EndPoint().Column,
		},
		HasError: tsNode.HasError(),
		Children: make([]*Node, 0, int(tsNode.ChildCount())),
	}

	for i := uint32(0); i < tsNode.ChildCount(); i++ {
		if child := tsNode.Child(int(i)); child != nil {
			node.Children = append(node.Children, convertNode(child))
		}
	}

	return node
}

// Text returns the source content for a node.
func (n *Node) Text(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// StartLine returns the 1-indexed first line of the node.
func (n *Node) StartLine() int {
	return int(n.StartPoint.Row) + 1
}

// EndLine returns the 1-indexed last line of the node.
func (n *Node) EndLine() int {
	return int(n.EndPoint.Row) + 1
}

// LineCount returns the number of source lines the node spans.
func (n *Node) LineCount() int {
	return n.EndLine() - n.StartLine() + 1
}

// ChildOfType finds the first direct child with the given type.
func (n *Node) ChildOfType(nodeType string) *Node {
	for _, child := range n.Children {
		if child.Type == nodeType {
			return child
		}
	}
	return nil
}

// ChildOfTypes finds the first direct child whose type is in types,
// searching one level of grandchildren when no direct child matches.
// Grammars frequently wrap the identifier (Go's type_spec, JS's
// variable_declarator), so one extra level covers the common shapes.
func (n *Node) ChildOfTypes(types []string) *Node {
	for _, child := range n.Children {
		if contains(types, child.Type) {
			return child
		}
	}
	for _, child := range n.Children {
		for _, grandchild := range child.Children {
			if contains(types, grandchild.Type) {
				return grandchild
			}
		}
	}
	return nil
}

// Walk traverses the tree depth-first and calls fn for each node.
// Returning false from fn prunes the subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}
