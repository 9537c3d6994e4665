package chunk

import (
	"strings"
)

// FactsExtractor runs the per-file symbol/import/export pass over a
// parsed tree.
type FactsExtractor struct {
	registry *LanguageRegistry
}

// NewFactsExtractor creates an extractor with the default registry.
func NewFactsExtractor() *FactsExtractor {
	return NewFactsExtractorWithRegistry(DefaultRegistry())
}

// NewFactsExtractorWithRegistry creates an extractor with a custom registry.
func NewFactsExtractorWithRegistry(registry *LanguageRegistry) *FactsExtractor {
	return &FactsExtractor{registry: registry}
}

// Extract traverses the tree once and collects declared symbols,
// imported module paths, and exported names in declaration order.
func (e *FactsExtractor) Extract(tree *Tree) *FileFacts {
	facts := &FileFacts{}
	if tree == nil || tree.Root == nil {
		return facts
	}

	config, ok := e.registry.GetByName(tree.Language)
	if !ok {
		return facts
	}

	symbols := newOrderedSet()
	imports := newOrderedSet()
	dynamic := newOrderedSet()
	exports := newOrderedSet()

	tree.Root.Walk(func(n *Node) bool {
		if config.IsUnitType(n.Type) {
			if name := ExtractName(n, tree.Source, config); name != "" {
				symbols.add(name)
			}
		}

		if contains(config.ImportTypes, n.Type) {
			for _, imp := range e.importPaths(n, tree.Source, tree.Language) {
				imports.add(imp)
			}
		}

		if contains(config.ExportTypes, n.Type) {
			for _, name := range e.exportNames(n, tree.Source) {
				exports.add(name)
			}
		}

		switch tree.Language {
		case "javascript", "jsx", "typescript", "tsx":
			if target, ok := dynamicImportTarget(n, tree.Source); ok {
				dynamic.add(target)
			}
		case "python":
			if names, ok := pythonAllAssignment(n, tree.Source); ok {
				for _, name := range names {
					exports.add(name)
				}
			}
		case "ruby":
			if target, ok := rubyRequireTarget(n, tree.Source); ok {
				imports.add(target)
			}
		}

		return true
	})

	facts.Symbols = symbols.values
	facts.Imports = imports.values
	facts.DynamicImports = dynamic.values
	facts.Exports = exports.values
	return facts
}

// ExtractName returns the declared identifier of a unit node, or ""
// when the node is anonymous.
func ExtractName(n *Node, source []byte, config *LanguageConfig) string {
	if name := n.ChildOfTypes(config.NameNodeTypes); name != nil {
		return name.Text(source)
	}
	return ""
}

// importPaths extracts the imported module strings from one import node.
func (e *FactsExtractor) importPaths(n *Node, source []byte, language string) []string {
	switch language {
	case "go":
		// Each quoted path in the import group
		var paths []string
		n.Walk(func(child *Node) bool {
			if child.Type == "interpreted_string_literal" || child.Type == "raw_string_literal" {
				paths = append(paths, stripQuotes(child.Text(source)))
			}
			return true
		})
		return paths

	case "javascript", "jsx", "typescript", "tsx":
		if str := n.ChildOfType("string"); str != nil {
			return []string{stripQuotes(str.Text(source))}
		}
		return nil

	case "python":
		return pythonImportPaths(n, source)

	case "rust":
		// The use path up to the first brace
		text := strings.TrimSuffix(strings.TrimSpace(n.Text(source)), ";")
		text = strings.TrimPrefix(text, "pub ")
		text = strings.TrimPrefix(text, "use ")
		if idx := strings.Index(text, "{"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "::")
		if text == "" {
			return nil
		}
		return []string{text}

	case "java":
		text := strings.TrimSuffix(strings.TrimSpace(n.Text(source)), ";")
		text = strings.TrimPrefix(text, "import ")
		text = strings.TrimPrefix(text, "static ")
		return []string{strings.TrimSpace(text)}

	case "c", "cpp":
		if str := n.ChildOfType("string_literal"); str != nil {
			return []string{stripQuotes(str.Text(source))}
		}
		if sys := n.ChildOfType("system_lib_string"); sys != nil {
			return []string{strings.Trim(sys.Text(source), "<>")}
		}
		return nil

	case "csharp":
		text := strings.TrimSuffix(strings.TrimSpace(n.Text(source)), ";")
		text = strings.TrimPrefix(text, "global ")
		text = strings.TrimPrefix(text, "using ")
		text = strings.TrimPrefix(text, "static ")
		return []string{strings.TrimSpace(text)}

	case "php":
		text := strings.TrimSuffix(strings.TrimSpace(n.Text(source)), ";")
		text = strings.TrimPrefix(text, "use ")
		return []string{strings.TrimSpace(text)}

	case "kotlin", "scala", "swift":
		text := strings.TrimSuffix(strings.TrimSpace(n.Text(source)), ";")
		text = strings.TrimPrefix(text, "import ")
		return []string{strings.TrimSpace(text)}
	}

	return nil
}

// pythonImportPaths handles both import forms. "from X import a, b"
// yields X; "import a.b, c" yields a.b and c.
func pythonImportPaths(n *Node, source []byte) []string {
	if n.Type == "import_from_statement" {
		for _, child := range n.Children {
			if child.Type == "dotted_name" || child.Type == "relative_import" {
				return []string{child.Text(source)}
			}
		}
		return nil
	}

	var paths []string
	for _, child := range n.Children {
		switch child.Type {
		case "dotted_name":
			paths = append(paths, child.Text(source))
		case "aliased_import":
			if name := child.ChildOfType("dotted_name"); name != nil {
				paths = append(paths, name.Text(source))
			}
		}
	}
	return paths
}

// exportNames extracts names from a JS/TS export statement.
// Wildcard re-exports are recorded verbatim as "* from <module>".
func (e *FactsExtractor) exportNames(n *Node, source []byte) []string {
	text := n.Text(source)
	if strings.Contains(text, "export *") {
		if str := n.ChildOfType("string"); str != nil {
			return []string{"* from " + stripQuotes(str.Text(source))}
		}
		return nil
	}

	var names []string

	if clause := n.ChildOfType("export_clause"); clause != nil {
		for _, spec := range clause.Children {
			if spec.Type != "export_specifier" {
				continue
			}
			// "a as b" exports b; otherwise the bare identifier
			last := ""
			for _, part := range spec.Children {
				if part.Type == "identifier" {
					last = part.Text(source)
				}
			}
			if last != "" {
				names = append(names, last)
			}
		}
		return names
	}

	// export [default] <declaration>
	for _, child := range n.Children {
		switch child.Type {
		case "function_declaration", "generator_function_declaration",
			"class_declaration", "abstract_class_declaration",
			"interface_declaration", "enum_declaration",
			"type_alias_declaration", "lexical_declaration", "variable_declaration":
			if name := child.ChildOfTypes(genericNameTypes); name != nil {
				names = append(names, name.Text(source))
			}
		case "identifier":
			names = append(names, child.Text(source))
		}
	}

	if len(names) == 0 && strings.Contains(text, "export default") {
		names = append(names, "default")
	}

	return names
}

// dynamicImportTarget matches import("...") call expressions.
func dynamicImportTarget(n *Node, source []byte) (string, bool) {
	if n.Type != "call_expression" || len(n.Children) < 2 {
		return "", false
	}
	fn := n.Children[0]
	if fn.Type != "import" {
		return "", false
	}
	args := n.ChildOfType("arguments")
	if args == nil {
		return "", false
	}
	if str := args.ChildOfType("string"); str != nil {
		return stripQuotes(str.Text(source)), true
	}
	return "", false
}

// pythonAllAssignment matches __all__ = [...] and returns the listed names.
func pythonAllAssignment(n *Node, source []byte) ([]string, bool) {
	if n.Type != "assignment" || len(n.Children) == 0 {
		return nil, false
	}
	left := n.Children[0]
	if left.Type != "identifier" || left.Text(source) != "__all__" {
		return nil, false
	}

	list := n.ChildOfType("list")
	if list == nil {
		return nil, false
	}

	var names []string
	for _, item := range list.Children {
		if item.Type == "string" {
			names = append(names, stripQuotes(item.Text(source)))
		}
	}
	return names, true
}

// rubyRequireTarget matches require/require_relative call arguments.
func rubyRequireTarget(n *Node, source []byte) (string, bool) {
	if n.Type != "call" || len(n.Children) == 0 {
		return "", false
	}
	method := n.Children[0]
	if method.Type != "identifier" {
		return "", false
	}
	name := method.Text(source)
	if name != "require" && name != "require_relative" {
		return "", false
	}

	var target string
	n.Walk(func(child *Node) bool {
		if target == "" && (child.Type == "string_content") {
			target = child.Text(source)
			return false
		}
		return true
	})
	if target == "" {
		return "", false
	}
	return target, true
}

// stripQuotes removes one layer of surrounding quotes.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') ||
			(s[0] == '`' && s[len(s)-1] == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// orderedSet deduplicates while preserving first-seen order.
type orderedSet struct {
	seen   map[string]bool
	values []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (s *orderedSet) add(v string) {
	if v == "" || s.seen[v] {
		return
	}
	s.seen[v] = true
	s.values = append(s.values, v)
}
