package chunk

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/scala"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageRegistry manages supported languages and their configurations.
type LanguageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig // keyed by language name
	extToLang   map[string]string          // extension -> language name
	tsLanguages map[string]*sitter.Language
}

// genericNameTypes covers the identifier node kinds across grammars.
var genericNameTypes = []string{
	"identifier", "field_identifier", "type_identifier",
	"property_identifier", "simple_identifier", "constant", "name", "word",
}

// NewLanguageRegistry creates a new registry with default language
// configurations.
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}

	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	r.registerJava()
	r.registerC()
	r.registerCpp()
	r.registerCSharp()
	r.registerRuby()
	r.registerPHP()
	r.registerRust()
	r.registerKotlin()
	r.registerScala()
	r.registerSwift()
	r.registerBash()

	return r
}

// GetByExtension returns the language configuration for a file extension.
func (r *LanguageRegistry) GetByExtension(ext string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	langName, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}

	config, ok := r.configs[langName]
	return config, ok
}

// GetByName returns the language configuration by name.
func (r *LanguageRegistry) GetByName(name string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, ok := r.configs[name]
	return config, ok
}

// GetTreeSitterLanguage returns the tree-sitter language for a language name.
func (r *LanguageRegistry) GetTreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lang, ok := r.tsLanguages[name]
	return lang, ok
}

// SupportedExtensions returns all supported file extensions.
func (r *LanguageRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

// registerLanguage adds a language to the registry.
func (r *LanguageRegistry) registerLanguage(config *LanguageConfig, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(config.NameNodeTypes) == 0 {
		config.NameNodeTypes = genericNameTypes
	}
	if config.LineCommentPrefix == "" {
		config.LineCommentPrefix = "//"
	}

	r.configs[config.Name] = config
	r.tsLanguages[config.Name] = tsLang

	for _, ext := range config.Extensions {
		r.extToLang[ext] = config.Name
	}
}

func (r *LanguageRegistry) registerGo() {
	config := &LanguageConfig{
		Name:          "go",
		Extensions:    []string{".go"},
		FunctionTypes: []string{"function_declaration"},
		MethodTypes:   []string{"method_declaration"},
		// Go structs and interfaces are type declarations
		ClassTypes:  []string{"type_declaration"},
		ImportTypes: []string{"import_declaration"},
	}
	r.registerLanguage(config, golang.GetLanguage())
}

func (r *LanguageRegistry) registerTypeScript() {
	tsConfig := &LanguageConfig{
		Name:       "typescript",
		Extensions: []string{".ts", ".mts"},
		FunctionTypes: []string{
			"function_declaration",
			"generator_function_declaration",
		},
		MethodTypes: []string{"method_definition"},
		ClassTypes: []string{
			"class_declaration",
			"abstract_class_declaration",
			"enum_declaration",
		},
		InterfaceTypes: []string{"interface_declaration"},
		ImportTypes:    []string{"import_statement"},
		ExportTypes:    []string{"export_statement"},
	}
	r.registerLanguage(tsConfig, typescript.GetLanguage())

	tsxConfig := *tsConfig
	tsxConfig.Name = "tsx"
	tsxConfig.Extensions = []string{".tsx"}
	r.registerLanguage(&tsxConfig, tsx.GetLanguage())
}

func (r *LanguageRegistry) registerJavaScript() {
	jsConfig := &LanguageConfig{
		Name:       "javascript",
		Extensions: []string{".js", ".mjs", ".cjs"},
		FunctionTypes: []string{
			"function_declaration",
			"generator_function_declaration",
		},
		MethodTypes: []string{"method_definition"},
		ClassTypes:  []string{"class_declaration"},
		ImportTypes: []string{"import_statement"},
		ExportTypes: []string{"export_statement"},
	}
	r.registerLanguage(jsConfig, javascript.GetLanguage())

	jsxConfig := *jsConfig
	jsxConfig.Name = "jsx"
	jsxConfig.Extensions = []string{".jsx"}
	r.registerLanguage(&jsxConfig, javascript.GetLanguage())
}

func (r *LanguageRegistry) registerPython() {
	config := &LanguageConfig{
		Name:          "python",
		Extensions:    []string{".py", ".pyi"},
		FunctionTypes: []string{"function_definition"},
		// Methods are function_definition inside class_definition
		ClassTypes:        []string{"class_definition"},
		ImportTypes:       []string{"import_statement", "import_from_statement"},
		LineCommentPrefix: "#",
	}
	r.registerLanguage(config, python.GetLanguage())
}

func (r *LanguageRegistry) registerJava() {
	config := &LanguageConfig{
		Name:       "java",
		Extensions: []string{".java"},
		MethodTypes: []string{
			"method_declaration",
			"constructor_declaration",
		},
		ClassTypes: []string{
			"class_declaration",
			"enum_declaration",
			"record_declaration",
		},
		InterfaceTypes: []string{"interface_declaration"},
		ImportTypes:    []string{"import_declaration"},
	}
	r.registerLanguage(config, java.GetLanguage())
}

func (r *LanguageRegistry) registerC() {
	config := &LanguageConfig{
		Name:          "c",
		Extensions:    []string{".c", ".h"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes: []string{
			"struct_specifier",
			"enum_specifier",
			"union_specifier",
		},
		ImportTypes: []string{"preproc_include"},
	}
	r.registerLanguage(config, c.GetLanguage())
}

func (r *LanguageRegistry) registerCpp() {
	config := &LanguageConfig{
		Name:          "cpp",
		Extensions:    []string{".cpp", ".cc", ".cxx", ".hpp", ".hxx"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes: []string{
			"class_specifier",
			"struct_specifier",
			"enum_specifier",
		},
		ImportTypes: []string{"preproc_include"},
	}
	r.registerLanguage(config, cpp.GetLanguage())
}

func (r *LanguageRegistry) registerCSharp() {
	config := &LanguageConfig{
		Name:       "csharp",
		Extensions: []string{".cs"},
		MethodTypes: []string{
			"method_declaration",
			"constructor_declaration",
		},
		ClassTypes: []string{
			"class_declaration",
			"struct_declaration",
			"record_declaration",
			"enum_declaration",
		},
		InterfaceTypes: []string{"interface_declaration"},
		ImportTypes:    []string{"using_directive"},
	}
	r.registerLanguage(config, csharp.GetLanguage())
}

func (r *LanguageRegistry) registerRuby() {
	config := &LanguageConfig{
		Name:          "ruby",
		Extensions:    []string{".rb"},
		FunctionTypes: []string{"method", "singleton_method"},
		ClassTypes:    []string{"class", "module"},
		// Ruby imports are require calls, handled by the facts extractor
		LineCommentPrefix: "#",
	}
	r.registerLanguage(config, ruby.GetLanguage())
}

func (r *LanguageRegistry) registerPHP() {
	config := &LanguageConfig{
		Name:          "php",
		Extensions:    []string{".php"},
		FunctionTypes: []string{"function_definition"},
		MethodTypes:   []string{"method_declaration"},
		ClassTypes: []string{
			"class_declaration",
			"trait_declaration",
			"enum_declaration",
		},
		InterfaceTypes: []string{"interface_declaration"},
		ImportTypes:    []string{"namespace_use_declaration"},
	}
	r.registerLanguage(config, php.GetLanguage())
}

func (r *LanguageRegistry) registerRust() {
	config := &LanguageConfig{
		Name:          "rust",
		Extensions:    []string{".rs"},
		FunctionTypes: []string{"function_item"},
		ClassTypes: []string{
			"struct_item",
			"enum_item",
			"impl_item",
		},
		InterfaceTypes: []string{"trait_item"},
		ImportTypes:    []string{"use_declaration"},
	}
	r.registerLanguage(config, rust.GetLanguage())
}

func (r *LanguageRegistry) registerKotlin() {
	config := &LanguageConfig{
		Name:          "kotlin",
		Extensions:    []string{".kt", ".kts"},
		FunctionTypes: []string{"function_declaration"},
		ClassTypes: []string{
			"class_declaration",
			"object_declaration",
		},
		ImportTypes: []string{"import_header"},
	}
	r.registerLanguage(config, kotlin.GetLanguage())
}

func (r *LanguageRegistry) registerScala() {
	config := &LanguageConfig{
		Name:          "scala",
		Extensions:    []string{".scala"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes: []string{
			"class_definition",
			"object_definition",
		},
		InterfaceTypes: []string{"trait_definition"},
		ImportTypes:    []string{"import_declaration"},
	}
	r.registerLanguage(config, scala.GetLanguage())
}

func (r *LanguageRegistry) registerSwift() {
	config := &LanguageConfig{
		Name:          "swift",
		Extensions:    []string{".swift"},
		FunctionTypes: []string{"function_declaration"},
		ClassTypes:    []string{"class_declaration"},
		InterfaceTypes: []string{
			"protocol_declaration",
		},
		ImportTypes: []string{"import_declaration"},
	}
	r.registerLanguage(config, swift.GetLanguage())
}

func (r *LanguageRegistry) registerBash() {
	config := &LanguageConfig{
		Name:              "bash",
		Extensions:        []string{".sh", ".bash"},
		FunctionTypes:     []string{"function_definition"},
		LineCommentPrefix: "#",
	}
	r.registerLanguage(config, bash.GetLanguage())
}

// IsUnitType reports whether kind opens a semantic unit in this language.
func (c *LanguageConfig) IsUnitType(kind string) bool {
	return contains(c.FunctionTypes, kind) ||
		contains(c.ClassTypes, kind) ||
		contains(c.MethodTypes, kind) ||
		contains(c.InterfaceTypes, kind)
}

// IsClassLike reports whether kind is a class-like aggregate.
func (c *LanguageConfig) IsClassLike(kind string) bool {
	return contains(c.ClassTypes, kind) || contains(c.InterfaceTypes, kind)
}

// UnitType maps a node kind to the chunk type it produces.
// Method kinds count as methods only under a class-like parent;
// elsewhere they emit as functions.
func (c *LanguageConfig) UnitType(kind string, parentIsClass bool) (ChunkType, bool) {
	switch {
	case contains(c.InterfaceTypes, kind):
		return ChunkTypeInterface, true
	case contains(c.ClassTypes, kind):
		return ChunkTypeClass, true
	case contains(c.MethodTypes, kind):
		if parentIsClass {
			return ChunkTypeMethod, true
		}
		return ChunkTypeFunction, true
	case contains(c.FunctionTypes, kind):
		if parentIsClass {
			return ChunkTypeMethod, true
		}
		return ChunkTypeFunction, true
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// defaultRegistry is the global language registry.
var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the global language registry.
func DefaultRegistry() *LanguageRegistry {
	return defaultRegistry
}
