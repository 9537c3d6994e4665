package chunk

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// ConfigChunker emits a single typed chunk for recognized configuration
// files. Structured fields are extracted with tolerant parsers; a
// config file that fails to parse still produces its chunk, just
// without typed metadata.
type ConfigChunker struct{}

// NewConfigChunker creates a config-file chunker.
func NewConfigChunker() *ConfigChunker {
	return &ConfigChunker{}
}

// knownDependencies is the subset of package.json dependencies worth
// tagging for retrieval.
var knownDependencies = []string{
	"react", "react-dom", "vue", "angular", "svelte", "next", "nuxt",
	"express", "fastify", "koa", "nest", "typescript", "webpack", "vite",
	"rollup", "esbuild", "jest", "vitest", "mocha", "eslint", "prettier",
	"tailwindcss", "axios", "lodash", "zod", "prisma",
}

// Match reports whether the file is a recognized config file.
func (c *ConfigChunker) Match(path string) bool {
	return c.kind(path) != ""
}

// kind classifies a path into a config family, or "" when unrecognized.
func (c *ConfigChunker) kind(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)

	switch {
	case strings.HasPrefix(lower, "tsconfig") && strings.HasSuffix(lower, ".json"):
		return "tsconfig"
	case strings.HasPrefix(lower, ".eslintrc") || strings.HasPrefix(lower, "eslint.config."):
		return "eslint"
	case strings.HasPrefix(lower, ".prettierrc") || strings.HasPrefix(lower, "prettier.config."):
		return "prettier"
	case lower == "package.json":
		return "package"
	case lower == "pyproject.toml":
		return "pyproject"
	case lower == "go.mod":
		return "gomod"
	case lower == "cargo.toml":
		return "cargo"
	case lower == "dockerfile" || strings.HasPrefix(lower, "dockerfile."):
		return "dockerfile"
	case lower == "docker-compose.yml" || lower == "docker-compose.yaml" ||
		lower == "compose.yml" || lower == "compose.yaml":
		return "compose"
	case lower == ".gitlab-ci.yml" || lower == ".travis.yml" || lower == "jenkinsfile" ||
		(strings.Contains(path, ".github/workflows/") &&
			(strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml"))):
		return "ci"
	case lower == ".editorconfig":
		return "editorconfig"
	case isGenericConfigName(lower):
		return "generic"
	}
	return ""
}

// isGenericConfigName matches *rc files and *.config.{js,ts,mjs,cjs}.
func isGenericConfigName(lower string) bool {
	if strings.HasSuffix(lower, "rc") && strings.HasPrefix(lower, ".") {
		return true
	}
	for _, ext := range []string{".js", ".ts", ".mjs", ".cjs"} {
		if strings.HasSuffix(lower, ".config"+ext) {
			return true
		}
	}
	return false
}

// Chunk produces the single config chunk for a file.
func (c *ConfigChunker) Chunk(_ context.Context, file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	kind := c.kind(file.Path)
	lines := strings.Split(content, "\n")

	metadata := map[string]any{"config_kind": kind}
	var tags []string

	switch kind {
	case "tsconfig":
		tags = extractTSConfig(content, metadata)
	case "eslint":
		tags = extractESLint(content, metadata)
	case "package":
		tags = extractPackageJSON(content, metadata)
	case "pyproject":
		tags = extractPyproject(content, metadata)
	case "gomod":
		tags = extractGoMod(content, metadata)
	case "cargo":
		tags = extractCargo(content, metadata)
	case "dockerfile":
		tags = extractDockerfile(content, metadata)
	}

	name := filepath.Base(file.Path)
	return []*Chunk{{
		FilePath:    file.Path,
		Type:        ChunkTypeConfig,
		SymbolName:  name,
		SymbolNames: append([]string{name}, tags...),
		StartLine:   1,
		EndLine:     len(lines),
		Content:     content,
		Metadata:    metadata,
	}}, nil
}

// extractTSConfig pulls strict mode, target, and selected compiler
// options out of a tsconfig file.
func extractTSConfig(content string, metadata map[string]any) []string {
	doc, err := parseTolerantJSON(content)
	if err != nil {
		return nil
	}

	opts, _ := doc["compilerOptions"].(map[string]any)
	if opts == nil {
		return nil
	}

	var tags []string
	if strict, ok := opts["strict"].(bool); ok {
		metadata["strict"] = strict
		tags = append(tags, fmt.Sprintf("strict:%t", strict))
	}
	if target, ok := opts["target"].(string); ok {
		metadata["target"] = target
		tags = append(tags, "target:"+target)
	}
	if module, ok := opts["module"].(string); ok {
		metadata["module"] = module
		tags = append(tags, "module:"+module)
	}
	for _, key := range []string{"noImplicitAny", "strictNullChecks", "esModuleInterop"} {
		if v, ok := opts[key].(bool); ok {
			metadata[key] = v
		}
	}
	if jsx, ok := opts["jsx"].(string); ok {
		metadata["jsx"] = jsx
	}

	return tags
}

// extractESLint records enabled rules and whether a strict preset is
// extended. Only JSON-shaped configs are parsed; flat JS configs keep
// their chunk without typed metadata.
func extractESLint(content string, metadata map[string]any) []string {
	doc, err := parseTolerantJSON(content)
	if err != nil {
		return nil
	}

	var tags []string

	if rules, ok := doc["rules"].(map[string]any); ok {
		var enabled []string
		for name, setting := range rules {
			if s, ok := setting.(string); ok && s == "off" {
				continue
			}
			if n, ok := setting.(float64); ok && n == 0 {
				continue
			}
			enabled = append(enabled, name)
		}
		metadata["enabled_rules"] = len(enabled)
		if len(enabled) > 0 {
			tags = append(tags, fmt.Sprintf("rules:%d", len(enabled)))
		}
	}

	if extends, ok := doc["extends"]; ok {
		strict := strings.Contains(fmt.Sprintf("%v", extends), "strict")
		metadata["extends_strict"] = strict
		if strict {
			tags = append(tags, "extends:strict")
		}
	}

	return tags
}

// extractPackageJSON tags the recognized dependency subset.
func extractPackageJSON(content string, metadata map[string]any) []string {
	doc, err := parseTolerantJSON(content)
	if err != nil {
		return nil
	}

	found := newOrderedSet()
	for _, section := range []string{"dependencies", "devDependencies"} {
		deps, ok := doc[section].(map[string]any)
		if !ok {
			continue
		}
		for _, known := range knownDependencies {
			if _, present := deps[known]; present {
				found.add(known)
			}
		}
	}

	metadata["dependencies"] = found.values
	var tags []string
	for _, dep := range found.values {
		tags = append(tags, "dep:"+dep)
	}
	return tags
}

// extractPyproject pulls Python version, dependency names, mypy strict,
// and ruff select via line scanning. pyproject files in the wild abuse
// TOML enough that a tolerant scan beats a strict parser here.
func extractPyproject(content string, metadata map[string]any) []string {
	var tags []string
	section := ""
	var deps []string
	inDeps := false

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.Trim(line, "[]")
			inDeps = false
			continue
		}

		key, value, hasEq := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case section == "project" && hasEq && key == "requires-python":
			version := strings.Trim(value, `"'`)
			metadata["python_version"] = version
			tags = append(tags, "python:"+version)
		case section == "project" && hasEq && key == "dependencies":
			inDeps = true
			deps = append(deps, tomlListNames(value)...)
		case inDeps && section == "project":
			if strings.HasPrefix(line, "]") {
				inDeps = false
			} else {
				deps = append(deps, tomlListNames(line)...)
			}
		case strings.HasPrefix(section, "tool.mypy") && hasEq && key == "strict":
			strict := value == "true"
			metadata["mypy_strict"] = strict
			if strict {
				tags = append(tags, "mypy:strict")
			}
		case strings.HasPrefix(section, "tool.ruff") && hasEq && key == "select":
			metadata["ruff_select"] = tomlListNames(value)
		}
	}

	if len(deps) > 0 {
		metadata["dependencies"] = deps
		for _, d := range deps {
			tags = append(tags, "dep:"+d)
		}
	}
	return tags
}

// tomlListNames extracts bare names from a TOML-ish string list
// fragment, dropping version constraints.
func tomlListNames(fragment string) []string {
	var names []string
	fragment = strings.Trim(fragment, "[]")
	for _, part := range strings.Split(fragment, ",") {
		name := strings.Trim(strings.TrimSpace(part), `"'`)
		if name == "" {
			continue
		}
		for _, sep := range []string{">=", "<=", "==", "~=", ">", "<", "[", " ", ";"} {
			if idx := strings.Index(name, sep); idx > 0 {
				name = name[:idx]
			}
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// extractGoMod records the module path, Go version, and require paths.
func extractGoMod(content string, metadata map[string]any) []string {
	var tags []string
	var requires []string
	inBlock := false

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "module "):
			module := strings.TrimSpace(strings.TrimPrefix(line, "module "))
			metadata["module"] = module
			tags = append(tags, "module:"+module)
		case strings.HasPrefix(line, "go "):
			version := strings.TrimSpace(strings.TrimPrefix(line, "go "))
			metadata["go_version"] = version
			tags = append(tags, "go:"+version)
		case strings.HasPrefix(line, "require ("):
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock || strings.HasPrefix(line, "require "):
			entry := strings.TrimPrefix(line, "require ")
			fields := strings.Fields(entry)
			if len(fields) >= 1 && !strings.Contains(fields[0], "indirect") && fields[0] != "" {
				requires = append(requires, fields[0])
			}
		}
	}

	if len(requires) > 0 {
		metadata["requires"] = requires
	}
	return tags
}

// extractCargo records edition and dependency names.
func extractCargo(content string, metadata map[string]any) []string {
	var tags []string
	var deps []string
	section := ""

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.Trim(line, "[]")
			continue
		}

		key, value, hasEq := strings.Cut(line, "=")
		if !hasEq {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if section == "package" && key == "edition" {
			edition := strings.Trim(value, `"'`)
			metadata["edition"] = edition
			tags = append(tags, "edition:"+edition)
		}
		if section == "dependencies" || section == "dev-dependencies" {
			deps = append(deps, key)
		}
	}

	if len(deps) > 0 {
		metadata["dependencies"] = deps
		for _, d := range deps {
			tags = append(tags, "dep:"+d)
		}
	}
	return tags
}

// extractDockerfile records base images from FROM lines.
func extractDockerfile(content string, metadata map[string]any) []string {
	var images []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(strings.ToUpper(line), "FROM ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			images = append(images, fields[1])
		}
	}

	if len(images) == 0 {
		return nil
	}
	metadata["base_images"] = images
	var tags []string
	for _, img := range images {
		tags = append(tags, "from:"+img)
	}
	return tags
}

// parseTolerantJSON accepts the JSON-with-comments dialect used by
// tsconfig and friends: // and /* */ comments plus trailing commas.
func parseTolerantJSON(content string) (map[string]any, error) {
	cleaned := stripJSONComments(content)
	cleaned = stripTrailingCommas(cleaned)

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// stripJSONComments removes // and /* */ comments outside strings.
func stripJSONComments(s string) string {
	var out strings.Builder
	inString := false
	inLine := false
	inBlock := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		switch {
		case inLine:
			if ch == '\n' {
				inLine = false
				out.WriteByte(ch)
			}
		case inBlock:
			if ch == '*' && i+1 < len(s) && s[i+1] == '/' {
				inBlock = false
				i++
			}
		case inString:
			out.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				out.WriteByte(s[i+1])
				i++
			} else if ch == '"' {
				inString = false
			}
		case ch == '"':
			inString = true
			out.WriteByte(ch)
		case ch == '/' && i+1 < len(s) && s[i+1] == '/':
			inLine = true
			i++
		case ch == '/' && i+1 < len(s) && s[i+1] == '*':
			inBlock = true
			i++
		default:
			out.WriteByte(ch)
		}
	}

	return out.String()
}

// stripTrailingCommas removes commas directly preceding } or ].
func stripTrailingCommas(s string) string {
	var out strings.Builder
	inString := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inString {
			out.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				out.WriteByte(s[i+1])
				i++
			} else if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // drop the comma
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}
