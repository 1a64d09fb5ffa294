// Package lang describes the source ecosystems the analyzer understands and
// maps each one to its tree-sitter grammar and AST node conventions.
package lang

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Language identifies one supported source ecosystem.
type Language string

const (
	Go         Language = "go"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Python     Language = "python"
	Ruby       Language = "ruby"
	Rust       Language = "rust"
	PHP        Language = "php"
)

// All lists every supported language in a stable order.
func All() []Language {
	return []Language{Go, JavaScript, TypeScript, TSX, Python, Ruby, Rust, PHP}
}

// FromName parses a user-supplied language name (CLI flag, config value).
// Common aliases are accepted: "js", "ts", "py", "rb", "rs".
func FromName(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "go", "golang":
		return Go, nil
	case "javascript", "js", "node":
		return JavaScript, nil
	case "typescript", "ts":
		return TypeScript, nil
	case "tsx":
		return TSX, nil
	case "python", "py":
		return Python, nil
	case "ruby", "rb":
		return Ruby, nil
	case "rust", "rs":
		return Rust, nil
	case "php":
		return PHP, nil
	}
	return "", fmt.Errorf("unsupported language %q (supported: go, javascript, typescript, python, ruby, rust, php)", s)
}

// FromExtension maps a file extension (with leading dot) to its language.
func FromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".go":
		return Go, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return JavaScript, true
	case ".ts", ".mts", ".cts":
		return TypeScript, true
	case ".tsx":
		return TSX, true
	case ".py":
		return Python, true
	case ".rb", ".rake":
		return Ruby, true
	case ".rs":
		return Rust, true
	case ".php":
		return PHP, true
	}
	return "", false
}

// FromPath maps a file path to its language by extension.
func FromPath(path string) (Language, bool) {
	return FromExtension(filepath.Ext(path))
}
