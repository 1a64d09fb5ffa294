package lang

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammarCache memoizes tree-sitter language handles. Constructing one goes
// through cgo, and every extraction worker needs the same handle, so they are
// built once and shared.
var grammarCache = xsync.NewMap[Language, *tree_sitter.Language]()

// Grammar returns the tree-sitter grammar for l. Handles are cached and safe
// for concurrent use across parsers.
func Grammar(l Language) (*tree_sitter.Language, error) {
	if g, ok := grammarCache.Load(l); ok {
		return g, nil
	}

	var g *tree_sitter.Language
	switch l {
	case Go:
		g = tree_sitter.NewLanguage(tree_sitter_go.Language())
	case JavaScript:
		g = tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	case TypeScript:
		g = tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	case TSX:
		g = tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
	case Python:
		g = tree_sitter.NewLanguage(tree_sitter_python.Language())
	case Ruby:
		g = tree_sitter.NewLanguage(tree_sitter_ruby.Language())
	case Rust:
		g = tree_sitter.NewLanguage(tree_sitter_rust.Language())
	case PHP:
		g = tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	default:
		return nil, fmt.Errorf("no grammar registered for language %q", l)
	}

	grammarCache.Store(l, g)
	return g, nil
}
