package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/seclens/vulnreach/internal/lang"
	"github.com/seclens/vulnreach/internal/parser"
)

// isPublic applies each ecosystem's visibility convention. The flag feeds
// the exported-API entrypoint heuristic; it is informational for the core
// reachability algorithm.
func (w *fileWalk) isPublic(node *tree_sitter.Node, name string) bool {
	switch w.extractor.spec.Language {
	case lang.Go:
		r, _ := utf8.DecodeRuneInString(name)
		return unicode.IsUpper(r)
	case lang.Python:
		return !strings.HasPrefix(name, "_")
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		if node.Kind() == "method_definition" {
			if n := node.ChildByFieldName("name"); n != nil && n.Kind() == "private_property_identifier" {
				return false
			}
			return true
		}
		return w.hasExportAncestor(node)
	case lang.Rust:
		return hasChildKind(node, "visibility_modifier")
	case lang.PHP:
		if node.Kind() == "method_declaration" {
			vis := w.phpVisibility(node)
			return vis == "" || vis == "public"
		}
		return true
	case lang.Ruby:
		// Ruby visibility is set by runtime calls (private/protected) that a
		// lexical pass cannot attribute reliably; assume public.
		return true
	}
	return false
}

func (w *fileWalk) isStatic(node *tree_sitter.Node) bool {
	switch w.extractor.spec.Language {
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		return hasChildKind(node, "static")
	case lang.PHP:
		return w.phpModifier(node, "static_modifier")
	case lang.Ruby:
		return node.Kind() == "singleton_method"
	}
	return false
}

func (w *fileWalk) isAsync(node *tree_sitter.Node) bool {
	switch w.extractor.spec.Language {
	case lang.JavaScript, lang.TypeScript, lang.TSX, lang.Python, lang.Rust:
		return hasChildKind(node, "async")
	}
	return false
}

// hasExportAncestor reports whether node sits under an export statement
// (export function f, export const f = ...).
func (w *fileWalk) hasExportAncestor(node *tree_sitter.Node) bool {
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Kind() {
		case "export_statement":
			return true
		case "program":
			return false
		}
	}
	return false
}

func (w *fileWalk) phpVisibility(node *tree_sitter.Node) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		if c != nil && c.Kind() == "visibility_modifier" {
			return parser.NodeText(c, w.source)
		}
	}
	return ""
}

func (w *fileWalk) phpModifier(node *tree_sitter.Node, kind string) bool {
	return hasChildKind(node, kind)
}
