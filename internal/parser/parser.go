// Package parser wraps the tree-sitter bindings with the small surface the
// rest of the analyzer needs: parse one file, walk the tree, read node text.
package parser

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/seclens/vulnreach/internal/lang"
)

// Parse parses source as language l and returns the syntax tree. The caller
// owns the tree and must Close it. A nil or fully broken tree is returned as
// an error; trees with localized ERROR nodes are still usable and are
// returned as-is, because partial extraction beats none.
func Parse(l lang.Language, source []byte) (*tree_sitter.Tree, error) {
	grammar, err := lang.Grammar(l)
	if err != nil {
		return nil, err
	}

	p := tree_sitter.NewParser()
	defer p.Close()
	if err := p.SetLanguage(grammar); err != nil {
		return nil, fmt.Errorf("set %s grammar: %w", l, err)
	}

	tree := p.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s parse produced no tree", l)
	}

	root := tree.RootNode()
	if root == nil || root.IsError() {
		tree.Close()
		return nil, fmt.Errorf("%s parse failed: source is not valid %s", l, l)
	}

	return tree, nil
}

// Walk visits node and its subtree in pre-order. Returning false from visit
// prunes the subtree below the current node.
func Walk(node *tree_sitter.Node, visit func(*tree_sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		Walk(node.Child(i), visit)
	}
}

// NodeText returns the source text covered by node.
func NodeText(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return node.Utf8Text(source)
}

// Line returns the 1-based line of node's start.
func Line(node *tree_sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// Column returns the 1-based column of node's start.
func Column(node *tree_sitter.Node) int {
	return int(node.StartPosition().Column) + 1
}
