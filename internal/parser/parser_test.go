package parser

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/stretchr/testify/require"

	"github.com/seclens/vulnreach/internal/lang"
)

func TestParseAndWalk(t *testing.T) {
	source := []byte("package main\n\nfunc hello() {}\n")
	tree, err := Parse(lang.Go, source)
	require.NoError(t, err)
	defer tree.Close()

	var funcs []string
	Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() == "function_declaration" {
			funcs = append(funcs, NodeText(n.ChildByFieldName("name"), source))
		}
		return true
	})
	require.Equal(t, []string{"hello"}, funcs)
}

func TestWalkPrunes(t *testing.T) {
	source := []byte("package main\n\nfunc a() { b() }\n")
	tree, err := Parse(lang.Go, source)
	require.NoError(t, err)
	defer tree.Close()

	var calls int
	Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() == "function_declaration" {
			return false
		}
		if n.Kind() == "call_expression" {
			calls++
		}
		return true
	})
	require.Zero(t, calls, "pruned subtrees must not be visited")
}

func TestParseUnsupportedLanguage(t *testing.T) {
	_, err := Parse(lang.Language("cobol"), []byte("x"))
	require.Error(t, err)
}

func TestLineColumn(t *testing.T) {
	source := []byte("package main\n\nfunc hello() {}\n")
	tree, err := Parse(lang.Go, source)
	require.NoError(t, err)
	defer tree.Close()

	Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() == "function_declaration" {
			require.Equal(t, 3, Line(n))
			require.Equal(t, 1, Column(n))
		}
		return true
	})
}
