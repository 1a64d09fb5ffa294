package callgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func declare(g *Graph, ids ...string) {
	for _, id := range ids {
		g.AddFunction(FunctionNode{ID: id, Name: id, File: "f.go"})
	}
}

func TestReachabilityChain(t *testing.T) {
	g := New()
	declare(g, "a", "b", "c", "d")
	g.AddCall("a", "b")
	g.AddCall("b", "c")

	require.NoError(t, g.MarkEntrypoint("a"))
	g.AnalyzeReachability()

	for _, id := range []string{"a", "b", "c"} {
		n, ok := g.Node(id)
		require.True(t, ok)
		require.True(t, n.Reachable, "%s should be reachable", id)
	}
	n, ok := g.Node("d")
	require.True(t, ok)
	require.False(t, n.Reachable, "d has no caller and is not an entrypoint")
}

func TestReachabilityPartition(t *testing.T) {
	g := New()
	declare(g, "a", "b", "c", "d", "e")
	g.AddCall("a", "b")
	g.AddCall("d", "e")

	require.NoError(t, g.MarkEntrypoint("a"))
	g.AnalyzeReachability()

	reachable, unreachable := 0, 0
	for _, n := range g.Nodes() {
		if n.Reachable {
			reachable++
		} else {
			unreachable++
		}
	}
	require.Equal(t, g.Len(), reachable+unreachable)
	require.Equal(t, 2, reachable)
}

func TestReachabilityCycle(t *testing.T) {
	g := New()
	declare(g, "a", "b", "c")
	g.AddCall("a", "b")
	g.AddCall("b", "c")
	g.AddCall("c", "a")

	require.NoError(t, g.MarkEntrypoint("a"))
	g.AnalyzeReachability()

	for _, n := range g.Nodes() {
		require.True(t, n.Reachable)
	}
}

func TestReachabilityIdempotent(t *testing.T) {
	g := New()
	declare(g, "a", "b", "c")
	g.AddCall("a", "b")

	require.NoError(t, g.MarkEntrypoint("a"))
	g.AnalyzeReachability()
	first := g.Nodes()

	g.AnalyzeReachability()
	require.Equal(t, first, g.Nodes())
}

func TestMarkAllReachable(t *testing.T) {
	g := New()
	declare(g, "a", "b", "c")

	g.MarkAllReachable()

	for _, n := range g.Nodes() {
		require.True(t, n.Reachable)
	}
}

func TestMarkEntrypointNotFound(t *testing.T) {
	g := New()
	declare(g, "a")

	err := g.MarkEntrypoint("missing")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestUpsertKeepsMonotonicFlags(t *testing.T) {
	g := New()
	declare(g, "a")
	require.NoError(t, g.MarkEntrypoint("a"))
	g.AnalyzeReachability()

	// Re-adding the declaration with fresh metadata must not reset flags.
	g.AddFunction(FunctionNode{ID: "a", Name: "a", File: "f.go", Line: 10})

	n, ok := g.Node("a")
	require.True(t, ok)
	require.True(t, n.IsEntrypoint)
	require.True(t, n.Reachable)
	require.Equal(t, 10, n.Line)
}

func TestAddCallCreatesPlaceholders(t *testing.T) {
	g := New()
	g.AddCall("caller", "callee")

	caller, ok := g.Node("caller")
	require.True(t, ok)
	require.True(t, caller.Placeholder)

	// A later declaration replaces the placeholder in place.
	g.AddFunction(FunctionNode{ID: "caller", Name: "caller", File: "f.go"})
	caller, _ = g.Node("caller")
	require.False(t, caller.Placeholder)
	require.Equal(t, []string{"callee"}, g.Callees("caller"))
}

func TestAddCallDeduplicatesEdges(t *testing.T) {
	g := New()
	declare(g, "a", "b")
	g.AddCall("a", "b")
	g.AddCall("a", "b")
	g.AddCall("a", "b")

	require.Equal(t, []string{"b"}, g.Callees("a"))
}

func TestFindCallChainShortest(t *testing.T) {
	g := New()
	declare(g, "entry", "mid1", "mid2", "target")
	// Long route and a direct route; BFS must pick the direct one.
	g.AddCall("entry", "mid1")
	g.AddCall("mid1", "mid2")
	g.AddCall("mid2", "target")
	g.AddCall("entry", "target")

	require.NoError(t, g.MarkEntrypoint("entry"))
	g.AnalyzeReachability()

	chain, ok := g.FindCallChain("target")
	require.True(t, ok)
	require.Equal(t, []string{"entry", "target"}, chain)
}

func TestFindCallChainSelf(t *testing.T) {
	g := New()
	declare(g, "entry")
	require.NoError(t, g.MarkEntrypoint("entry"))

	chain, ok := g.FindCallChain("entry")
	require.True(t, ok)
	require.Equal(t, []string{"entry"}, chain)
}

func TestFindCallChainUnreachable(t *testing.T) {
	g := New()
	declare(g, "entry", "island")
	require.NoError(t, g.MarkEntrypoint("entry"))

	chain, ok := g.FindCallChain("island")
	require.False(t, ok)
	require.Nil(t, chain)

	chain, ok = g.FindCallChain("nonexistent")
	require.False(t, ok)
	require.Nil(t, chain)
}
