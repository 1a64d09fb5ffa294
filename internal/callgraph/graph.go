// Package callgraph implements the directed call graph over function
// identities, reachability marking, the conservative fallback, and shortest
// call-chain reconstruction.
package callgraph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned by MarkEntrypoint when the named function was never
// added to the graph. Callers are expected to tolerate it: entrypoint
// detectors may legitimately name symbols the extractor never saw.
var ErrNotFound = errors.New("function not in graph")

// FunctionNode is one declared function or method. The two booleans are
// monotonic within a run: each goes false to true at most once and is never
// reset.
type FunctionNode struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	Language  string `json:"language,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Class     string `json:"class,omitempty"`

	IsPublic bool `json:"is_public,omitempty"`
	IsStatic bool `json:"is_static,omitempty"`
	IsAsync  bool `json:"is_async,omitempty"`

	// Placeholder marks a synthetic node created for a callee the extractor
	// never resolved to a declaration. Placeholders keep edges alive so
	// reachability is never silently lost.
	Placeholder bool `json:"placeholder,omitempty"`

	IsEntrypoint bool `json:"is_entrypoint"`
	Reachable    bool `json:"reachable"`
}

// Graph is a simple directed graph over FunctionNodes. Hot-path operations
// run on dense integer indices; the string id is the public identity.
// A Graph is owned by a single analysis run and is not safe for concurrent
// mutation.
type Graph struct {
	nodes []FunctionNode
	index map[string]int
	out   [][]int
	edges map[edgeKey]bool
}

type edgeKey struct{ from, to int }

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		index: make(map[string]int),
		edges: make(map[edgeKey]bool),
	}
}

// Len returns the number of nodes, placeholders included.
func (g *Graph) Len() int { return len(g.nodes) }

// AddFunction upserts a node by id. Later calls overwrite metadata but never
// clear Reachable or IsEntrypoint, and a real declaration always replaces a
// placeholder.
func (g *Graph) AddFunction(n FunctionNode) {
	if n.ID == "" {
		return
	}
	if i, ok := g.index[n.ID]; ok {
		existing := &g.nodes[i]
		n.IsEntrypoint = n.IsEntrypoint || existing.IsEntrypoint
		n.Reachable = n.Reachable || existing.Reachable
		*existing = n
		return
	}
	g.insert(n)
}

// AddCall records a directed call edge. Absent endpoints are created as
// placeholder nodes; duplicate edges collapse. It never fails.
func (g *Graph) AddCall(callerID, calleeID string) {
	if callerID == "" || calleeID == "" {
		return
	}
	from := g.ensure(callerID)
	to := g.ensure(calleeID)
	key := edgeKey{from, to}
	if g.edges[key] {
		return
	}
	g.edges[key] = true
	g.out[from] = append(g.out[from], to)
}

// MarkEntrypoint flags the node with the given id as an entrypoint.
func (g *Graph) MarkEntrypoint(id string) error {
	i, ok := g.index[id]
	if !ok {
		return fmt.Errorf("mark entrypoint %q: %w", id, ErrNotFound)
	}
	g.nodes[i].IsEntrypoint = true
	return nil
}

// AnalyzeReachability marks every node reachable via outgoing edges from any
// entrypoint, entrypoints themselves included. Safe on cyclic graphs.
func (g *Graph) AnalyzeReachability() {
	visited := make([]bool, len(g.nodes))
	var queue []int
	for i := range g.nodes {
		if g.nodes[i].IsEntrypoint {
			visited[i] = true
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		g.nodes[cur].Reachable = true
		for _, next := range g.out[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
}

// MarkAllReachable sets every node reachable unconditionally. This is the
// conservative fallback for runs where dynamic code was detected: dynamic
// dispatch can route control flow through edges the extractor cannot see,
// and a false "unreachable" is worse than a false "reachable".
func (g *Graph) MarkAllReachable() {
	for i := range g.nodes {
		g.nodes[i].Reachable = true
	}
}

// FindCallChain returns the shortest entrypoint-to-target path as an ordered
// list of ids, or false when no entrypoint reaches the target. Entrypoints
// are tried in insertion order and the first one with a path wins.
func (g *Graph) FindCallChain(targetID string) ([]string, bool) {
	target, ok := g.index[targetID]
	if !ok {
		return nil, false
	}
	for i := range g.nodes {
		if !g.nodes[i].IsEntrypoint {
			continue
		}
		if path := g.shortestPath(i, target); path != nil {
			ids := make([]string, len(path))
			for j, idx := range path {
				ids[j] = g.nodes[idx].ID
			}
			return ids, true
		}
	}
	return nil, false
}

// shortestPath runs an unweighted BFS from start to target and reconstructs
// the path from predecessor links. Returns nil when target is unreachable.
func (g *Graph) shortestPath(start, target int) []int {
	if start == target {
		return []int{start}
	}
	prev := make([]int, len(g.nodes))
	for i := range prev {
		prev[i] = -1
	}
	prev[start] = start
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.out[cur] {
			if prev[next] != -1 {
				continue
			}
			prev[next] = cur
			if next == target {
				var path []int
				for at := target; at != start; at = prev[at] {
					path = append(path, at)
				}
				path = append(path, start)
				reverse(path)
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (FunctionNode, bool) {
	i, ok := g.index[id]
	if !ok {
		return FunctionNode{}, false
	}
	return g.nodes[i], true
}

// Nodes returns copies of all nodes ordered by id.
func (g *Graph) Nodes() []FunctionNode {
	out := make([]FunctionNode, len(g.nodes))
	copy(out, g.nodes)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Callees returns the ids this caller has edges to.
func (g *Graph) Callees(callerID string) []string {
	i, ok := g.index[callerID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.out[i]))
	for _, next := range g.out[i] {
		out = append(out, g.nodes[next].ID)
	}
	return out
}

func (g *Graph) ensure(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return g.insert(FunctionNode{ID: id, Name: id, Placeholder: true})
}

func (g *Graph) insert(n FunctionNode) int {
	i := len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
	g.index[n.ID] = i
	return i
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
