package vulnreach

import (
	"encoding/json"
	"sort"

	"github.com/seclens/vulnreach/internal/callgraph"
	"github.com/seclens/vulnreach/internal/entrypoint"
	"github.com/seclens/vulnreach/internal/extract"
	"github.com/seclens/vulnreach/internal/lang"
)

// Mode records how reachability was computed for a run.
type Mode struct {
	// Conservative is true when dynamic code forced every function to be
	// treated as reachable.
	Conservative bool `json:"conservative"`

	// Reason names the first trigger for the downgrade. Empty in precise mode.
	Reason string `json:"reason,omitempty"`
}

// Report is the result of one analysis run. The reachability partition is
// fixed at build time; only the Vulnerabilities slot grows afterwards, as
// the mapper records verdicts into it.
type Report struct {
	Root     string        `json:"root"`
	Language lang.Language `json:"language"`
	Mode     Mode          `json:"mode"`

	// AllFunctions maps function id to its node, placeholders included.
	AllFunctions map[string]callgraph.FunctionNode `json:"all_functions"`

	// ReachableFunctions and UnreachableFunctions partition the ids of
	// AllFunctions. Both are sorted.
	ReachableFunctions   []string `json:"reachable_functions"`
	UnreachableFunctions []string `json:"unreachable_functions"`

	Entrypoints []entrypoint.Entrypoint `json:"entrypoints"`

	// Warnings lists dynamic-code constructs found during extraction,
	// ordered by file then line.
	Warnings []extract.Warning `json:"warnings,omitempty"`

	// Vulnerabilities holds the mapper's verdicts. Empty until
	// MapVulnerability or MapVulnerabilities runs against this report.
	Vulnerabilities []VulnerabilityReachability `json:"vulnerabilities,omitempty"`

	graph *callgraph.Graph
}

func buildReport(root string, l lang.Language, mode Mode, g *callgraph.Graph, eps []entrypoint.Entrypoint, warnings []extract.Warning) *Report {
	r := &Report{
		Root:         root,
		Language:     l,
		Mode:         mode,
		AllFunctions: make(map[string]callgraph.FunctionNode, g.Len()),
		Entrypoints:  eps,
		Warnings:     warnings,
		graph:        g,
	}
	for _, n := range g.Nodes() {
		r.AllFunctions[n.ID] = n
		if n.Reachable {
			r.ReachableFunctions = append(r.ReachableFunctions, n.ID)
		} else {
			r.UnreachableFunctions = append(r.UnreachableFunctions, n.ID)
		}
	}
	sort.Strings(r.ReachableFunctions)
	sort.Strings(r.UnreachableFunctions)
	return r
}

// FunctionReachable reports whether the function with the given id was
// marked reachable. Unknown ids are unreachable.
func (r *Report) FunctionReachable(id string) bool {
	n, ok := r.AllFunctions[id]
	return ok && n.Reachable
}

// CallChain returns one shortest entrypoint-to-target path of function ids,
// or nil when the target is not reachable through recorded edges.
func (r *Report) CallChain(id string) []string {
	chain, ok := r.graph.FindCallChain(id)
	if !ok {
		return nil
	}
	return chain
}

// MarshalJSON keeps the wire shape stable without exposing the graph.
func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal((*alias)(r))
}
