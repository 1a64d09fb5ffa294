package vulnreach

import (
	"sort"
	"strings"
)

// Vulnerability describes one advisory's affected surface: the package it
// lives in and the functions it names as vulnerable.
type Vulnerability struct {
	// ID is the advisory identifier (CVE-2023-1234, GHSA-...).
	ID string `json:"id"`

	// Package is the affected dependency name. Matching is name-based:
	// a function matches when the package appears in its file path,
	// namespace, or class.
	Package string `json:"package"`

	Version string `json:"version,omitempty"`

	// Functions lists the vulnerable function names. Empty means the whole
	// package is affected and any of its functions count.
	Functions []string `json:"functions,omitempty"`
}

// VulnerabilityReachability is the verdict for one vulnerability against
// one report.
type VulnerabilityReachability struct {
	Vulnerability Vulnerability `json:"vulnerability"`

	// Reachable is true when at least one matched function is reachable.
	Reachable bool `json:"reachable"`

	// MatchedFunctions lists the ids of functions in the graph that matched
	// the advisory, sorted, reachable or not.
	MatchedFunctions []string `json:"matched_functions,omitempty"`

	// CallChain is one shortest entrypoint-to-vulnerable-function path of
	// function ids. Empty when not reachable or when reachability came from
	// conservative mode without recorded edges.
	CallChain []string `json:"call_chain,omitempty"`
}

// MapVulnerability decides whether v's vulnerable functions are reachable
// in the analyzed project and records the verdict in the report's
// Vulnerabilities slot. It never fails: a vulnerability matching nothing
// in the graph is simply not reachable.
func (r *Report) MapVulnerability(v Vulnerability) VulnerabilityReachability {
	result := VulnerabilityReachability{Vulnerability: v}

	var matched []string
	for id, n := range r.AllFunctions {
		if v.Package != "" && !nodeInPackage(n.File, n.Namespace, n.Class, n.ID, v.Package) {
			continue
		}
		if !functionNameMatches(n.Name, v.Functions) {
			continue
		}
		matched = append(matched, id)
	}
	sort.Strings(matched)
	result.MatchedFunctions = matched

	for _, id := range matched {
		if !r.FunctionReachable(id) {
			continue
		}
		result.Reachable = true
		if chain := r.CallChain(id); chain != nil {
			result.CallChain = chain
			break
		}
	}
	r.Vulnerabilities = append(r.Vulnerabilities, result)
	return result
}

// MapVulnerabilities maps a batch, preserving input order.
func (r *Report) MapVulnerabilities(vulns []Vulnerability) []VulnerabilityReachability {
	results := make([]VulnerabilityReachability, len(vulns))
	for i, v := range vulns {
		results[i] = r.MapVulnerability(v)
	}
	return results
}

// nodeInPackage reports whether a function belongs to the named package.
// The check is deliberately loose: dependency trees lay packages out as
// path segments (node_modules/lodash, vendor/github.com/x/y) and some
// ecosystems only surface the package in the namespace.
func nodeInPackage(file, namespace, class, id, pkg string) bool {
	pkg = strings.ToLower(pkg)
	for _, hay := range []string{file, namespace, class} {
		if hay == "" {
			continue
		}
		hay = strings.ToLower(hay)
		if hay == pkg || strings.Contains(hay, pkg) {
			return true
		}
	}
	// Placeholder nodes carry the callee expression in their id
	// ("external::lodash.template").
	return strings.Contains(strings.ToLower(id), pkg)
}

func functionNameMatches(name string, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	// Placeholder nodes carry qualified callee names ("lodash.template"),
	// and advisories may qualify too ("Template.render"); compare on the
	// bare final segment.
	bare := bareName(name)
	for _, w := range wanted {
		if strings.EqualFold(name, w) || strings.EqualFold(bare, bareName(w)) {
			return true
		}
	}
	return false
}

func bareName(s string) string {
	for _, sep := range []string{"::", "->", "."} {
		if i := strings.LastIndex(s, sep); i >= 0 {
			s = s[i+len(sep):]
		}
	}
	return s
}
