package vulnreach

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seclens/vulnreach/internal/callgraph"
	"github.com/seclens/vulnreach/internal/entrypoint"
	"github.com/seclens/vulnreach/internal/lang"
)

// demoReport builds a report where main -> parse -> lodash.template and
// an unreachable sibling exists.
func demoReport(t *testing.T) *Report {
	t.Helper()
	g := callgraph.New()
	g.AddFunction(callgraph.FunctionNode{ID: "index.js::main", Name: "main", File: "index.js"})
	g.AddFunction(callgraph.FunctionNode{ID: "index.js::parse", Name: "parse", File: "index.js"})
	g.AddFunction(callgraph.FunctionNode{ID: "index.js::dead", Name: "dead", File: "index.js"})
	g.AddFunction(callgraph.FunctionNode{ID: "external::lodash.template", Name: "lodash.template", Placeholder: true})
	g.AddCall("index.js::main", "index.js::parse")
	g.AddCall("index.js::parse", "external::lodash.template")
	g.AddCall("index.js::dead", "external::lodash.template")
	require.NoError(t, g.MarkEntrypoint("index.js::main"))
	g.AnalyzeReachability()

	eps := []entrypoint.Entrypoint{{ID: "index.js::main", Function: "main", File: "index.js", Kind: entrypoint.KindMain}}
	return buildReport(".", lang.JavaScript, Mode{}, g, eps, nil)
}

func TestMapVulnerabilityReachable(t *testing.T) {
	r := demoReport(t)

	vr := r.MapVulnerability(Vulnerability{
		ID:        "GHSA-35jh-r3h4-6jhm",
		Package:   "lodash",
		Functions: []string{"template"},
	})

	require.True(t, vr.Reachable)
	require.Equal(t, []string{"external::lodash.template"}, vr.MatchedFunctions)
	require.Equal(t,
		[]string{"index.js::main", "index.js::parse", "external::lodash.template"},
		vr.CallChain)
}

func TestMapVulnerabilityUnreachableFunction(t *testing.T) {
	r := demoReport(t)

	vr := r.MapVulnerability(Vulnerability{
		ID:        "CVE-2024-0001",
		Package:   "index",
		Functions: []string{"dead"},
	})

	require.False(t, vr.Reachable)
	require.Equal(t, []string{"index.js::dead"}, vr.MatchedFunctions)
	require.Empty(t, vr.CallChain)
}

func TestMapVulnerabilityNoMatch(t *testing.T) {
	r := demoReport(t)

	vr := r.MapVulnerability(Vulnerability{ID: "CVE-2024-0002", Package: "left-pad"})
	require.False(t, vr.Reachable)
	require.Empty(t, vr.MatchedFunctions)
}

func TestMapVulnerabilityWholePackage(t *testing.T) {
	r := demoReport(t)

	// No function list: any function of the package counts.
	vr := r.MapVulnerability(Vulnerability{ID: "CVE-2024-0003", Package: "lodash"})
	require.True(t, vr.Reachable)
}

func TestMapVulnerabilitiesPreservesOrder(t *testing.T) {
	r := demoReport(t)

	results := r.MapVulnerabilities([]Vulnerability{
		{ID: "first", Package: "left-pad"},
		{ID: "second", Package: "lodash", Functions: []string{"template"}},
	})
	require.Len(t, results, 2)
	require.Equal(t, "first", results[0].Vulnerability.ID)
	require.False(t, results[0].Reachable)
	require.True(t, results[1].Reachable)
}

func TestMapVulnerabilityRecordsIntoReport(t *testing.T) {
	r := demoReport(t)
	require.Empty(t, r.Vulnerabilities, "fresh report starts with no verdicts")

	r.MapVulnerability(Vulnerability{ID: "solo", Package: "lodash", Functions: []string{"template"}})
	r.MapVulnerabilities([]Vulnerability{
		{ID: "first", Package: "left-pad"},
		{ID: "second", Package: "lodash"},
	})

	require.Len(t, r.Vulnerabilities, 3)
	require.Equal(t, "solo", r.Vulnerabilities[0].Vulnerability.ID)
	require.Equal(t, "first", r.Vulnerabilities[1].Vulnerability.ID)
	require.Equal(t, "second", r.Vulnerabilities[2].Vulnerability.ID)
	require.True(t, r.Vulnerabilities[0].Reachable)
}

func TestReportPartition(t *testing.T) {
	r := demoReport(t)

	require.ElementsMatch(t,
		[]string{"external::lodash.template", "index.js::main", "index.js::parse"},
		r.ReachableFunctions)
	require.ElementsMatch(t, []string{"index.js::dead"}, r.UnreachableFunctions)
	require.Len(t, r.AllFunctions, len(r.ReachableFunctions)+len(r.UnreachableFunctions))
}

func TestReportCallChainHelpers(t *testing.T) {
	r := demoReport(t)

	require.True(t, r.FunctionReachable("index.js::parse"))
	require.False(t, r.FunctionReachable("index.js::dead"))
	require.False(t, r.FunctionReachable("not-a-function"))

	require.Nil(t, r.CallChain("index.js::dead"))
	require.Equal(t, []string{"index.js::main"}, r.CallChain("index.js::main"))
}
