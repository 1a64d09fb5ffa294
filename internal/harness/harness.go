// Package harness provides the yaml-driven fixture runner for the analyzer.
// Each testdata directory holds a small project plus an expected.yaml naming
// the functions that must come out reachable, unreachable, and as
// entrypoints.
package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seclens/vulnreach/internal/lang"
	"github.com/seclens/vulnreach/pkg/vulnreach"
)

// TestCase represents a single fixture scenario.
type TestCase struct {
	// Dir is the directory containing the fixture, relative to testdata.
	Dir string `yaml:"-"`

	// Language names the language to analyze the fixture as.
	Language string `yaml:"language"`

	// Conservative is true when the fixture must downgrade to mark-all
	// reachability.
	Conservative bool `yaml:"conservative"`

	// Reason, when set, must be a substring of the downgrade reason.
	Reason string `yaml:"reason,omitempty"`

	// ExpectedReachable and ExpectedUnreachable name functions whose
	// reachability verdict is pinned.
	ExpectedReachable   []ExpectedFunc `yaml:"expected_reachable"`
	ExpectedUnreachable []ExpectedFunc `yaml:"expected_unreachable"`

	// ExpectedEntrypoints names function/kind pairs that must be detected.
	ExpectedEntrypoints []ExpectedEntrypoint `yaml:"expected_entrypoints"`

	// Vulnerabilities are advisories to map against the fixture.
	Vulnerabilities []VulnCase `yaml:"vulnerabilities"`
}

// ExpectedFunc pins the verdict for one function.
type ExpectedFunc struct {
	// FuncName is the bare function name.
	FuncName string `yaml:"func"`

	// File optionally restricts the match to nodes whose file path ends
	// with this suffix, for names declared in more than one file.
	File string `yaml:"file,omitempty"`
}

// ExpectedEntrypoint pins one detected entrypoint.
type ExpectedEntrypoint struct {
	FuncName string `yaml:"func"`
	Kind     string `yaml:"kind"`
}

// VulnCase maps one advisory against the fixture and pins the verdict.
type VulnCase struct {
	Package   string   `yaml:"package"`
	Functions []string `yaml:"functions"`
	Reachable bool     `yaml:"reachable"`

	// ExpectChain requires a non-empty call chain when reachable.
	ExpectChain bool `yaml:"expect_chain,omitempty"`
}

// TestHarness manages fixture execution.
type TestHarness struct {
	// root is the testdata directory.
	root string
}

// NewHarness creates a harness rooted at the testdata directory.
func NewHarness(root string) *TestHarness {
	return &TestHarness{root: root}
}

// Run analyzes the fixture and validates every expectation.
func (h *TestHarness) Run(t *testing.T, tc *TestCase) {
	t.Helper()

	l, err := lang.FromName(tc.Language)
	require.NoError(t, err, "fixture %s: bad language", tc.Dir)

	report, err := vulnreach.Analyze(context.Background(), vulnreach.Options{
		Root:     filepath.Join(h.root, tc.Dir),
		Language: l,
	})
	require.NoError(t, err, "fixture %s: analysis failed", tc.Dir)

	require.Equal(t, tc.Conservative, report.Mode.Conservative,
		"fixture %s: wrong analysis mode (reason: %q)", tc.Dir, report.Mode.Reason)
	if tc.Reason != "" {
		require.Contains(t, report.Mode.Reason, tc.Reason, "fixture %s", tc.Dir)
	}

	for _, exp := range tc.ExpectedReachable {
		ids := matchFunctions(report, exp)
		require.NotEmpty(t, ids, "fixture %s: function %s not in graph (have: %s)",
			tc.Dir, exp.FuncName, functionInventory(report))
		require.True(t, anyReachable(report, ids),
			"fixture %s: %s should be reachable, matched ids: %v", tc.Dir, exp.FuncName, ids)
	}

	for _, exp := range tc.ExpectedUnreachable {
		ids := matchFunctions(report, exp)
		require.NotEmpty(t, ids, "fixture %s: function %s not in graph (have: %s)",
			tc.Dir, exp.FuncName, functionInventory(report))
		require.False(t, anyReachable(report, ids),
			"fixture %s: %s should be unreachable, matched ids: %v", tc.Dir, exp.FuncName, ids)
	}

	for _, exp := range tc.ExpectedEntrypoints {
		require.True(t, hasEntrypoint(report, exp),
			"fixture %s: missing entrypoint %s (%s), detected: %v",
			tc.Dir, exp.FuncName, exp.Kind, report.Entrypoints)
	}

	for _, vc := range tc.Vulnerabilities {
		vr := report.MapVulnerability(vulnreach.Vulnerability{
			ID:        fmt.Sprintf("fixture-%s-%s", tc.Dir, vc.Package),
			Package:   vc.Package,
			Functions: vc.Functions,
		})
		require.Equal(t, vc.Reachable, vr.Reachable,
			"fixture %s: vulnerability in %s, matched: %v", tc.Dir, vc.Package, vr.MatchedFunctions)
		if vc.ExpectChain && vc.Reachable {
			require.NotEmpty(t, vr.CallChain,
				"fixture %s: no call chain for reachable vulnerability in %s", tc.Dir, vc.Package)
		}
	}
}

// matchFunctions returns the ids of all non-placeholder functions matching
// the expectation.
func matchFunctions(report *vulnreach.Report, exp ExpectedFunc) []string {
	var ids []string
	for id, n := range report.AllFunctions {
		if n.Placeholder || n.Name != exp.FuncName {
			continue
		}
		if exp.File != "" && !strings.HasSuffix(n.File, exp.File) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func anyReachable(report *vulnreach.Report, ids []string) bool {
	for _, id := range ids {
		if report.FunctionReachable(id) {
			return true
		}
	}
	return false
}

func hasEntrypoint(report *vulnreach.Report, exp ExpectedEntrypoint) bool {
	for _, ep := range report.Entrypoints {
		if ep.Function != exp.FuncName {
			continue
		}
		if exp.Kind == "" || string(ep.Kind) == exp.Kind {
			return true
		}
	}
	return false
}

// functionInventory renders the graph's declared functions for failure
// messages.
func functionInventory(report *vulnreach.Report) string {
	var names []string
	for _, n := range report.AllFunctions {
		if n.Placeholder {
			continue
		}
		names = append(names, n.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
