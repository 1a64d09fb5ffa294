package vulnreach

import (
	"sort"
	"strings"

	"github.com/seclens/vulnreach/internal/callgraph"
	"github.com/seclens/vulnreach/internal/extract"
)

// resolver binds callee names recorded by the extractor to function ids.
// Resolution runs single-threaded after all files are extracted, so the
// indexes here see the whole project.
type resolver struct {
	// byFileName maps file -> bare function name -> ids declared there.
	byFileName map[string]map[string][]string
	// byName maps bare function name -> all ids project-wide.
	byName map[string][]string
}

func newResolver(extracts []*extract.FileExtract) *resolver {
	r := &resolver{
		byFileName: make(map[string]map[string][]string),
		byName:     make(map[string][]string),
	}
	for _, fx := range extracts {
		for _, fn := range fx.Functions {
			perFile := r.byFileName[fn.File]
			if perFile == nil {
				perFile = make(map[string][]string)
				r.byFileName[fn.File] = perFile
			}
			perFile[fn.Name] = append(perFile[fn.Name], fn.ID)
			r.byName[fn.Name] = append(r.byName[fn.Name], fn.ID)
		}
	}
	return r
}

// resolve returns the id a call should target. Bare names bind to a
// declaration in the same file first, then to a project-wide unique match.
// Qualified names (a.b, A::b, $x->b) bind on their last segment the same
// way. Anything still ambiguous or unknown gets a synthetic placeholder id
// so the edge survives into the graph.
func (r *resolver) resolve(call extract.Call) (string, bool) {
	name := lastSegment(call.Callee)
	if name == "" {
		return "", false
	}

	if ids := r.byFileName[call.File][name]; len(ids) > 0 {
		return ids[0], true
	}
	if ids := r.byName[name]; len(ids) == 1 {
		return ids[0], true
	}
	return "external::" + call.Callee, false
}

func lastSegment(callee string) string {
	s := callee
	for _, sep := range []string{"::", "->", "."} {
		if i := strings.LastIndex(s, sep); i >= 0 {
			s = s[i+len(sep):]
		}
	}
	return s
}

// mergeIntoGraph folds per-file extracts into one graph: declarations
// first, then resolved call edges. Returns the dynamic-code warnings in
// deterministic order.
func mergeIntoGraph(g *callgraph.Graph, extracts []*extract.FileExtract, language string) []extract.Warning {
	var warnings []extract.Warning

	for _, fx := range extracts {
		for _, fn := range fx.Functions {
			g.AddFunction(callgraph.FunctionNode{
				ID:        fn.ID,
				Name:      fn.Name,
				File:      fn.File,
				Line:      fn.Line,
				Column:    fn.Column,
				Language:  language,
				Namespace: fn.Namespace,
				Class:     fn.Class,
				IsPublic:  fn.IsPublic,
				IsStatic:  fn.IsStatic,
				IsAsync:   fn.IsAsync,
			})
		}
	}

	r := newResolver(extracts)
	for _, fx := range extracts {
		for _, call := range fx.Calls {
			calleeID, resolved := r.resolve(call)
			if calleeID == "" {
				continue
			}
			if !resolved {
				g.AddFunction(callgraph.FunctionNode{
					ID:          calleeID,
					Name:        call.Callee,
					Language:    language,
					Placeholder: true,
				})
			}
			g.AddCall(call.CallerID, calleeID)
		}
		warnings = append(warnings, fx.Warnings...)
	}

	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].File != warnings[j].File {
			return warnings[i].File < warnings[j].File
		}
		return warnings[i].Line < warnings[j].Line
	})
	return warnings
}
