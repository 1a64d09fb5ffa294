// Package entrypoint classifies functions that are reachable without any
// caller inside the analyzed tree: process entrypoints, exported API,
// service-boundary handlers, and tests.
package entrypoint

import (
	"path"
	"strings"

	"github.com/seclens/vulnreach/internal/extract"
	"github.com/seclens/vulnreach/internal/lang"
)

// Kind classifies why a function is an entrypoint.
type Kind string

const (
	KindMain        Kind = "main"
	KindExport      Kind = "export"
	KindHTTPHandler Kind = "http_handler"
	KindTest        Kind = "test"
	KindInit        Kind = "init"
	KindConfigured  Kind = "configured"
)

// Entrypoint names one function reachable for free, with its classification.
// Multiple Entrypoints may point at the same function.
type Entrypoint struct {
	ID       string `json:"id"`
	File     string `json:"file"`
	Function string `json:"function"`
	Kind     Kind   `json:"kind"`
}

// Options tunes the directory- and name-convention heuristics.
type Options struct {
	// RouteDirs are directory names whose files are treated as
	// service-boundary handlers (routes/, api/, ...).
	RouteDirs []string

	// ExtraFunctions are function names always treated as entrypoints,
	// from configuration.
	ExtraFunctions []string
}

// DefaultRouteDirs is used when Options.RouteDirs is empty.
var DefaultRouteDirs = []string{"routes", "api", "handlers", "controllers"}

// Detect runs the independent per-kind detectors over the extraction results
// and unions their findings. It has no side effects on the graph.
func Detect(l lang.Language, extracts []*extract.FileExtract, opts Options) []Entrypoint {
	spec := lang.ForLanguage(l)
	if spec == nil {
		return nil
	}

	routeDirs := opts.RouteDirs
	if len(routeDirs) == 0 {
		routeDirs = DefaultRouteDirs
	}

	d := &detector{
		spec:      spec,
		routeDirs: toSet(routeDirs),
		extra:     toSet(opts.ExtraFunctions),
	}

	var eps []Entrypoint
	for _, fx := range extracts {
		eps = append(eps, d.detectMain(fx)...)
		eps = append(eps, d.detectExports(fx)...)
		eps = append(eps, d.detectHandlers(fx)...)
		eps = append(eps, d.detectTests(fx)...)
		eps = append(eps, d.detectConfigured(fx)...)
	}
	return eps
}

type detector struct {
	spec      *lang.Spec
	routeDirs map[string]bool
	extra     map[string]bool
}

// detectMain finds the ecosystem's canonical process entrypoints: main
// functions, script entry files (whose top-level code runs on start), and
// Python __main__ guards.
func (d *detector) detectMain(fx *extract.FileExtract) []Entrypoint {
	var eps []Entrypoint

	for _, fn := range fx.Functions {
		if fn.Class != "" {
			continue
		}
		for _, name := range d.spec.MainFunctions {
			if fn.Name == name {
				eps = append(eps, Entrypoint{ID: fn.ID, File: fx.File, Function: fn.Name, Kind: KindMain})
			}
		}
	}

	scriptEntry := false
	base := path.Base(fx.File)
	for _, f := range d.spec.ScriptEntryFiles {
		if base == f {
			scriptEntry = true
		}
	}
	if fx.HasMainGuard {
		scriptEntry = true
	}
	// PHP files execute top to bottom when served; every file's init code is
	// a potential process entry.
	if d.spec.Language == lang.PHP {
		scriptEntry = true
	}

	if scriptEntry {
		for _, fn := range fx.Functions {
			if fn.Name == extract.TopLevelName {
				eps = append(eps, Entrypoint{ID: fn.ID, File: fx.File, Function: fn.Name, Kind: KindInit})
			}
		}
	}

	return eps
}

// detectExports finds the exported API surface: anything a consumer of the
// project as a library could call directly. Go package main is excluded —
// its exports are not linkable API.
func (d *detector) detectExports(fx *extract.FileExtract) []Entrypoint {
	if d.spec.Language == lang.Go && fx.Package == "main" {
		return nil
	}
	if d.isTestFile(fx.File) {
		return nil
	}

	var eps []Entrypoint
	for _, fn := range fx.Functions {
		if !fn.IsPublic || fn.Name == extract.TopLevelName {
			continue
		}
		eps = append(eps, Entrypoint{ID: fn.ID, File: fx.File, Function: fn.Name, Kind: KindExport})
	}
	return eps
}

// detectHandlers approximates framework routing by directory convention:
// every function in a file under a route directory is a handler.
func (d *detector) detectHandlers(fx *extract.FileExtract) []Entrypoint {
	if !d.underRouteDir(fx.File) {
		return nil
	}
	var eps []Entrypoint
	for _, fn := range fx.Functions {
		if fn.Name == extract.TopLevelName {
			continue
		}
		eps = append(eps, Entrypoint{ID: fn.ID, File: fx.File, Function: fn.Name, Kind: KindHTTPHandler})
	}
	return eps
}

// detectTests includes test functions: a scanned repository's own tests are
// entrypoints for reachability purposes.
func (d *detector) detectTests(fx *extract.FileExtract) []Entrypoint {
	if !d.isTestFile(fx.File) {
		return nil
	}
	var eps []Entrypoint
	for _, fn := range fx.Functions {
		if fn.Name == extract.TopLevelName {
			// Spec-style test files (RSpec, pytest collection) run at load.
			eps = append(eps, Entrypoint{ID: fn.ID, File: fx.File, Function: fn.Name, Kind: KindTest})
			continue
		}
		if d.isTestFunc(fn.Name) {
			eps = append(eps, Entrypoint{ID: fn.ID, File: fx.File, Function: fn.Name, Kind: KindTest})
		}
	}
	return eps
}

func (d *detector) detectConfigured(fx *extract.FileExtract) []Entrypoint {
	if len(d.extra) == 0 {
		return nil
	}
	var eps []Entrypoint
	for _, fn := range fx.Functions {
		if d.extra[fn.Name] || d.extra[fn.QualifiedName()] {
			eps = append(eps, Entrypoint{ID: fn.ID, File: fx.File, Function: fn.Name, Kind: KindConfigured})
		}
	}
	return eps
}

func (d *detector) isTestFile(file string) bool {
	base := path.Base(file)
	for _, pattern := range d.spec.TestFilePatterns {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	for _, seg := range strings.Split(path.Dir(file), "/") {
		if seg == "test" || seg == "tests" || seg == "spec" || seg == "__tests__" {
			return true
		}
	}
	return false
}

func (d *detector) isTestFunc(name string) bool {
	if len(d.spec.TestFuncPrefixes) == 0 {
		return true
	}
	for _, prefix := range d.spec.TestFuncPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (d *detector) underRouteDir(file string) bool {
	for _, seg := range strings.Split(path.Dir(file), "/") {
		if d.routeDirs[seg] {
			return true
		}
	}
	return false
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
