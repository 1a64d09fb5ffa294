// Package ssagraph builds an exact call graph for Go modules using SSA.
// It replaces the syntax-level adapter when a go.mod is present: call edges
// come from typed SSA call instructions instead of name matching.
package ssagraph

import (
	"context"
	"fmt"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/seclens/vulnreach/internal/callgraph"
	"github.com/seclens/vulnreach/internal/entrypoint"
	"github.com/seclens/vulnreach/internal/extract"
	"github.com/seclens/vulnreach/internal/lang"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedModule

// Populate loads the module rooted at root, builds its SSA program, and
// fills g with one node per function of the module plus the static call
// edges between them. It returns the detected entrypoints.
func Populate(ctx context.Context, root string, g *callgraph.Graph) ([]entrypoint.Entrypoint, error) {
	modulePath, err := readModulePath(root)
	if err != nil {
		return nil, err
	}

	cfg := &packages.Config{
		Mode:    loadMode,
		Context: ctx,
		Dir:     root,
		Tests:   true,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("packages in %s contain errors", root)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages under %s", root)
	}

	prog, _ := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics|ssa.BareInits)
	if prog == nil {
		return nil, fmt.Errorf("SSA program construction failed")
	}
	prog.Build()

	b := &builder{
		root:       root,
		modulePath: modulePath,
		fset:       prog.Fset,
		graph:      g,
		directives: directiveFuncPositions(pkgs),
	}

	var decls, all []*ssa.Function
	for fn := range ssautil.AllFunctions(prog) {
		if fn == nil || fn.Synthetic == "wrapper" {
			continue
		}
		if !b.inModule(fn) {
			continue
		}
		all = append(all, fn)
		// Anonymous functions fold into their enclosing declaration: a
		// closure body is still that declaration's code.
		if fn.Parent() == nil {
			b.addFunction(fn)
			decls = append(decls, fn)
		}
	}
	for _, fn := range all {
		b.addCallEdges(fn)
	}

	return b.detectEntrypoints(decls), nil
}

type builder struct {
	root       string
	modulePath string
	fset       *token.FileSet
	graph      *callgraph.Graph

	// directives holds name positions of functions exposed by //export or
	// //go:linkname.
	directives map[token.Pos]bool
}

// inModule keeps only functions declared in the analyzed module, dropping
// dependencies and the runtime.
func (b *builder) inModule(fn *ssa.Function) bool {
	if fn.Pkg == nil || fn.Pkg.Pkg == nil {
		return false
	}
	path := fn.Pkg.Pkg.Path()
	return path == b.modulePath || strings.HasPrefix(path, b.modulePath+"/")
}

// functionID derives the same identity shape the syntax adapter uses, so
// reports from both adapters look alike.
func (b *builder) functionID(fn *ssa.Function) string {
	file, _, _ := b.position(fn)
	return extract.FunctionID(file, fn.Pkg.Pkg.Name(), receiverName(fn), fn.Name())
}

func (b *builder) position(fn *ssa.Function) (file string, line, column int) {
	pos := b.fset.Position(fn.Pos())
	if !pos.IsValid() {
		return fn.Pkg.Pkg.Path(), 0, 0
	}
	rel, err := filepath.Rel(b.root, pos.Filename)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = pos.Filename
	}
	return filepath.ToSlash(rel), pos.Line, pos.Column
}

func (b *builder) addFunction(fn *ssa.Function) {
	file, line, column := b.position(fn)
	b.graph.AddFunction(callgraph.FunctionNode{
		ID:        b.functionID(fn),
		Name:      fn.Name(),
		File:      file,
		Line:      line,
		Column:    column,
		Language:  string(lang.Go),
		Namespace: fn.Pkg.Pkg.Name(),
		Class:     receiverName(fn),
		IsPublic:  fn.Object() != nil && fn.Object().Exported(),
	})
}

// addCallEdges records every static callee of fn that belongs to the module.
// Calls into dependencies are dropped: they cannot lead back into module
// code without an edge SSA would also see.
func (b *builder) addCallEdges(fn *ssa.Function) {
	caller := fn
	for caller.Parent() != nil {
		caller = caller.Parent()
	}
	callerID := b.functionID(caller)
	for _, block := range fn.Blocks {
		for _, instr := range block.Instrs {
			call, ok := instr.(ssa.CallInstruction)
			if !ok {
				continue
			}
			callee := call.Common().StaticCallee()
			if callee == nil || !b.inModule(callee) {
				continue
			}
			// Anonymous functions fold into their enclosing declaration.
			for callee.Parent() != nil {
				callee = callee.Parent()
			}
			b.graph.AddCall(callerID, b.functionID(callee))
		}
	}
}

// detectEntrypoints applies the Go entrypoint policy: main and init always,
// tests, directive-exported functions, and exported functions of library
// packages.
func (b *builder) detectEntrypoints(fns []*ssa.Function) []entrypoint.Entrypoint {
	var eps []entrypoint.Entrypoint
	seen := make(map[string]bool)

	add := func(fn *ssa.Function, kind entrypoint.Kind) {
		id := b.functionID(fn)
		if seen[id] {
			return
		}
		seen[id] = true
		file, _, _ := b.position(fn)
		eps = append(eps, entrypoint.Entrypoint{
			ID:       id,
			File:     file,
			Function: fn.Name(),
			Kind:     kind,
		})
	}

	for _, fn := range fns {
		name := fn.Name()
		pkgName := fn.Pkg.Pkg.Name()
		switch {
		case name == "main" && pkgName == "main":
			add(fn, entrypoint.KindMain)
		case name == "init" || strings.HasPrefix(name, "init#"):
			add(fn, entrypoint.KindInit)
		case isTestFunc(name):
			add(fn, entrypoint.KindTest)
		case fn.Object() != nil && b.directives[fn.Object().Pos()]:
			add(fn, entrypoint.KindExport)
		case pkgName != "main" && fn.Object() != nil && fn.Object().Exported() && !isInternalPackage(fn.Pkg.Pkg.Path()):
			add(fn, entrypoint.KindExport)
		}
	}
	return eps
}

func isTestFunc(name string) bool {
	return strings.HasPrefix(name, "Test") ||
		strings.HasPrefix(name, "Benchmark") ||
		strings.HasPrefix(name, "Fuzz") ||
		strings.HasPrefix(name, "Example")
}

func isInternalPackage(pkgPath string) bool {
	return strings.Contains(pkgPath, "/internal/") ||
		strings.HasSuffix(pkgPath, "/internal") ||
		strings.HasPrefix(pkgPath, "internal/")
}

func receiverName(fn *ssa.Function) string {
	obj := fn.Object()
	if obj == nil {
		return ""
	}
	sig, ok := obj.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return ""
	}
	t := sig.Recv().Type()
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*types.Named); ok {
		return named.Obj().Name()
	}
	return ""
}

func readModulePath(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("no module path in %s", filepath.Join(root, "go.mod"))
	}
	return path, nil
}
