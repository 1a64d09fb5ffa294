package ssagraph

import (
	"go/ast"
	"go/token"
	"strings"

	"golang.org/x/tools/go/packages"
)

// directiveFuncPositions finds functions made externally callable by
// compiler directives: //export (cgo) and //go:linkname. Such functions have
// no in-module caller the call graph can see, so they count as entrypoints.
func directiveFuncPositions(pkgs []*packages.Package) map[token.Pos]bool {
	out := make(map[token.Pos]bool)
	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			for _, decl := range file.Decls {
				fd, ok := decl.(*ast.FuncDecl)
				if !ok || fd.Doc == nil {
					continue
				}
				for _, comment := range fd.Doc.List {
					if isExportDirective(comment.Text) {
						out[fd.Name.Pos()] = true
						break
					}
				}
			}
		}
	}
	return out
}

func isExportDirective(comment string) bool {
	// Directives are glued to the slashes; "// export" is prose.
	text := strings.TrimPrefix(comment, "//")
	if strings.HasPrefix(text, "export ") {
		return true
	}
	if strings.HasPrefix(comment, "// ") {
		return false
	}
	return strings.HasPrefix(text, "go:linkname ") || text == "go:linkname"
}
