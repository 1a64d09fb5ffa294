// Package extract parses one source file into declared functions, call sites
// with their enclosing function, and dynamic-code warnings.
package extract

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/seclens/vulnreach/internal/lang"
	"github.com/seclens/vulnreach/internal/parser"
)

// TopLevelName is the name of the synthetic pseudo-function that owns calls
// occurring outside any declaration (module init code).
const TopLevelName = "(toplevel)"

// Function is one declared function or method with its qualified identity.
type Function struct {
	ID        string
	Name      string
	File      string
	Line      int
	Column    int
	Namespace string
	Class     string
	IsPublic  bool
	IsStatic  bool
	IsAsync   bool
}

// Call is one call site tagged with its lexically enclosing function.
type Call struct {
	CallerID string
	// Callee is the callee expression as written ("helper", "obj.method",
	// "pkg.Func"). Resolution to a declared function happens at merge time.
	Callee string
	File   string
	Line   int
}

// Warning reports a dynamic-code construct that degrades analysis precision.
type Warning struct {
	File        string
	Line        int
	Kind        string
	Description string
}

// FileExtract is the result of extracting a single file.
type FileExtract struct {
	File      string
	Language  lang.Language
	Functions []Function
	Calls     []Call
	Warnings  []Warning

	// Dynamic is true when any unsuppressed dynamic-code primitive was seen.
	Dynamic bool

	// HasMainGuard is true for Python files carrying an
	// `if __name__ == "__main__"` block.
	HasMainGuard bool

	// Package is the declared package/module name where the grammar exposes
	// one (Go package clause). Empty elsewhere.
	Package string
}

// allowDynamicMarker suppresses the dynamic-code warning for the call on the
// same source line, for callers that have verified the dispatch target set.
const allowDynamicMarker = "vulnreach:allow-dynamic"

// Extractor extracts functions and calls for one language.
type Extractor struct {
	spec *lang.Spec

	// extraDynamic extends the language's dynamic primitive set from config.
	extraDynamic map[string]bool
}

// New returns an Extractor for l. extraDynamic adds configured callee names
// to the language's dynamic-primitive set.
func New(l lang.Language, extraDynamic []string) (*Extractor, error) {
	spec := lang.ForLanguage(l)
	if spec == nil {
		return nil, fmt.Errorf("extract: unsupported language %q", l)
	}
	extra := make(map[string]bool, len(extraDynamic))
	for _, p := range extraDynamic {
		extra[p] = true
	}
	return &Extractor{spec: spec, extraDynamic: extra}, nil
}

// Extract parses source and returns the file's functions, calls, and
// warnings. Parse failures are recoverable: the caller logs and moves on.
func (e *Extractor) Extract(relPath string, source []byte) (*FileExtract, error) {
	tree, err := parser.Parse(e.spec.Language, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &fileWalk{
		extractor: e,
		fx: &FileExtract{
			File:     relPath,
			Language: e.spec.Language,
		},
		source: source,
		lines:  strings.Split(string(source), "\n"),
	}
	w.walk(tree.RootNode(), scope{})
	return w.fx, nil
}

// scope is the immutable traversal context passed down the tree. Passing it
// by value means child scopes cannot leak back up, which removes the
// save/restore bugs a mutable current-class field invites.
type scope struct {
	namespace string
	class     string
	funcID    string
}

type fileWalk struct {
	extractor *Extractor
	fx        *FileExtract
	source    []byte
	lines     []string

	topLevelID string
}

func (w *fileWalk) walk(node *tree_sitter.Node, sc scope) {
	if node == nil {
		return
	}
	spec := w.extractor.spec
	kind := node.Kind()

	switch {
	case spec.IsNamespaceKind(kind):
		name := w.fieldText(node, "name")
		child := sc
		if name != "" {
			child.namespace = qualify(sc.namespace, name)
		}
		w.walkChildren(node, child)
		return

	case spec.IsClassKind(kind):
		name := w.className(node)
		child := sc
		if name != "" {
			child.class = name
		}
		w.walkChildren(node, child)
		return

	case spec.IsFunctionKind(kind):
		fn, ok := w.declareFunction(node, sc)
		if !ok {
			w.walkChildren(node, sc)
			return
		}
		child := sc
		child.funcID = fn.ID
		w.walkChildren(node, child)
		return

	case spec.IsCallKind(kind):
		w.recordCall(node, sc)
		// Arguments may contain nested calls and closures.
		w.walkChildren(node, sc)
		return
	}

	switch spec.Language {
	case lang.Go:
		if kind == "package_clause" {
			for i := uint(0); i < node.NamedChildCount(); i++ {
				if c := node.NamedChild(i); c != nil && c.Kind() == "package_identifier" {
					w.fx.Package = parser.NodeText(c, w.source)
				}
			}
		}
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		// const f = () => {...} declares a named function through a
		// variable binding.
		if kind == "variable_declarator" && w.declareArrowBinding(node, sc) {
			return
		}
	case lang.Python:
		if kind == "if_statement" && sc.funcID == "" &&
			strings.Contains(parser.NodeText(node.ChildByFieldName("condition"), w.source), "__main__") {
			w.fx.HasMainGuard = true
		}
	}

	w.walkChildren(node, sc)
}

func (w *fileWalk) walkChildren(node *tree_sitter.Node, sc scope) {
	for i := uint(0); i < node.ChildCount(); i++ {
		w.walk(node.Child(i), sc)
	}
}

// declareFunction records a named function declaration and returns it.
// Anonymous declarations are skipped (ok=false) so their bodies attribute
// calls to the surrounding scope.
func (w *fileWalk) declareFunction(node *tree_sitter.Node, sc scope) (Function, bool) {
	name := w.functionName(node)
	if name == "" {
		return Function{}, false
	}

	class := sc.class
	if recv := w.goReceiver(node); recv != "" {
		class = recv
	}

	fn := Function{
		ID:        FunctionID(w.fx.File, sc.namespace, class, name),
		Name:      name,
		File:      w.fx.File,
		Line:      parser.Line(node),
		Column:    parser.Column(node),
		Namespace: sc.namespace,
		Class:     class,
	}
	fn.IsPublic = w.isPublic(node, name)
	fn.IsStatic = w.isStatic(node)
	fn.IsAsync = w.isAsync(node)

	w.fx.Functions = append(w.fx.Functions, fn)
	return fn, true
}

// declareArrowBinding handles `const f = () => {...}` and
// `const f = function() {...}` in the JavaScript family. Returns true when
// the binding was treated as a function declaration.
func (w *fileWalk) declareArrowBinding(node *tree_sitter.Node, sc scope) bool {
	value := node.ChildByFieldName("value")
	if value == nil {
		return false
	}
	switch value.Kind() {
	case "arrow_function", "function_expression", "generator_function", "function":
	default:
		return false
	}
	name := w.fieldText(node, "name")
	if name == "" {
		return false
	}

	fn := Function{
		ID:        FunctionID(w.fx.File, sc.namespace, sc.class, name),
		Name:      name,
		File:      w.fx.File,
		Line:      parser.Line(node),
		Column:    parser.Column(node),
		Namespace: sc.namespace,
		Class:     sc.class,
		IsPublic:  w.hasExportAncestor(node),
		IsAsync:   hasChildKind(value, "async"),
	}
	w.fx.Functions = append(w.fx.Functions, fn)

	child := sc
	child.funcID = fn.ID
	w.walkChildren(value, child)
	return true
}

// recordCall records one call site under its enclosing function, or under
// the synthetic top-level pseudo-function when the call occurs at module
// scope. Dynamic primitives additionally raise a warning.
func (w *fileWalk) recordCall(node *tree_sitter.Node, sc scope) {
	callee := w.calleeName(node)
	if callee == "" {
		return
	}

	callerID := sc.funcID
	if callerID == "" {
		callerID = w.topLevel()
	}

	line := parser.Line(node)
	w.fx.Calls = append(w.fx.Calls, Call{
		CallerID: callerID,
		Callee:   callee,
		File:     w.fx.File,
		Line:     line,
	})

	if w.isDynamic(node, callee) {
		if w.lineSuppressed(line) {
			return
		}
		w.fx.Dynamic = true
		w.fx.Warnings = append(w.fx.Warnings, Warning{
			File:        w.fx.File,
			Line:        line,
			Kind:        callee,
			Description: fmt.Sprintf("call to dynamic primitive %q defeats static call resolution", callee),
		})
	}
}

func (w *fileWalk) isDynamic(node *tree_sitter.Node, callee string) bool {
	if w.extractor.spec.IsDynamicPrimitive(callee) || w.extractor.extraDynamic[callee] {
		return true
	}
	// PHP variable functions ($fn()) dispatch by value and are equally
	// opaque to static resolution.
	if w.extractor.spec.Language == lang.PHP && node.Kind() == "function_call_expression" {
		if fn := node.ChildByFieldName("function"); fn != nil && fn.Kind() == "variable_name" {
			return true
		}
	}
	return false
}

// lineSuppressed reports whether the 1-based source line carries the
// allow-dynamic marker comment.
func (w *fileWalk) lineSuppressed(line int) bool {
	if line < 1 || line > len(w.lines) {
		return false
	}
	return strings.Contains(w.lines[line-1], allowDynamicMarker)
}

// topLevel lazily declares the module-init pseudo-function.
func (w *fileWalk) topLevel() string {
	if w.topLevelID != "" {
		return w.topLevelID
	}
	fn := Function{
		ID:     FunctionID(w.fx.File, "", "", TopLevelName),
		Name:   TopLevelName,
		File:   w.fx.File,
		Line:   1,
		Column: 1,
	}
	w.fx.Functions = append(w.fx.Functions, fn)
	w.topLevelID = fn.ID
	return fn.ID
}

func (w *fileWalk) fieldText(node *tree_sitter.Node, field string) string {
	return parser.NodeText(node.ChildByFieldName(field), w.source)
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func hasChildKind(node *tree_sitter.Node, kind string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c != nil && c.Kind() == kind {
			return true
		}
	}
	return false
}
