package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/seclens/vulnreach/internal/lang"
	"github.com/seclens/vulnreach/internal/parser"
)

// functionName returns the declared name of a function node, or "" for
// anonymous functions. Every supported grammar exposes the name through a
// "name" field.
func (w *fileWalk) functionName(node *tree_sitter.Node) string {
	return w.fieldText(node, "name")
}

// className returns the name of a class-scope node. Rust impl blocks carry
// the type in a "type" field instead of "name".
func (w *fileWalk) className(node *tree_sitter.Node) string {
	if w.extractor.spec.Language == lang.Rust && node.Kind() == "impl_item" {
		name := w.fieldText(node, "type")
		// Strip generic arguments: "Vec<T>" scopes methods under "Vec".
		if i := strings.IndexByte(name, '<'); i > 0 {
			name = name[:i]
		}
		return name
	}
	return w.fieldText(node, "name")
}

// goReceiver returns the receiver type name of a Go method declaration, with
// any pointer marker stripped, or "" for plain functions.
func (w *fileWalk) goReceiver(node *tree_sitter.Node) string {
	if w.extractor.spec.Language != lang.Go || node.Kind() != "method_declaration" {
		return ""
	}
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	// receiver: (parameter_list (parameter_declaration name type))
	for i := uint(0); i < recv.NamedChildCount(); i++ {
		decl := recv.NamedChild(i)
		if decl == nil {
			continue
		}
		typ := parser.NodeText(decl.ChildByFieldName("type"), w.source)
		typ = strings.TrimPrefix(typ, "*")
		if j := strings.IndexByte(typ, '['); j > 0 {
			typ = typ[:j]
		}
		if typ != "" {
			return typ
		}
	}
	return ""
}

// calleeName returns the callee expression of a call node as written, or ""
// when the callee is not a plain name, selector, or scoped path.
func (w *fileWalk) calleeName(node *tree_sitter.Node) string {
	switch w.extractor.spec.Language {
	case lang.Ruby:
		return w.rubyCallee(node)
	case lang.PHP:
		return w.phpCallee(node)
	}

	if node.Kind() == "new_expression" {
		if ctor := node.ChildByFieldName("constructor"); ctor != nil {
			return parser.NodeText(ctor, w.source)
		}
		return ""
	}

	fn := node.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier", "selector_expression", "member_expression",
		"attribute", "field_expression", "scoped_identifier":
		return parser.NodeText(fn, w.source)
	case "parenthesized_expression":
		// (fn)() — callee is computed, not a name.
		return ""
	}
	return ""
}

// rubyCallee combines receiver and method for qualified calls; bare calls
// use the method name alone.
func (w *fileWalk) rubyCallee(node *tree_sitter.Node) string {
	method := w.fieldText(node, "method")
	if method == "" {
		return ""
	}
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return method
	}
	switch recv.Kind() {
	case "identifier", "constant", "self", "scope_resolution":
		return parser.NodeText(recv, w.source) + "." + method
	}
	return method
}

// phpCallee handles the PHP call-expression family.
func (w *fileWalk) phpCallee(node *tree_sitter.Node) string {
	switch node.Kind() {
	case "function_call_expression":
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return ""
		}
		switch fn.Kind() {
		case "name", "qualified_name":
			return parser.NodeText(fn, w.source)
		case "variable_name":
			// Variable function: the name is the variable, the target is
			// unknowable statically. Recorded so the dynamic check fires.
			return parser.NodeText(fn, w.source)
		}
		return ""
	case "member_call_expression":
		name := w.fieldText(node, "name")
		if name == "" {
			return ""
		}
		if obj := node.ChildByFieldName("object"); obj != nil && obj.Kind() == "variable_name" {
			return parser.NodeText(obj, w.source) + "->" + name
		}
		return name
	case "scoped_call_expression":
		name := w.fieldText(node, "name")
		scope := w.fieldText(node, "scope")
		if scope != "" && name != "" {
			return scope + "::" + name
		}
		return name
	case "object_creation_expression":
		// new Foo(...) — constructor call on the class name.
		for i := uint(0); i < node.NamedChildCount(); i++ {
			c := node.NamedChild(i)
			if c != nil && (c.Kind() == "name" || c.Kind() == "qualified_name") {
				return parser.NodeText(c, w.source)
			}
		}
		return ""
	}
	return ""
}
