package extract

import "strings"

// FunctionID builds the stable identity of a declaration. It is a total
// function of its inputs: the same (file, namespace, class, name) always
// yields the same id within a run. The format is
//
//	<file>::<namespace>.<class>.<name>
//
// with empty components omitted, which keeps ids readable in call chains
// and test output.
func FunctionID(file, namespace, class, name string) string {
	parts := make([]string, 0, 3)
	if namespace != "" {
		parts = append(parts, namespace)
	}
	if class != "" {
		parts = append(parts, class)
	}
	parts = append(parts, name)
	return file + "::" + strings.Join(parts, ".")
}

// QualifiedName returns the namespace/class-qualified display name of a
// function without its file component.
func (f Function) QualifiedName() string {
	parts := make([]string, 0, 3)
	if f.Namespace != "" {
		parts = append(parts, f.Namespace)
	}
	if f.Class != "" {
		parts = append(parts, f.Class)
	}
	parts = append(parts, f.Name)
	return strings.Join(parts, ".")
}
