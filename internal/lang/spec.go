package lang

import (
	"slices"
	"strings"
)

// Spec captures the per-language AST and naming conventions the extractor
// and entrypoint detector rely on. Node kind names follow the language's
// tree-sitter grammar.
type Spec struct {
	Language Language

	// Extensions are the file extensions (with dot) this language claims.
	Extensions []string

	// FunctionKinds are the node kinds that declare a named function or method.
	FunctionKinds []string

	// ClassKinds are the node kinds that open a class-like scope.
	ClassKinds []string

	// NamespaceKinds are the node kinds that open a namespace/module scope.
	NamespaceKinds []string

	// CallKinds are the node kinds representing a call site.
	CallKinds []string

	// DynamicPrimitives is the closed set of callee names whose presence means
	// control flow can no longer be resolved statically (eval, reflection,
	// dispatch by name). Matching is by full callee text or its last segment.
	DynamicPrimitives []string

	// MainFunctions are the canonical process-entrypoint function names.
	MainFunctions []string

	// TestFilePatterns are filename glob patterns that mark test files.
	TestFilePatterns []string

	// TestFuncPrefixes are function name prefixes that mark test functions.
	TestFuncPrefixes []string

	// ScriptEntryFiles are base filenames whose top-level code is a process
	// entrypoint by convention (script ecosystems only).
	ScriptEntryFiles []string
}

var specs = map[Language]*Spec{
	Go: {
		Language:         Go,
		Extensions:       []string{".go"},
		FunctionKinds:    []string{"function_declaration", "method_declaration"},
		CallKinds:        []string{"call_expression"},
		DynamicPrimitives: []string{
			"reflect.ValueOf",
			"reflect.New",
			"plugin.Open",
		},
		MainFunctions:    []string{"main"},
		TestFilePatterns: []string{"*_test.go"},
		TestFuncPrefixes: []string{"Test", "Benchmark", "Fuzz", "Example"},
	},
	JavaScript: {
		Language:       JavaScript,
		Extensions:     []string{".js", ".mjs", ".cjs", ".jsx"},
		FunctionKinds:  []string{"function_declaration", "generator_function_declaration", "method_definition"},
		ClassKinds:     []string{"class_declaration"},
		CallKinds:      []string{"call_expression", "new_expression"},
		DynamicPrimitives: []string{
			"eval",
			"Function",
			"Reflect.apply",
			"Reflect.construct",
		},
		MainFunctions:    []string{"main"},
		TestFilePatterns: []string{"*.test.js", "*.spec.js", "*.test.mjs", "*.spec.mjs"},
		ScriptEntryFiles: []string{"index.js", "main.js", "app.js", "server.js", "index.mjs", "main.mjs"},
	},
	TypeScript: {
		Language:       TypeScript,
		Extensions:     []string{".ts", ".mts", ".cts"},
		FunctionKinds:  []string{"function_declaration", "generator_function_declaration", "method_definition"},
		ClassKinds:     []string{"class_declaration"},
		CallKinds:      []string{"call_expression", "new_expression"},
		DynamicPrimitives: []string{
			"eval",
			"Function",
			"Reflect.apply",
			"Reflect.construct",
		},
		MainFunctions:    []string{"main"},
		TestFilePatterns: []string{"*.test.ts", "*.spec.ts"},
		ScriptEntryFiles: []string{"index.ts", "main.ts", "app.ts", "server.ts"},
	},
	TSX: {
		Language:       TSX,
		Extensions:     []string{".tsx"},
		FunctionKinds:  []string{"function_declaration", "generator_function_declaration", "method_definition"},
		ClassKinds:     []string{"class_declaration"},
		CallKinds:      []string{"call_expression", "new_expression"},
		DynamicPrimitives: []string{
			"eval",
			"Function",
		},
		TestFilePatterns: []string{"*.test.tsx", "*.spec.tsx"},
	},
	Python: {
		Language:       Python,
		Extensions:     []string{".py"},
		FunctionKinds:  []string{"function_definition"},
		ClassKinds:     []string{"class_definition"},
		CallKinds:      []string{"call"},
		DynamicPrimitives: []string{
			"eval",
			"exec",
			"getattr",
			"__import__",
			"importlib.import_module",
		},
		MainFunctions:    []string{"main"},
		TestFilePatterns: []string{"test_*.py", "*_test.py"},
		TestFuncPrefixes: []string{"test_"},
		ScriptEntryFiles: []string{"__main__.py", "main.py", "app.py", "manage.py"},
	},
	Ruby: {
		Language:       Ruby,
		Extensions:     []string{".rb", ".rake"},
		FunctionKinds:  []string{"method", "singleton_method"},
		ClassKinds:     []string{"class"},
		NamespaceKinds: []string{"module"},
		CallKinds:      []string{"call"},
		DynamicPrimitives: []string{
			"send",
			"__send__",
			"public_send",
			"method",
			"define_method",
			"instance_eval",
			"class_eval",
			"eval",
			"const_get",
		},
		TestFilePatterns: []string{"*_spec.rb", "*_test.rb"},
		TestFuncPrefixes: []string{"test_"},
		ScriptEntryFiles: []string{"main.rb", "app.rb", "config.ru"},
	},
	Rust: {
		Language:       Rust,
		Extensions:     []string{".rs"},
		FunctionKinds:  []string{"function_item"},
		ClassKinds:     []string{"impl_item"},
		NamespaceKinds: []string{"mod_item"},
		CallKinds:      []string{"call_expression"},
		DynamicPrimitives: []string{
			"transmute",
		},
		MainFunctions:    []string{"main"},
		TestFilePatterns: []string{"*_test.rs"},
		TestFuncPrefixes: []string{"test_"},
	},
	PHP: {
		Language:       PHP,
		Extensions:     []string{".php"},
		FunctionKinds:  []string{"function_definition", "method_declaration"},
		ClassKinds:     []string{"class_declaration", "trait_declaration"},
		NamespaceKinds: []string{"namespace_definition"},
		CallKinds:      []string{"function_call_expression", "member_call_expression", "scoped_call_expression", "object_creation_expression"},
		DynamicPrimitives: []string{
			"eval",
			"call_user_func",
			"call_user_func_array",
			"create_function",
			"ReflectionClass",
			"ReflectionMethod",
		},
		TestFilePatterns: []string{"*Test.php"},
		TestFuncPrefixes: []string{"test"},
		ScriptEntryFiles: []string{"index.php"},
	},
}

// ForLanguage returns the Spec for l, or nil when l is unknown.
func ForLanguage(l Language) *Spec {
	return specs[l]
}

// IsDynamicPrimitive reports whether callee matches one of the language's
// dynamic-dispatch primitives. The comparison accepts either the full callee
// text or its final dot-separated segment, so "obj.send" matches "send".
func (s *Spec) IsDynamicPrimitive(callee string) bool {
	last := callee
	if i := strings.LastIndexByte(callee, '.'); i >= 0 {
		last = callee[i+1:]
	}
	for _, p := range s.DynamicPrimitives {
		if callee == p || last == p {
			return true
		}
	}
	return false
}

// IsFunctionKind reports whether kind declares a named function.
func (s *Spec) IsFunctionKind(kind string) bool { return slices.Contains(s.FunctionKinds, kind) }

// IsClassKind reports whether kind opens a class-like scope.
func (s *Spec) IsClassKind(kind string) bool { return slices.Contains(s.ClassKinds, kind) }

// IsNamespaceKind reports whether kind opens a namespace scope.
func (s *Spec) IsNamespaceKind(kind string) bool { return slices.Contains(s.NamespaceKinds, kind) }

// IsCallKind reports whether kind is a call site.
func (s *Spec) IsCallKind(kind string) bool { return slices.Contains(s.CallKinds, kind) }
