package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seclens/vulnreach/internal/lang"
)

func extractSource(t *testing.T, l lang.Language, file, source string) *FileExtract {
	t.Helper()
	ex, err := New(l, nil)
	require.NoError(t, err)
	fx, err := ex.Extract(file, []byte(source))
	require.NoError(t, err)
	return fx
}

func functionNames(fx *FileExtract) []string {
	names := make([]string, 0, len(fx.Functions))
	for _, fn := range fx.Functions {
		names = append(names, fn.Name)
	}
	return names
}

func calleesOf(fx *FileExtract, callerName string) []string {
	var callerID string
	for _, fn := range fx.Functions {
		if fn.Name == callerName {
			callerID = fn.ID
		}
	}
	var callees []string
	for _, c := range fx.Calls {
		if c.CallerID == callerID {
			callees = append(callees, c.Callee)
		}
	}
	return callees
}

func TestExtractGoFunctions(t *testing.T) {
	fx := extractSource(t, lang.Go, "main.go", `package main

import "fmt"

func main() {
	fmt.Println(greet())
}

func greet() string { return "hi" }

func (s *Server) Start() error { return nil }
`)

	require.Equal(t, "main", fx.Package)
	require.ElementsMatch(t, []string{"main", "greet", "Start"}, functionNames(fx))
	require.ElementsMatch(t, []string{"fmt.Println", "greet"}, calleesOf(fx, "main"))

	for _, fn := range fx.Functions {
		if fn.Name == "Start" {
			require.Equal(t, "Server", fn.Class)
			require.True(t, fn.IsPublic)
			require.Equal(t, "main.go::Server.Start", fn.ID)
		}
		if fn.Name == "greet" {
			require.False(t, fn.IsPublic)
		}
	}
	require.False(t, fx.Dynamic)
}

func TestExtractGoDynamic(t *testing.T) {
	fx := extractSource(t, lang.Go, "r.go", `package main

import "reflect"

func inspect(v any) {
	_ = reflect.ValueOf(v)
}
`)
	require.True(t, fx.Dynamic)
	require.Len(t, fx.Warnings, 1)
	require.Equal(t, "reflect.ValueOf", fx.Warnings[0].Kind)
}

func TestExtractSuppressionMarker(t *testing.T) {
	fx := extractSource(t, lang.Go, "r.go", `package main

import "reflect"

func inspect(v any) {
	_ = reflect.ValueOf(v) // vulnreach:allow-dynamic
}
`)
	require.False(t, fx.Dynamic)
	require.Empty(t, fx.Warnings)
}

func TestExtractJavaScriptArrowBinding(t *testing.T) {
	fx := extractSource(t, lang.JavaScript, "app.js", `const handler = (req) => {
  return render(req);
};

export function render(req) {
  return req;
}
`)
	require.ElementsMatch(t, []string{"handler", "render"}, functionNames(fx))
	require.Equal(t, []string{"render"}, calleesOf(fx, "handler"))

	for _, fn := range fx.Functions {
		if fn.Name == "render" {
			require.True(t, fn.IsPublic)
		}
		if fn.Name == "handler" {
			require.False(t, fn.IsPublic)
		}
	}
}

func TestExtractJavaScriptClassMethods(t *testing.T) {
	fx := extractSource(t, lang.JavaScript, "svc.js", `class Service {
  start() {
    this.tick();
  }
  tick() {}
}
`)
	require.ElementsMatch(t, []string{"start", "tick"}, functionNames(fx))
	for _, fn := range fx.Functions {
		require.Equal(t, "Service", fn.Class)
		require.Equal(t, "svc.js::Service."+fn.Name, fn.ID)
	}
	require.Equal(t, []string{"this.tick"}, calleesOf(fx, "start"))
}

func TestExtractPythonMainGuard(t *testing.T) {
	fx := extractSource(t, lang.Python, "app.py", `def main():
    run()


def run():
    pass


if __name__ == "__main__":
    main()
`)
	require.True(t, fx.HasMainGuard)
	require.Contains(t, functionNames(fx), TopLevelName)
	require.Equal(t, []string{"main"}, calleesOf(fx, TopLevelName))
}

func TestExtractPythonClassScope(t *testing.T) {
	fx := extractSource(t, lang.Python, "m.py", `class Job:
    def run(self):
        self._step()

    def _step(self):
        pass
`)
	for _, fn := range fx.Functions {
		require.Equal(t, "Job", fn.Class)
	}
	for _, fn := range fx.Functions {
		if fn.Name == "_step" {
			require.False(t, fn.IsPublic)
		}
		if fn.Name == "run" {
			require.True(t, fn.IsPublic)
		}
	}
}

func TestExtractRubyNamespace(t *testing.T) {
	fx := extractSource(t, lang.Ruby, "lib/api.rb", `module Api
  class Client
    def get(path)
      request(path)
    end

    def request(path)
    end
  end
end
`)
	for _, fn := range fx.Functions {
		require.Equal(t, "Api", fn.Namespace)
		require.Equal(t, "Client", fn.Class)
	}
	require.Equal(t, []string{"request"}, calleesOf(fx, "get"))
}

func TestExtractPHPDynamicVariableCall(t *testing.T) {
	fx := extractSource(t, lang.PHP, "x.php", `<?php
function dispatch($name) {
    $fn = $name;
    return $fn();
}
`)
	require.True(t, fx.Dynamic)
}

func TestExtractParseErrorStillSucceeds(t *testing.T) {
	// Tree-sitter recovers from localized syntax errors; extraction keeps
	// whatever declarations survive.
	ex, err := New(lang.Go, nil)
	require.NoError(t, err)
	_, err = ex.Extract("broken.go", []byte("package main\n\nfunc ok() {}\n\nfunc {{{\n"))
	// Either outcome is acceptable here: a partial extract or a parse error.
	// What must not happen is a panic.
	_ = err
}

func TestExtraDynamicFromConfig(t *testing.T) {
	ex, err := New(lang.Python, []string{"pickle.loads"})
	require.NoError(t, err)
	fx, err := ex.Extract("p.py", []byte("import pickle\n\n\ndef load(raw):\n    return pickle.loads(raw)\n"))
	require.NoError(t, err)
	require.True(t, fx.Dynamic)
}
