package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seclens/vulnreach/internal/lang"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("package x\n"), 0o644))
}

func TestWalkFiltersByLanguage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go")
	writeFile(t, root, "internal/util.go")
	writeFile(t, root, "script.py")
	writeFile(t, root, "README.md")

	files, err := Walk(root, lang.Go, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"internal/util.go", "main.go"}, files)
}

func TestWalkSkipsDefaultDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go")
	writeFile(t, root, "vendor/dep/dep.go")
	writeFile(t, root, "node_modules/pkg/index.go")
	writeFile(t, root, ".git/hooks/hook.go")
	writeFile(t, root, ".hidden/x.go")

	files, err := Walk(root, lang.Go, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"main.go"}, files)
}

func TestWalkCustomSkipDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go")
	writeFile(t, root, "generated/gen.go")
	writeFile(t, root, "vendor/dep.go")

	// Custom skip list replaces the defaults entirely.
	files, err := Walk(root, lang.Go, Options{SkipDirs: []string{"generated"}})
	require.NoError(t, err)
	require.Equal(t, []string{"main.go", "vendor/dep.go"}, files)
}

func TestWalkRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go")
	writeFile(t, root, "gen/types.go")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("gen/\n"), 0o644))

	files, err := Walk(root, lang.Go, Options{RespectGitignore: true})
	require.NoError(t, err)
	require.Equal(t, []string{"main.go"}, files)

	files, err = Walk(root, lang.Go, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"gen/types.go", "main.go"}, files)
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := Walk(filepath.Join(t.TempDir(), "nope"), lang.Go, Options{})
	require.Error(t, err)
}

func TestWalkEmptyTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "readme.txt")

	files, err := Walk(root, lang.Python, Options{})
	require.NoError(t, err)
	require.Empty(t, files)
}
