// Package walker discovers candidate source files for one ecosystem under a
// project root, skipping vendor, build, and VCS directories.
package walker

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/seclens/vulnreach/internal/lang"
)

// Options configures a walk.
type Options struct {
	// SkipDirs are directory base names that are never descended into.
	SkipDirs []string

	// RespectGitignore loads the root's .gitignore (if any) and skips
	// matching paths.
	RespectGitignore bool
}

// DefaultSkipDirs lists the directories skipped when Options.SkipDirs is
// empty: VCS metadata, dependency vendors, build output, virtualenvs.
var DefaultSkipDirs = []string{
	".git", ".hg", ".svn",
	"node_modules", "vendor", "bower_components",
	"dist", "build", "target", "out",
	"__pycache__", ".venv", "venv", ".tox",
	".idea", ".vscode",
}

// Walk returns the deduplicated, sorted list of source files under root that
// belong to language l. Paths are returned relative to root with forward
// slashes. Unreadable entries are logged and skipped; the only hard failure
// is a root that cannot be read at all.
func Walk(root string, l lang.Language, opts Options) ([]string, error) {
	spec := lang.ForLanguage(l)
	if spec == nil {
		return nil, fmt.Errorf("walk: unsupported language %q", l)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("walk %s: not a directory", root)
	}

	skip := make(map[string]bool)
	dirs := opts.SkipDirs
	if len(dirs) == 0 {
		dirs = DefaultSkipDirs
	}
	for _, d := range dirs {
		skip[d] = true
	}

	var gi *ignore.GitIgnore
	if opts.RespectGitignore {
		if compiled, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			gi = compiled
		}
	}

	extensions := make(map[string]bool, len(spec.Extensions))
	for _, ext := range spec.Extensions {
		extensions[ext] = true
	}

	// Visited set keyed by canonical path so symlink loops and duplicate
	// entries cannot revisit a file within one run.
	visited := make(map[string]bool)
	var files []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != root && (skip[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			if gi != nil && rel != "." && gi.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinked files resolve to their target for dedup, but broken
		// links are simply skipped.
		if !extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		canonical, resolveErr := filepath.EvalSymlinks(path)
		if resolveErr != nil {
			slog.Debug("skipping unresolvable path", "path", path, "error", resolveErr)
			return nil
		}
		if visited[canonical] {
			return nil
		}
		visited[canonical] = true

		files = append(files, rel)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	sort.Strings(files)
	return files, nil
}
