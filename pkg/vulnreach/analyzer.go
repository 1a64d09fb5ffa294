// Package vulnreach runs static reachability analysis over one project tree
// and maps known-vulnerable functions onto the resulting call graph.
package vulnreach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	goruntime "runtime"

	"golang.org/x/sync/errgroup"

	"github.com/seclens/vulnreach/internal/callgraph"
	"github.com/seclens/vulnreach/internal/config"
	"github.com/seclens/vulnreach/internal/entrypoint"
	"github.com/seclens/vulnreach/internal/extract"
	"github.com/seclens/vulnreach/internal/lang"
	"github.com/seclens/vulnreach/internal/ssagraph"
	"github.com/seclens/vulnreach/internal/walker"
)

// ErrNoSourceFiles is returned when the project root contains no source
// files for the requested language. It is the analyzer's only hard failure
// besides an unreadable root: without sources no meaningful report exists.
var ErrNoSourceFiles = errors.New("no source files found")

// Options configures one analysis run.
type Options struct {
	// Root is the project directory to analyze.
	Root string

	// Language selects the ecosystem adapter.
	Language lang.Language

	// Config overrides the embedded default configuration. Nil uses defaults.
	Config *config.Config

	// Precise enables the SSA-based Go adapter for Go projects with a
	// go.mod. It produces exact cross-package call edges; on failure the
	// analyzer falls back to the syntax-level adapter.
	Precise bool

	// Workers bounds the parallel extraction phase. Zero means NumCPU.
	Workers int
}

// Analyzer drives one run: walk, extract, merge, mark, propagate.
type Analyzer struct {
	opts Options
	cfg  *config.Config
}

// NewAnalyzer validates opts and returns an Analyzer.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("vulnreach: no project root given")
	}
	if lang.ForLanguage(opts.Language) == nil {
		return nil, fmt.Errorf("vulnreach: unsupported language %q", opts.Language)
	}
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Default()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	return &Analyzer{opts: opts, cfg: cfg}, nil
}

// Analyze runs the full pipeline and returns the immutable report.
func (a *Analyzer) Analyze(ctx context.Context) (*Report, error) {
	if a.opts.Precise && a.opts.Language == lang.Go {
		if report, err := a.analyzePrecise(ctx); err == nil {
			return report, nil
		} else {
			slog.Warn("precise Go analysis failed, falling back to syntax-level adapter", "error", err)
		}
	}
	return a.analyzeSyntactic(ctx)
}

// analyzeSyntactic is the tree-sitter pipeline shared by all ecosystems.
func (a *Analyzer) analyzeSyntactic(ctx context.Context) (*Report, error) {
	files, err := walker.Walk(a.opts.Root, a.opts.Language, walker.Options{
		SkipDirs:         a.cfg.Walker.SkipDirs,
		RespectGitignore: a.cfg.Walker.RespectGitignore,
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no %s files under %s", ErrNoSourceFiles, a.opts.Language, a.opts.Root)
	}
	slog.Info("discovered source files", "language", a.opts.Language, "num", len(files))

	extracts, err := a.extractAll(ctx, files)
	if err != nil {
		return nil, err
	}
	if len(extracts) == 0 {
		return nil, fmt.Errorf("%w: every %s file under %s failed to parse", ErrNoSourceFiles, a.opts.Language, a.opts.Root)
	}

	g := callgraph.New()
	warnings := mergeIntoGraph(g, extracts, string(a.opts.Language))

	eps := entrypoint.Detect(a.opts.Language, extracts, entrypoint.Options{
		RouteDirs:      a.cfg.Entrypoints.RouteDirs,
		ExtraFunctions: a.cfg.Entrypoints.ExtraFunctions,
	})
	markEntrypoints(g, eps)

	// The mode is decided exactly once, after extraction: any file with
	// dynamic code downgrades the whole run.
	mode := Mode{}
	for _, fx := range extracts {
		if fx.Dynamic {
			mode = Mode{
				Conservative: true,
				Reason:       fmt.Sprintf("dynamic code in %s", fx.File),
			}
			break
		}
	}

	if mode.Conservative {
		slog.Info("dynamic code detected, using conservative reachability", "reason", mode.Reason)
		g.MarkAllReachable()
	} else {
		g.AnalyzeReachability()
	}

	return buildReport(a.opts.Root, a.opts.Language, mode, g, eps, warnings), nil
}

// analyzePrecise runs the SSA-based Go adapter.
func (a *Analyzer) analyzePrecise(ctx context.Context) (*Report, error) {
	if _, err := os.Stat(filepath.Join(a.opts.Root, "go.mod")); err != nil {
		return nil, fmt.Errorf("precise mode needs a go.mod: %w", err)
	}

	g := callgraph.New()
	eps, err := ssagraph.Populate(ctx, a.opts.Root, g)
	if err != nil {
		return nil, err
	}
	markEntrypoints(g, eps)
	g.AnalyzeReachability()

	return buildReport(a.opts.Root, a.opts.Language, Mode{}, g, eps, nil), nil
}

// extractAll parses all files concurrently. Each worker writes to its own
// slice index, so no locks are needed; nil entries mark files that failed to
// parse and were skipped.
func (a *Analyzer) extractAll(ctx context.Context, files []string) ([]*extract.FileExtract, error) {
	extractor, err := extract.New(a.opts.Language, a.cfg.ExtraDynamic(string(a.opts.Language)))
	if err != nil {
		return nil, err
	}

	workers := a.opts.Workers
	if workers <= 0 {
		workers = goruntime.NumCPU()
	}

	results := make([]*extract.FileExtract, len(files))
	var wg errgroup.Group
	wg.SetLimit(workers)

	for i, file := range files {
		wg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			source, err := os.ReadFile(filepath.Join(a.opts.Root, filepath.FromSlash(file)))
			if err != nil {
				slog.Debug("skipping unreadable file", "file", file, "error", err)
				return nil
			}
			fx, err := extractor.Extract(file, source)
			if err != nil {
				slog.Debug("skipping unparseable file", "file", file, "error", err)
				return nil
			}
			results[i] = fx
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}

	extracts := make([]*extract.FileExtract, 0, len(results))
	for _, fx := range results {
		if fx != nil {
			extracts = append(extracts, fx)
		}
	}
	return extracts, nil
}

func markEntrypoints(g *callgraph.Graph, eps []entrypoint.Entrypoint) {
	for _, ep := range eps {
		if err := g.MarkEntrypoint(ep.ID); err != nil {
			// A detector may name a function the extractor never produced,
			// for example in a file that failed to parse.
			slog.Debug("entrypoint not in graph", "id", ep.ID, "kind", ep.Kind)
		}
	}
}

// Analyze is the package-level convenience wrapper: one call, one report.
func Analyze(ctx context.Context, opts Options) (*Report, error) {
	a, err := NewAnalyzer(opts)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx)
}
