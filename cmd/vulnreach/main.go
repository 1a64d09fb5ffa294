// Package main implements the CLI driver for the vulnreach analyzer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seclens/vulnreach/internal/config"
	"github.com/seclens/vulnreach/internal/lang"
	"github.com/seclens/vulnreach/pkg/vulnreach"
)

// Config holds all command-line configuration options for the analyzer.
type Config struct {
	Root       string   // project directory to analyze
	Language   string   // target language name
	ConfigPath string   // optional TOML config overriding the defaults
	Vulns      []string // vulnerability specs, pkg@version=fn[,fn...]
	Verbose    bool     // enables detailed output and statistics
	JSON       bool     // enables JSON output format
	Precise    bool     // SSA-based adapter for Go modules
	Profile    bool     // enables CPU and memory profiling
	Workers    int      // extraction parallelism, 0 = NumCPU
}

const (
	exitReachableVuln = 1
	exitError         = 2
)

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfg Config

func main() {
	var rootCmd = &cobra.Command{
		Use:   "vulnreach [directory]",
		Short: "Find which vulnerable functions are actually reachable",
		Long: `vulnreach builds a call graph of a project and decides which functions
are reachable from its entrypoints. Given known-vulnerable functions it
reports whether the vulnerability can actually be triggered.

Supported languages: go, javascript, typescript, tsx, python, ruby, rust, php.`,
		Example: `  vulnreach --lang go .                          # Analyze a Go project
  vulnreach --lang python --json src/           # JSON report
  vulnreach --lang go --precise .               # SSA-based Go analysis
  vulnreach --lang js --vuln lodash@4.17.0=template .   # Map one advisory`,
		Args:               cobra.MaximumNArgs(1),
		RunE:               runCommand,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Version:            version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("vulnreach version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	rootCmd.PersistentFlags().StringVarP(&cfg.Language, "lang", "l", "", "Language to analyze (required)")
	rootCmd.PersistentFlags().StringVar(&cfg.ConfigPath, "config", "", "Path to a TOML config overriding the built-in defaults")
	rootCmd.PersistentFlags().StringSliceVar(&cfg.Vulns, "vuln", nil, "Vulnerability to map, as pkg@version=fn[,fn...] (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&cfg.JSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&cfg.Precise, "precise", false, "Use SSA-based analysis for Go modules")
	rootCmd.PersistentFlags().BoolVar(&cfg.Profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")
	rootCmd.PersistentFlags().IntVar(&cfg.Workers, "workers", 0, "Number of parallel extraction workers (0 = NumCPU)")

	_ = rootCmd.MarkPersistentFlagRequired("lang")

	if err := rootCmd.Execute(); err != nil {
		_ = teardown(nil, nil)
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr *codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg.Root = "."
	if len(args) > 0 {
		cfg.Root = args[0]
	}

	l, err := lang.FromName(cfg.Language)
	if err != nil {
		return errWithCode(err, exitError)
	}

	vulns, err := parseVulnSpecs(cfg.Vulns)
	if err != nil {
		return errWithCode(err, exitError)
	}

	slog.Info("starting reachability analysis", "root", cfg.Root, "language", l)

	result, err := runAnalysis(cmd.Context(), l, vulns)
	if err != nil {
		return errWithCode(fmt.Errorf("analyze: %w", err), exitError)
	}

	if err := writeResults(result); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}

	for _, vr := range result.Report.Vulnerabilities {
		if vr.Reachable {
			return errWithCode(nil, exitReachableVuln)
		}
	}
	return nil
}

// Result is the CLI-level output: the report, with the mapper's verdicts
// recorded in it, plus run statistics.
type Result struct {
	Report *vulnreach.Report `json:"report"`
	Stats  struct {
		TotalFunctions       int           `json:"total_functions"`
		ReachableFunctions   int           `json:"reachable_functions"`
		UnreachableFunctions int           `json:"unreachable_functions"`
		Entrypoints          int           `json:"entrypoints"`
		AnalysisDuration     time.Duration `json:"analysis_duration"`
	} `json:"stats"`
}

func runAnalysis(ctx context.Context, l lang.Language, vulns []vulnreach.Vulnerability) (*Result, error) {
	start := time.Now()

	var fileCfg *config.Config
	if cfg.ConfigPath != "" {
		loaded, err := config.Load(cfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		fileCfg = loaded
	}

	report, err := vulnreach.Analyze(ctx, vulnreach.Options{
		Root:     cfg.Root,
		Language: l,
		Config:   fileCfg,
		Precise:  cfg.Precise,
		Workers:  cfg.Workers,
	})
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)
	slog.Info("analysis completed", "dur", duration)

	report.MapVulnerabilities(vulns)

	r := &Result{Report: report}
	r.Stats.TotalFunctions = len(report.AllFunctions)
	r.Stats.ReachableFunctions = len(report.ReachableFunctions)
	r.Stats.UnreachableFunctions = len(report.UnreachableFunctions)
	r.Stats.Entrypoints = len(report.Entrypoints)
	r.Stats.AnalysisDuration = duration
	return r, nil
}

// parseVulnSpecs parses repeated --vuln flags of the form
// pkg@version=fn[,fn...]. Version and functions are optional:
// "lodash" alone means any function of the lodash package.
func parseVulnSpecs(specs []string) ([]vulnreach.Vulnerability, error) {
	var vulns []vulnreach.Vulnerability
	for _, spec := range specs {
		pkgPart, fnPart, _ := strings.Cut(spec, "=")
		pkgName, version, _ := strings.Cut(pkgPart, "@")
		if pkgName == "" {
			return nil, fmt.Errorf("invalid --vuln spec %q: empty package", spec)
		}
		v := vulnreach.Vulnerability{
			ID:      spec,
			Package: pkgName,
			Version: version,
		}
		if fnPart != "" {
			for _, fn := range strings.Split(fnPart, ",") {
				if fn = strings.TrimSpace(fn); fn != "" {
					v.Functions = append(v.Functions, fn)
				}
			}
		}
		vulns = append(vulns, v)
	}
	return vulns, nil
}

func writeResults(result *Result) error {
	if cfg.JSON {
		out, err := formatJSONOutput(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
	fmt.Print(formatTextOutput(result))
	return nil
}

func formatJSONOutput(result *Result) (string, error) {
	data, err := json.MarshalIndent(jOutput{
		Result:    result,
		Version:   version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling json output: %w", err)
	}
	return string(data), nil
}

func formatTextOutput(result *Result) string {
	var output strings.Builder
	report := result.Report

	if cfg.Verbose {
		slog.Info("",
			"total_functions", result.Stats.TotalFunctions,
			"reachable_functions", result.Stats.ReachableFunctions,
			"unreachable_functions", result.Stats.UnreachableFunctions,
			"entrypoints", result.Stats.Entrypoints,
			"analysis_duration", result.Stats.AnalysisDuration.String())
	}

	if report.Mode.Conservative {
		output.WriteString(fmt.Sprintf("mode: conservative (%s)\n", report.Mode.Reason))
	} else {
		output.WriteString("mode: precise\n")
	}
	output.WriteString(fmt.Sprintf("functions: %d total, %d reachable, %d unreachable, %d entrypoints\n",
		result.Stats.TotalFunctions,
		result.Stats.ReachableFunctions,
		result.Stats.UnreachableFunctions,
		result.Stats.Entrypoints))

	for _, w := range report.Warnings {
		output.WriteString(fmt.Sprintf("warning: %s:%d %s\n", w.File, w.Line, w.Description))
	}

	for _, vr := range result.Report.Vulnerabilities {
		verdict := "not reachable"
		if vr.Reachable {
			verdict = "REACHABLE"
		}
		output.WriteString(fmt.Sprintf("%s (%s): %s\n", vr.Vulnerability.Package, vr.Vulnerability.ID, verdict))
		if len(vr.CallChain) > 0 {
			output.WriteString(fmt.Sprintf("  chain: %s\n", strings.Join(vr.CallChain, " -> ")))
		}
	}

	if cfg.Verbose {
		for _, id := range report.UnreachableFunctions {
			f := report.AllFunctions[id]
			output.WriteString(fmt.Sprintf("unreachable: %s:%d:%d %s\n", f.File, f.Line, f.Column, f.Name))
		}
	}

	return output.String()
}

type jOutput struct {
	*Result
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

var cpuProfile *os.File

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if cfg.Verbose {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.JSON {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		logger := slog.New(handler)
		slog.SetDefault(logger)
	}

	if !cfg.Profile {
		return nil
	}

	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if !cfg.Profile || cpuProfile == nil {
		return nil
	}

	pprof.StopCPUProfile()
	defer cpuProfile.Close()
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}

func errWithCode(err error, code int) error {
	return &codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}
