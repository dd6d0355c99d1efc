// javamap extracts a structural relation graph from a Java source tree and
// answers reverse-dependency questions about it.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/javamap/internal/cache"
	"github.com/phobologic/javamap/internal/config"
	"github.com/phobologic/javamap/internal/corpus"
	"github.com/phobologic/javamap/internal/discover"
	"github.com/phobologic/javamap/internal/graph"
	"github.com/phobologic/javamap/internal/logging"
	"github.com/phobologic/javamap/internal/parse"
	"github.com/phobologic/javamap/internal/resolve"
	"github.com/phobologic/javamap/internal/telemetry"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr}
	defer a.close()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(context.Background())
}

// app carries the flags and the per-run services shared by every command.
type app struct {
	stdout, stderr io.Writer

	root         string
	configPath   string
	workers      int
	includeTests bool
	logLevel     string
	logFile      string
	logJSON      bool
	traceFile    string
	metricsFile  string
	cacheDir     string

	cfg     config.Config
	log     *slog.Logger
	metrics *telemetry.Metrics
	matcher *parse.Matcher
	cache   *cache.Cache

	closers []func()
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "javamap",
		Short: "Structural map of a Java source tree",
		Long: `javamap scans a Java source tree with tolerant pattern matching and
reports its types, their relations and their reverse dependencies.

Broken or partial sources never stop a run: files that cannot be read are
reported as warnings and skipped.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	cmd.SetVersionTemplate("javamap {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.root, "root", ".", "root of the Java source tree")
	pf.StringVar(&a.configPath, "config", "", "config file (default <root>/"+config.FileName+")")
	pf.IntVar(&a.workers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")
	pf.BoolVar(&a.includeTests, "include-tests", false, "include test sources")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFile, "log-file", "", "also write JSON logs to this file")
	pf.BoolVar(&a.logJSON, "log-json", false, "write JSON logs to stderr")
	pf.StringVar(&a.traceFile, "trace-file", "", "write trace spans as JSON to this file")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.StringVar(&a.cacheDir, "cache", "", "per-file result cache directory (enables caching)")

	cmd.AddCommand(
		newGraphCmd(a),
		newShowCmd(a),
		newRevdepCmd(a),
		newBeansCmd(a),
		newContextCmd(a),
		newRankCmd(a),
		newAuditCmd(a),
		newInitCmd(a),
	)
	return cmd
}

// setup loads the config, applies flag overrides and starts logging,
// tracing and metrics.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	root, err := filepath.Abs(a.root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	a.root = root

	cfg, err := config.Load(a.configPath, root)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}
	if flags.Changed("include-tests") {
		cfg.IncludeTests = a.includeTests
	}
	if a.cacheDir != "" {
		cfg.Cache = config.Cache{Enabled: true, Path: a.cacheDir}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	log, cleanup, err := logging.Setup(a.stderr, logging.Options{Level: level, File: a.logFile, JSON: a.logJSON})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, cleanup)
	a.log = log

	if a.traceFile != "" {
		f, err := os.Create(a.traceFile)
		if err != nil {
			return fmt.Errorf("creating trace file: %w", err)
		}
		shutdown, err := telemetry.SetupTracing(f, version)
		if err != nil {
			_ = f.Close()
			return err
		}
		a.closers = append(a.closers, func() {
			if err := shutdown(context.Background()); err != nil {
				a.log.Warn("flushing traces", slog.Any("error", err))
			}
			_ = f.Close()
		})
	}

	a.metrics = telemetry.NewMetrics()
	a.matcher = parse.New(cfg.Windows)
	a.log.Debug("config loaded",
		slog.String("root", root),
		slog.Int("depth", cfg.Depth),
		slog.Int("workers", cfg.Workers),
		slog.Bool("include_tests", cfg.IncludeTests))
	return nil
}

// close releases resources in reverse order of acquisition and writes the
// metrics textfile.
func (a *app) close() {
	if a.metricsFile != "" {
		if err := a.metrics.WriteTextfile(a.metricsFile); err != nil {
			_, _ = fmt.Fprintf(a.stderr, "warning: %v\n", err)
		}
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openCorpus catalogs the tree. Commands that filter tests themselves pass
// true so test files stay in the catalog and are only marked.
func (a *app) openCorpus(includeTests bool) (*corpus.Corpus, error) {
	c, err := corpus.Open(a.root, corpus.Options{
		IncludeTests: includeTests,
		TestSuffixes: a.cfg.TestSuffixes,
		MaxFileSize:  a.cfg.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", a.root, discover.ErrNoFiles)
	}
	for _, w := range c.Warnings() {
		a.log.Warn("skipping file",
			slog.String("path", w.Path),
			slog.String("phase", w.Phase),
			slog.Any("error", w.Err))
	}
	return c, nil
}

func (a *app) openCache() (*cache.Cache, error) {
	if !a.cfg.Cache.Enabled || a.cache != nil {
		return a.cache, nil
	}
	w := a.cfg.Windows
	c, err := cache.Open(cache.Config{
		Path:   a.cfg.CachePath(a.root),
		Salt:   fmt.Sprintf("w%d.%d.%d.%d", w.AnnotationLookback, w.HeaderTail, w.TypeBody, w.MethodBody),
		Logger: a.log,
	})
	if err != nil {
		return nil, err
	}
	a.cache = c
	return c, nil
}

func (a *app) buildGraph(ctx context.Context, c *corpus.Corpus) (*graph.Graph, error) {
	cc, err := a.openCache()
	if err != nil {
		return nil, err
	}
	b := &graph.Builder{
		Matcher: a.matcher,
		Workers: a.cfg.Workers,
		Logger:  a.log,
		Cache:   cc,
		Metrics: a.metrics,
	}
	return b.Build(ctx, c)
}

func (a *app) resolveOptions() resolve.Options {
	return resolve.Options{
		Depth:         a.cfg.Depth,
		PerLevelLimit: a.cfg.PerLevelLimit,
		IncludeTests:  a.cfg.IncludeTests,
		Workers:       a.cfg.Workers,
	}
}

// output returns stdout, or the named file when path is set.
func (a *app) output(path string) (io.Writer, func() error, error) {
	if path == "" {
		return a.stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, f.Close, nil
}

// catalogPath turns a file argument into a root-relative slash path.
// Relative arguments are taken as relative to the root already. Paths that
// leave the root are not found.
func (a *app) catalogPath(arg string) (string, error) {
	p := arg
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(a.root, p)
		if err != nil {
			return "", fmt.Errorf("%s: %w", arg, err)
		}
		p = rel
	}
	p = filepath.ToSlash(filepath.Clean(p))
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%s: %w", arg, resolve.ErrTargetNotFound)
	}
	return p, nil
}

// repoName is the display name of the root.
func (a *app) repoName() string {
	return filepath.Base(a.root)
}

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(allowed, ", "))
}
