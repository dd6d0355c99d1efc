// Package resolve finds the files that reference a type and expands those
// references into a bounded reverse-dependency closure. It reads file text
// from the corpus directly and does not depend on the relation graph.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/javamap/internal/corpus"
	"github.com/phobologic/javamap/internal/model"
	"github.com/phobologic/javamap/internal/rules"
	"github.com/phobologic/javamap/internal/telemetry"
)

const phaseResolve = "resolve"

var (
	// ErrTargetNotFound is returned when a target file does not exist.
	ErrTargetNotFound = errors.New("target not found")
	// ErrNoType is returned when a target file declares no type.
	ErrNoType = errors.New("no type declaration")
	// ErrEmptyTarget is returned for an empty target name.
	ErrEmptyTarget = errors.New("empty target")
)

var tracer = otel.Tracer("github.com/phobologic/javamap/internal/resolve")

// Options bounds a recursive resolution.
type Options struct {
	// Depth is the number of reference levels to follow. Zero or less
	// yields an empty result.
	Depth int
	// PerLevelLimit caps each FindReferences call. Zero means no cap.
	PerLevelLimit int
	IncludeTests  bool
	// Workers bounds ResolveAll. Zero means GOMAXPROCS.
	Workers int
}

// Resolver answers reference queries over a corpus. It is safe for
// concurrent use.
type Resolver struct {
	corpus  *corpus.Corpus
	log     *slog.Logger
	metrics *telemetry.Metrics

	warned sync.Map // path -> struct{}
}

// New returns a resolver. log and metrics may be nil.
func New(c *corpus.Corpus, log *slog.Logger, metrics *telemetry.Metrics) *Resolver {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Resolver{corpus: c, log: log, metrics: metrics}
}

// FindReferences returns the files that match at least one reference
// signal for targetFQN, sorted by path. Files declaring the target are
// excluded, as are test files unless includeTests is set.
func (r *Resolver) FindReferences(ctx context.Context, targetFQN string, includeTests bool) ([]model.Reference, error) {
	if targetFQN == "" {
		return nil, ErrEmptyTarget
	}
	ctx, span := tracer.Start(ctx, "resolve.FindReferences",
		trace.WithAttributes(attribute.String("target", targetFQN)))
	defer span.End()

	simple := model.SimpleName(targetFQN)
	pkg := model.PackageOf(targetFQN)
	if pkg == "" {
		pkg = model.DefaultPackage
	}
	signals := rules.ReferenceSignals(targetFQN)

	refs, err := r.scan(ctx, includeTests, simple, func(sf *model.SourceFile) []string {
		samePkg := sf.Package == pkg
		if samePkg && rules.DeclaresType(sf.Text, simple) {
			return nil
		}
		var hits []string
		for _, s := range signals {
			if s.SamePackage && !samePkg {
				continue
			}
			if s.Pattern.MatchString(sf.Text) {
				hits = append(hits, s.Name)
			}
		}
		return hits
	})
	span.SetAttributes(attribute.Int("references", len(refs)))
	return refs, err
}

// FindBeanReferences returns the factory files (@Configuration or @Bean)
// that construct simpleName, declare an @Bean method returning it, or bind
// it with @Qualifier.
func (r *Resolver) FindBeanReferences(ctx context.Context, simpleName string, includeTests bool) ([]model.Reference, error) {
	if simpleName == "" {
		return nil, ErrEmptyTarget
	}
	simpleName = model.SimpleName(simpleName)
	ctx, span := tracer.Start(ctx, "resolve.FindBeanReferences")
	defer span.End()

	signals := rules.BeanSignals(simpleName)
	refs, err := r.scan(ctx, includeTests, simpleName, func(sf *model.SourceFile) []string {
		if !rules.FactoryRole.MatchString(sf.Text) {
			return nil
		}
		var hits []string
		for _, s := range signals {
			if s.Pattern.MatchString(sf.Text) {
				hits = append(hits, s.Name)
			}
		}
		return hits
	})
	span.SetAttributes(attribute.String("target", simpleName), attribute.Int("references", len(refs)))
	return refs, err
}

// scan applies match to every catalogued file that mentions simple.
func (r *Resolver) scan(ctx context.Context, includeTests bool, simple string, match func(*model.SourceFile) []string) ([]model.Reference, error) {
	start := time.Now()
	defer r.metrics.ObservePhase(phaseResolve, start)

	var refs []model.Reference
	for _, entry := range r.corpus.Files() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.Test && !includeTests {
			continue
		}
		sf, err := r.corpus.Load(entry.Path)
		if err != nil {
			r.warn(entry.Path, err)
			continue
		}
		r.metrics.FileScanned(phaseResolve)
		if !strings.Contains(sf.Text, simple) {
			continue
		}
		if hits := match(sf); len(hits) > 0 {
			refs = append(refs, model.Reference{Path: entry.Path, Signals: hits})
			r.metrics.Reference(hits)
		}
	}
	return refs, nil
}

func (r *Resolver) warn(path string, err error) {
	if _, dup := r.warned.LoadOrStore(path, struct{}{}); dup {
		return
	}
	r.metrics.FileFailed(phaseResolve)
	r.corpus.Warn(model.Warning{Path: path, Phase: phaseResolve, Err: err})
	r.log.Warn("skipping file",
		slog.String("path", path),
		slog.String("phase", phaseResolve),
		slog.Any("error", err))
}

// ResolveRecursive expands the references of targetFQN level by level.
// Each FQN is expanded at most once, tracked in visited, which may be nil
// and is updated in place. Files are deduplicated and returned in
// discovery order.
func (r *Resolver) ResolveRecursive(ctx context.Context, targetFQN string, opts Options, visited map[string]struct{}) (model.ReverseDependencyResult, error) {
	res := model.ReverseDependencyResult{
		Target:        targetFQN,
		Depth:         opts.Depth,
		PerLevelLimit: opts.PerLevelLimit,
	}
	if opts.Depth <= 0 {
		return res, nil
	}
	if visited == nil {
		visited = make(map[string]struct{})
	}
	if _, ok := visited[targetFQN]; ok {
		return res, nil
	}

	ctx, span := tracer.Start(ctx, "resolve.ResolveRecursive",
		trace.WithAttributes(attribute.String("target", targetFQN), attribute.Int("depth", opts.Depth)))
	defer span.End()

	type item struct {
		fqn   string
		depth int
	}
	visited[targetFQN] = struct{}{}
	queue := []item{{targetFQN, opts.Depth}}
	seen := make(map[string]struct{})

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		refs, err := r.FindReferences(ctx, it.fqn, opts.IncludeTests)
		if err != nil {
			return res, err
		}
		if opts.PerLevelLimit > 0 && len(refs) > opts.PerLevelLimit {
			refs = refs[:opts.PerLevelLimit]
			res.Truncated = true
		}
		for _, ref := range refs {
			if _, ok := seen[ref.Path]; !ok {
				seen[ref.Path] = struct{}{}
				res.Files = append(res.Files, ref.Path)
			}
			fqn, err := r.fileFQN(ref.Path)
			if err != nil {
				continue
			}
			if _, ok := visited[fqn]; ok {
				continue
			}
			if it.depth <= 1 {
				res.DepthExhausted = true
				continue
			}
			visited[fqn] = struct{}{}
			queue = append(queue, item{fqn, it.depth - 1})
		}
	}

	span.SetAttributes(
		attribute.Int("files", len(res.Files)),
		attribute.Bool("truncated", res.Truncated),
		attribute.Bool("depth_exhausted", res.DepthExhausted))
	r.log.Debug("reverse dependencies resolved",
		slog.String("target", targetFQN),
		slog.Int("files", len(res.Files)),
		slog.Int("visited", len(visited)))
	return res, nil
}

// ResolveAll resolves independent targets in parallel, each with its own
// visited set. Results follow the order of targets.
func (r *Resolver) ResolveAll(ctx context.Context, targets []string, opts Options) ([]model.ReverseDependencyResult, error) {
	results := make([]model.ReverseDependencyResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for i, target := range targets {
		g.Go(func() error {
			res, err := r.ResolveRecursive(gctx, target, opts, nil)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", target, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// TargetOf derives the FQN of the first type declared in a root-relative
// file, catalogued or not.
func (r *Resolver) TargetOf(path string) (string, error) {
	if !r.corpus.Exists(path) {
		return "", fmt.Errorf("%s: %w", path, ErrTargetNotFound)
	}
	sf, err := r.corpus.ReadUncatalogued(path)
	if err != nil {
		return "", err
	}
	name, ok := rules.FirstType(sf.Text)
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNoType)
	}
	return model.FQN(sf.Package, name), nil
}

func (r *Resolver) fileFQN(path string) (string, error) {
	sf, err := r.corpus.Load(path)
	if err != nil {
		return "", err
	}
	name, ok := rules.FirstType(sf.Text)
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNoType)
	}
	return model.FQN(sf.Package, name), nil
}
