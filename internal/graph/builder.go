package graph

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/phobologic/javamap/internal/cache"
	"github.com/phobologic/javamap/internal/corpus"
	"github.com/phobologic/javamap/internal/index"
	"github.com/phobologic/javamap/internal/model"
	"github.com/phobologic/javamap/internal/parse"
	"github.com/phobologic/javamap/internal/telemetry"
)

const (
	phaseMethods   = "pass1"
	phaseRelations = "pass2"
)

var tracer = otel.Tracer("github.com/phobologic/javamap/internal/graph")

// Builder runs the two extraction passes over a corpus. Zero fields take
// defaults; Cache and Metrics are optional.
type Builder struct {
	Matcher *parse.Matcher
	// Workers bounds the pool. Zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
	Cache   *cache.Cache
	Metrics *telemetry.Metrics
}

func (b *Builder) workers(n int) int {
	w := b.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > n {
		w = n
	}
	return max(w, 1)
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Build collects every method name (pass 1), freezes the index, then
// extracts relations (pass 2). A file that fails in either pass contributes
// nothing and is reported in Graph.Warnings. Build returns an error only when
// ctx is cancelled.
func (b *Builder) Build(ctx context.Context, c *corpus.Corpus) (*Graph, error) {
	ctx, span := tracer.Start(ctx, "graph.Build")
	defer span.End()

	m := b.Matcher
	if m == nil {
		m = parse.New(parse.Windows{})
	}
	files := c.Files()
	workers := b.workers(len(files))
	log := b.logger()
	span.SetAttributes(attribute.Int("files", len(files)), attribute.Int("workers", workers))

	g := &Graph{warnings: c.Warnings()}
	failed := make([]bool, len(files))

	// Pass 1: each worker owns one buffer slot; no locking needed until the
	// barrier, after which a single goroutine merges.
	start := time.Now()
	p1ctx, p1 := tracer.Start(ctx, "graph.pass1")
	methodBufs := make([][]model.MethodRef, workers)
	warnBufs := make([][]model.Warning, workers)
	forEachFile(p1ctx, len(files), workers, func(w, i int) {
		path := files[i].Path
		sf, err := c.Load(path)
		if err == nil {
			refs, hit := b.Cache.Methods(path, sf.Text)
			if hit {
				b.Metrics.CacheHit(phaseMethods)
			} else if refs, err = m.CollectMethods(sf); err == nil {
				b.Cache.PutMethods(path, sf.Text, refs)
			}
			if err == nil {
				methodBufs[w] = append(methodBufs[w], refs...)
			}
		}
		if err != nil {
			failed[i] = true
			warnBufs[w] = append(warnBufs[w], model.Warning{Path: path, Phase: phaseMethods, Err: err})
			b.Metrics.FileFailed(phaseMethods)
			return
		}
		b.Metrics.FileScanned(phaseMethods)
	})
	if err := ctx.Err(); err != nil {
		p1.End()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ib := index.NewBuilder()
	for _, buf := range methodBufs {
		ib.Add(buf...)
	}
	idx := ib.Freeze()
	p1.SetAttributes(attribute.Int("methods", idx.Methods()), attribute.String("digest", idx.Digest()))
	p1.End()
	b.Metrics.ObservePhase(phaseMethods, start)
	log.Debug("method index built",
		slog.Int("names", idx.Len()),
		slog.Int("methods", idx.Methods()),
		slog.Duration("elapsed", time.Since(start)))

	// Pass 2 reads only the frozen index. Results land in catalog order.
	start = time.Now()
	p2ctx, p2 := tracer.Start(ctx, "graph.pass2")
	results := make([]model.FileResult, len(files))
	ok := make([]bool, len(files))
	forEachFile(p2ctx, len(files), workers, func(w, i int) {
		if failed[i] {
			return
		}
		path := files[i].Path
		sf, err := c.Load(path)
		var res model.FileResult
		if err == nil {
			var hit bool
			res, hit = b.Cache.Result(path, sf.Text, idx.Digest())
			if hit {
				b.Metrics.CacheHit(phaseRelations)
			} else if res, err = m.Extract(sf, idx); err == nil {
				b.Cache.PutResult(path, sf.Text, idx.Digest(), res)
			}
		}
		if err != nil {
			warnBufs[w] = append(warnBufs[w], model.Warning{Path: path, Phase: phaseRelations, Err: err})
			b.Metrics.FileFailed(phaseRelations)
			return
		}
		results[i] = res
		ok[i] = true
		b.Metrics.FileScanned(phaseRelations)
		b.Metrics.Relations(res.Relations)
	})
	p2.End()
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	b.Metrics.ObservePhase(phaseRelations, start)

	for _, buf := range warnBufs {
		for _, w := range buf {
			log.Warn("skipping file",
				slog.String("path", w.Path),
				slog.String("phase", w.Phase),
				slog.Any("error", w.Err))
		}
		g.warnings = append(g.warnings, buf...)
	}
	sortWarnings(g.warnings)

	for i := range results {
		if ok[i] {
			g.add(results[i])
		}
	}
	g.index = idx
	span.SetAttributes(attribute.Int("relations", len(g.relations)), attribute.Int("warnings", len(g.warnings)))
	log.Info("graph built",
		slog.Int("files", len(files)),
		slog.Int("types", len(g.types)),
		slog.Int("relations", len(g.relations)),
		slog.Int("warnings", len(g.warnings)))
	return g, nil
}

// forEachFile calls fn(worker, i) for every i in [0, n) across a bounded
// pool and returns once all workers have drained. Cancelling ctx stops
// workers between files.
func forEachFile(ctx context.Context, n, workers int, fn func(worker, i int)) {
	work := make(chan int)
	var wg sync.WaitGroup

	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if ctx.Err() != nil {
					continue
				}
				fn(w, i)
			}
		}()
	}

feed:
	for i := range n {
		select {
		case work <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()
}
