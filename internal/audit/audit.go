// Package audit measures the regex matcher against tree-sitter's Java
// grammar. Tree-sitter is the reference: a declaration it finds that the
// matcher misses is a false negative, and the reverse a false positive.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/javamap/internal/corpus"
	"github.com/phobologic/javamap/internal/lang"
	"github.com/phobologic/javamap/internal/model"
	"github.com/phobologic/javamap/internal/parse"
)

const phaseAudit = "audit"

// Score compares the distinct names found per file by each side.
type Score struct {
	Reference int // found by tree-sitter
	Regex     int // found by the matcher
	Matched   int // found by both
}

// Precision is the share of matcher findings confirmed by tree-sitter.
func (s Score) Precision() float64 {
	if s.Regex == 0 {
		return 1
	}
	return float64(s.Matched) / float64(s.Regex)
}

// Recall is the share of tree-sitter findings the matcher reproduced.
func (s Score) Recall() float64 {
	if s.Reference == 0 {
		return 1
	}
	return float64(s.Matched) / float64(s.Reference)
}

func (s *Score) add(o Score) {
	s.Reference += o.Reference
	s.Regex += o.Regex
	s.Matched += o.Matched
}

// Finding is a declaration found by only one side. Line is 0 when unknown.
type Finding struct {
	Path string
	Kind string
	Name string
	Line int
}

// Report is the audit of a corpus.
type Report struct {
	Files    int
	Types    Score
	Methods  Score
	Missed   []Finding // tree-sitter only
	Spurious []Finding // matcher only
	Warnings []model.Warning
}

// Auditor compares the matcher with tree-sitter over a corpus.
type Auditor struct {
	Matcher *parse.Matcher
	// Workers bounds the pool. Zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

type fileAudit struct {
	types, methods   Score
	missed, spurious []Finding
	warning          *model.Warning
}

// Run audits every catalogued file. Files that fail to load or parse are
// reported as warnings.
func (a *Auditor) Run(ctx context.Context, c *corpus.Corpus) (*Report, error) {
	m := a.Matcher
	if m == nil {
		m = parse.New(parse.Windows{})
	}
	log := a.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	query, err := lang.Java.GetTagQuery()
	if err != nil {
		return nil, fmt.Errorf("loading java query: %w", err)
	}

	files := c.Files()
	workers := a.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = max(1, min(workers, len(files)))

	results := make([]fileAudit, len(files))
	work := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for i := range files {
			select {
			case work <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for range workers {
		g.Go(func() error {
			// Parsers are not safe for concurrent use.
			parser := lang.Java.NewParser()
			defer parser.Close()
			for i := range work {
				results[i] = auditFile(gctx, m, parser, query, c, files[i].Path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := &Report{Files: len(files)}
	for _, fa := range results {
		if fa.warning != nil {
			log.Warn("skipping file",
				slog.String("path", fa.warning.Path),
				slog.String("phase", phaseAudit),
				slog.Any("error", fa.warning.Err))
			r.Warnings = append(r.Warnings, *fa.warning)
			continue
		}
		r.Types.add(fa.types)
		r.Methods.add(fa.methods)
		r.Missed = append(r.Missed, fa.missed...)
		r.Spurious = append(r.Spurious, fa.spurious...)
	}
	log.Info("audit complete",
		slog.Int("files", r.Files),
		slog.Float64("type_recall", r.Types.Recall()),
		slog.Float64("method_recall", r.Methods.Recall()))
	return r, nil
}

func auditFile(ctx context.Context, m *parse.Matcher, parser *sitter.Parser, query *sitter.Query, c *corpus.Corpus, path string) (fa fileAudit) {
	fail := func(err error) fileAudit {
		return fileAudit{warning: &model.Warning{Path: path, Phase: phaseAudit, Err: err}}
	}
	sf, err := c.Load(path)
	if err != nil {
		return fail(err)
	}
	tags, err := extractTags(ctx, parser, query, []byte(sf.Text))
	if err != nil {
		return fail(err)
	}

	ref := map[string]map[string]int{KindType: {}, KindMethod: {}}
	for _, t := range tags {
		if _, ok := ref[t.Kind][t.Name]; !ok {
			ref[t.Kind][t.Name] = t.Line
		}
	}

	got := map[string]map[string]int{KindType: {}, KindMethod: {}}
	_, decls := m.Declarations(path, sf.Text)
	for _, d := range decls {
		if _, ok := got[KindType][d.Name]; !ok {
			got[KindType][d.Name] = lineOf(sf.Text, d.Keyword)
		}
		for _, meth := range m.Methods(d) {
			if _, ok := got[KindMethod][meth.Name]; !ok {
				got[KindMethod][meth.Name] = 0
			}
		}
	}

	fa.types, fa.missed, fa.spurious = compare(path, KindType, ref[KindType], got[KindType], fa.missed, fa.spurious)
	fa.methods, fa.missed, fa.spurious = compare(path, KindMethod, ref[KindMethod], got[KindMethod], fa.missed, fa.spurious)
	return fa
}

func compare(path, kind string, ref, got map[string]int, missed, spurious []Finding) (Score, []Finding, []Finding) {
	s := Score{Reference: len(ref), Regex: len(got)}
	for _, name := range sortedNames(ref) {
		if _, ok := got[name]; ok {
			s.Matched++
			continue
		}
		missed = append(missed, Finding{Path: path, Kind: kind, Name: name, Line: ref[name]})
	}
	for _, name := range sortedNames(got) {
		if _, ok := ref[name]; !ok {
			spurious = append(spurious, Finding{Path: path, Kind: kind, Name: name, Line: got[name]})
		}
	}
	return s, missed, spurious
}

func sortedNames(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func lineOf(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}
