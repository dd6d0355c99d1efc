// Package bundle assembles the source context of one Java file: the types
// it imports, its supertypes, the files that depend on it, and the
// configuration that wires it.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/phobologic/javamap/internal/block"
	"github.com/phobologic/javamap/internal/corpus"
	"github.com/phobologic/javamap/internal/model"
	"github.com/phobologic/javamap/internal/parse"
	"github.com/phobologic/javamap/internal/resolve"
	"github.com/phobologic/javamap/internal/rules"
)

// DefaultSourceRoots are tried, in order, when resolving an import to a file.
var DefaultSourceRoots = []string{"src/main/java"}

// Section kinds, in output order.
const (
	KindImport      = "IMPORT"
	KindInheritance = "EXTENDS / IMPLEMENTS"
	KindReverse     = "REVERSE DEPENDENCY"
	KindBean        = "BEAN / CONFIGURATION"
)

var tracer = otel.Tracer("github.com/phobologic/javamap/internal/bundle")

// Options controls bundle assembly.
type Options struct {
	SourceRoots []string
	// Methods slices explicitly imported types down to the methods the
	// target uses.
	Methods bool
	Resolve resolve.Options
}

// Section is one block of the bundle.
type Section struct {
	Kind string
	// Name qualifies the heading. Only import sections carry one.
	Name string
	Path string
	Text string
}

// Heading returns the section's "=== ... ===" line.
func (s Section) Heading() string {
	if s.Name == "" {
		return "=== " + s.Kind + " ==="
	}
	return "=== " + s.Kind + " " + s.Name + " ==="
}

// Bundle is the assembled context of Target.
type Bundle struct {
	Target   string
	Root     string
	Sections []Section
}

// WriteTo renders the bundle.
func (b *Bundle) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Context for %s\n# Repo: %s\n\n", b.Target, b.Root)
	for _, s := range b.Sections {
		fmt.Fprintf(&sb, "%s\n# File: %s\n\n%s\n\n", s.Heading(), s.Path, s.Text)
	}
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// Builder assembles bundles from a corpus.
type Builder struct {
	corpus   *corpus.Corpus
	resolver *resolve.Resolver
	matcher  *parse.Matcher
	log      *slog.Logger
}

// New returns a Builder. m and log may be nil.
func New(c *corpus.Corpus, r *resolve.Resolver, m *parse.Matcher, log *slog.Logger) *Builder {
	if m == nil {
		m = parse.New(parse.Windows{})
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Builder{corpus: c, resolver: r, matcher: m, log: log}
}

// Build assembles the bundle for the root-relative file target. A target
// that declares no type still gets its import and inheritance sections.
func (b *Builder) Build(ctx context.Context, target string, opts Options) (*Bundle, error) {
	ctx, span := tracer.Start(ctx, "bundle.Build")
	defer span.End()

	target = path.Clean(strings.ReplaceAll(target, "\\", "/"))
	if !b.corpus.Exists(target) {
		return nil, fmt.Errorf("%s: %w", target, resolve.ErrTargetNotFound)
	}
	src, err := b.corpus.ReadUncatalogued(target)
	if err != nil {
		return nil, err
	}
	if len(opts.SourceRoots) == 0 {
		opts.SourceRoots = DefaultSourceRoots
	}

	bn := &Bundle{Target: target, Root: b.corpus.Root()}
	bn.Sections = append(bn.Sections, b.imports(src, opts)...)
	bn.Sections = append(bn.Sections, b.inheritance(src, opts)...)

	fqn, err := b.resolver.TargetOf(target)
	switch {
	case errors.Is(err, resolve.ErrNoType):
		b.log.Debug("target declares no type", slog.String("path", target))
	case err != nil:
		return nil, err
	default:
		res, err := b.resolver.ResolveRecursive(ctx, fqn, opts.Resolve, nil)
		if err != nil {
			return nil, err
		}
		for _, p := range res.Files {
			if text, ok := b.read(p); ok {
				bn.Sections = append(bn.Sections, Section{Kind: KindReverse, Path: p, Text: text})
			}
		}
		beans, err := b.resolver.FindBeanReferences(ctx, model.SimpleName(fqn), opts.Resolve.IncludeTests)
		if err != nil {
			return nil, err
		}
		for _, ref := range beans {
			if text, ok := b.read(ref.Path); ok {
				bn.Sections = append(bn.Sections, Section{Kind: KindBean, Path: ref.Path, Text: text})
			}
		}
	}

	span.SetAttributes(attribute.String("target", target), attribute.Int("sections", len(bn.Sections)))
	return bn, nil
}

func (b *Builder) imports(src *model.SourceFile, opts Options) []Section {
	used := rules.UsedIdentifiers(src.Text)
	var out []Section
	for _, imp := range rules.Imports(src.Text) {
		if pkg, ok := strings.CutSuffix(imp, ".*"); ok {
			for _, p := range b.packageFiles(pkg, opts.SourceRoots) {
				text, ok := b.read(p)
				if !ok {
					continue
				}
				name, ok := rules.FirstType(text)
				if !ok {
					continue
				}
				if _, use := used[name]; !use {
					continue
				}
				out = append(out, Section{Kind: KindImport, Name: imp + "::" + name, Path: p, Text: classBlock(text)})
			}
			continue
		}

		p, ok := b.locate(imp, opts.SourceRoots)
		if !ok {
			continue
		}
		text, ok := b.read(p)
		if !ok {
			continue
		}
		if opts.Methods {
			if methods := b.usedMethods(p, text, used); len(methods) > 0 {
				for _, m := range methods {
					out = append(out, Section{Kind: KindImport, Name: imp + "." + m.Name + " (METHOD)", Path: p, Text: m.Text})
				}
				continue
			}
		}
		out = append(out, Section{Kind: KindImport, Name: imp, Path: p, Text: classBlock(text)})
	}
	return out
}

// usedMethods returns the methods of text whose names the target uses,
// one per name.
func (b *Builder) usedMethods(p, text string, used map[string]struct{}) []parse.Method {
	_, decls := b.matcher.Declarations(p, text)
	seen := make(map[string]struct{})
	var out []parse.Method
	for _, d := range decls {
		for _, m := range b.matcher.Methods(d) {
			if _, ok := used[m.Name]; !ok {
				continue
			}
			if _, dup := seen[m.Name]; dup {
				continue
			}
			seen[m.Name] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

func (b *Builder) inheritance(src *model.SourceFile, opts Options) []Section {
	text := src.Text
	imports := rules.Imports(text)
	_, decls := b.matcher.Declarations(src.Path, text)
	tailLen := b.matcher.Windows().HeaderTail

	seen := map[string]struct{}{src.Path: {}}
	var out []Section
	for _, d := range decls {
		tail := text[d.NameEnd:min(len(text), d.NameEnd+tailLen)]
		names := append(parse.Supertypes(tail), parse.Interfaces(tail)...)
		for _, name := range names {
			p, ok := b.locateType(rawType(name), src.Package, imports, opts.SourceRoots)
			if !ok {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			if full, ok := b.read(p); ok {
				out = append(out, Section{Kind: KindInheritance, Path: p, Text: full})
			}
		}
	}
	return out
}

// locateType resolves a type name as written in a header: qualified names
// directly, simple names through explicit imports, then the declaring
// package, then wildcard imports.
func (b *Builder) locateType(name, pkg string, imports, roots []string) (string, bool) {
	if strings.Contains(name, ".") {
		return b.locate(name, roots)
	}
	for _, imp := range imports {
		if model.SimpleName(imp) == name {
			return b.locate(imp, roots)
		}
	}
	if p, ok := b.locate(model.FQN(pkg, name), roots); ok {
		return p, true
	}
	for _, imp := range imports {
		if wpkg, ok := strings.CutSuffix(imp, ".*"); ok {
			if p, ok := b.locate(wpkg+"."+name, roots); ok {
				return p, true
			}
		}
	}
	return "", false
}

// locate finds the file declaring fqn: first by path under each source
// root, then by package and type name across the catalog.
func (b *Builder) locate(fqn string, roots []string) (string, bool) {
	rel := strings.ReplaceAll(fqn, ".", "/") + ".java"
	for _, root := range roots {
		p := path.Join(root, rel)
		if b.corpus.Exists(p) {
			return p, true
		}
	}
	pkg, simple := model.PackageOf(fqn), model.SimpleName(fqn)
	for _, e := range b.corpus.Files() {
		sf, err := b.corpus.Load(e.Path)
		if err != nil {
			continue
		}
		if sf.Package == pkg && rules.DeclaresType(sf.Text, simple) {
			return e.Path, true
		}
	}
	return "", false
}

// packageFiles lists the files of a package: the .java files directly under
// the package directory of each source root, else the catalogued files
// declaring the package.
func (b *Builder) packageFiles(pkg string, roots []string) []string {
	dir := strings.ReplaceAll(pkg, ".", "/")
	var out []string
	for _, e := range b.corpus.Files() {
		for _, root := range roots {
			if path.Dir(e.Path) == path.Join(root, dir) {
				out = append(out, e.Path)
				break
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, e := range b.corpus.Files() {
		if sf, err := b.corpus.Load(e.Path); err == nil && sf.Package == pkg {
			out = append(out, e.Path)
		}
	}
	return out
}

func (b *Builder) read(p string) (string, bool) {
	sf, err := b.corpus.ReadUncatalogued(p)
	if err != nil {
		b.log.Warn("skipping file",
			slog.String("path", p),
			slog.String("phase", "bundle"),
			slog.Any("error", err))
		return "", false
	}
	return sf.Text, true
}

// classBlock returns the first type declaration through its closing brace,
// or the whole text when none is found.
func classBlock(text string) string {
	loc := rules.TypeDeclaration.FindStringIndex(text)
	if loc == nil {
		return text
	}
	blk, ok := block.Find(text, loc[0], loc[1], 0)
	if !ok || blk.Truncated {
		return text
	}
	return strings.TrimLeft(blk.Text(text), " \t\r\n")
}

// rawType strips type arguments and array brackets.
func rawType(name string) string {
	if i := strings.IndexAny(name, "<["); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}
