// Package graph aggregates per-file extraction results into the relation
// graph and answers structural queries over it.
package graph

import (
	"sort"
	"strings"

	"github.com/phobologic/javamap/internal/index"
	"github.com/phobologic/javamap/internal/model"
)

// Graph is the read-only result of a Build. Relations keep catalog order
// and, within a file, extraction order. No cross-file consistency is
// enforced: two files may declare the same FQN.
type Graph struct {
	files     []model.FileResult
	relations []model.Relation
	types     []model.TypeDeclaration
	byFQN     map[string][]int // indexes into types
	bySimple  map[string][]int
	warnings  []model.Warning
	index     *index.Index
}

// New assembles a graph from file results, in the order given.
func New(results []model.FileResult, idx *index.Index, warnings []model.Warning) *Graph {
	g := &Graph{warnings: warnings, index: idx}
	for _, r := range results {
		g.add(r)
	}
	return g
}

func (g *Graph) add(r model.FileResult) {
	if g.byFQN == nil {
		g.byFQN = make(map[string][]int)
		g.bySimple = make(map[string][]int)
	}
	g.files = append(g.files, r)
	g.relations = append(g.relations, r.Relations...)
	for _, t := range r.Types {
		i := len(g.types)
		g.types = append(g.types, t)
		g.byFQN[t.FQN] = append(g.byFQN[t.FQN], i)
		g.bySimple[t.Name] = append(g.bySimple[t.Name], i)
	}
}

// Relations returns every relation.
func (g *Graph) Relations() []model.Relation {
	return g.relations
}

// Files returns the per-file results in catalog order.
func (g *Graph) Files() []model.FileResult {
	return g.files
}

// Types returns every type declaration.
func (g *Graph) Types() []model.TypeDeclaration {
	return g.types
}

// Type returns the first declaration of fqn.
func (g *Graph) Type(fqn string) (model.TypeDeclaration, bool) {
	if ix := g.byFQN[fqn]; len(ix) > 0 {
		return g.types[ix[0]], true
	}
	return model.TypeDeclaration{}, false
}

// Lookup resolves a fully-qualified or simple name to declarations.
// A qualified name matches exactly; a simple name may match several types.
func (g *Graph) Lookup(name string) []model.TypeDeclaration {
	ix := g.byFQN[name]
	if len(ix) == 0 && !strings.Contains(name, ".") {
		ix = g.bySimple[name]
	}
	out := make([]model.TypeDeclaration, 0, len(ix))
	for _, i := range ix {
		out = append(out, g.types[i])
	}
	return out
}

// Outgoing returns the relations of a type and the calls of its methods.
func (g *Graph) Outgoing(fqn string) []model.Relation {
	var out []model.Relation
	prefix := fqn + "."
	for _, r := range g.relations {
		if r.From == fqn {
			out = append(out, r)
			continue
		}
		if r.Type == model.Calls && strings.HasPrefix(r.From, prefix) &&
			!strings.Contains(r.From[len(prefix):], ".") {
			out = append(out, r)
		}
	}
	return out
}

// Incoming returns relations from other types whose target names fqn,
// either qualified or by simple name, with or without type arguments.
// Simple-name matches are heuristic.
func (g *Graph) Incoming(fqn string) []model.Relation {
	simple := model.SimpleName(fqn)
	var out []model.Relation
	for _, r := range g.relations {
		if r.From == fqn || r.Type == model.Calls || r.Type == model.Declares {
			continue
		}
		if r.To == fqn || r.To == simple ||
			strings.HasPrefix(r.To, fqn+"<") || strings.HasPrefix(r.To, simple+"<") {
			out = append(out, r)
		}
	}
	return out
}

// Callers returns calls relations whose target is the simple method name.
func (g *Graph) Callers(method string) []model.Relation {
	var out []model.Relation
	for _, r := range g.relations {
		if r.Type == model.Calls && r.To == method {
			out = append(out, r)
		}
	}
	return out
}

// Counts returns the number of relations per type.
func (g *Graph) Counts() map[model.RelationType]int {
	counts := make(map[model.RelationType]int, len(model.RelationTypes))
	for _, r := range g.relations {
		counts[r.Type]++
	}
	return counts
}

// Warnings returns per-file failures, sorted by path.
func (g *Graph) Warnings() []model.Warning {
	return g.warnings
}

// Index returns the frozen MethodIndex used for pass 2.
func (g *Graph) Index() *index.Index {
	if g.index == nil {
		return index.Empty
	}
	return g.index
}

func sortWarnings(ws []model.Warning) {
	sort.SliceStable(ws, func(i, j int) bool {
		return ws[i].Path < ws[j].Path
	})
}
