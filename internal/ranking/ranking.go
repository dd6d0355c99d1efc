// Package ranking scores types by PageRank over the type graph and selects
// or filters the ranked result.
package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/phobologic/javamap/internal/graph"
	"github.com/phobologic/javamap/internal/model"
)

const (
	alpha   = 0.85
	maxIter = 100
	tol     = 1e-6
)

// Edge is a resolved type-to-type dependency.
type Edge struct {
	From string
	To   string
	Type model.RelationType
}

// Ranking is the ranked type graph. Types are sorted by rank, highest first.
type Ranking struct {
	Types []model.RankedType
	Edges []Edge
}

// Rank builds the type graph from the extends, implements and autowired
// relations of g and ranks every declared type. Relation targets are
// resolved by qualified name, then by simple name in the declaring package,
// then by a unique simple name; unresolved targets are dropped.
func Rank(g *graph.Graph) *Ranking {
	nodes := make(map[string]struct{})
	decl := make(map[string]model.TypeDeclaration)
	for _, t := range g.Types() {
		if _, dup := decl[t.FQN]; dup {
			continue
		}
		nodes[t.FQN] = struct{}{}
		decl[t.FQN] = t
	}

	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	degree := make(map[string]int)
	seen := make(map[Edge]struct{})
	var edges []Edge
	for _, r := range g.Relations() {
		if r.Type != model.Extends && r.Type != model.Implements && r.Type != model.Autowired {
			continue
		}
		if _, ok := nodes[r.From]; !ok {
			continue
		}
		to, ok := resolve(g, r.From, r.To)
		if !ok || to == r.From {
			continue
		}
		e := Edge{From: r.From, To: to, Type: r.Type}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		edges = append(edges, e)
		degree[r.From]++
		degree[to]++
		if !contains(outEdges[r.From], to) {
			outEdges[r.From] = append(outEdges[r.From], to)
			outDegree[r.From]++
		}
	}

	ranks := pageRank(nodes, outEdges, outDegree, alpha, maxIter, tol)

	types := make([]model.RankedType, 0, len(nodes))
	for _, fqn := range sortedKeys(nodes) {
		types = append(types, model.RankedType{
			TypeDeclaration: decl[fqn],
			Rank:            ranks[fqn],
			Degree:          degree[fqn],
		})
	}
	sort.SliceStable(types, func(i, j int) bool {
		return types[i].Rank > types[j].Rank
	})
	return &Ranking{Types: types, Edges: edges}
}

// resolve maps a relation target as written in source to a declared FQN.
func resolve(g *graph.Graph, from, to string) (string, bool) {
	if i := strings.IndexAny(to, "<["); i >= 0 {
		to = to[:i]
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return "", false
	}
	if _, ok := g.Type(to); ok {
		return to, true
	}
	simple := model.SimpleName(to)
	// A same-package type wins over simple-name matches elsewhere.
	if local := model.FQN(model.PackageOf(from), simple); local != to {
		if _, ok := g.Type(local); ok {
			return local, true
		}
	}
	candidates := g.Lookup(simple)
	if len(candidates) == 1 {
		return candidates[0].FQN, true
	}
	return "", false
}

// Select returns a new Ranking with only the top maxTypes types and the
// edges between them. If maxTypes is <= 0 or covers every type, r is
// returned unchanged.
func Select(r *Ranking, maxTypes int) *Ranking {
	if maxTypes <= 0 || maxTypes >= len(r.Types) {
		return r
	}
	selected := r.Types[:maxTypes]
	keep := make(map[string]struct{}, maxTypes)
	for i := range selected {
		keep[selected[i].FQN] = struct{}{}
	}

	var edges []Edge
	for _, e := range r.Edges {
		_, fromOK := keep[e.From]
		_, toOK := keep[e.To]
		if fromOK && toOK {
			edges = append(edges, e)
		}
	}
	return &Ranking{Types: selected, Edges: edges}
}

// FilterByName returns the types whose simple name contains substr
// (case-insensitive), their direct neighbours, and the edges touching the
// matched types.
func FilterByName(r *Ranking, substr string) *Ranking {
	lower := strings.ToLower(substr)
	return filter(r, func(t *model.RankedType) bool {
		return strings.Contains(strings.ToLower(t.Name), lower)
	}, true)
}

// FilterByFile returns the types declared in files whose path contains
// substr (case-insensitive), with every edge touching them.
func FilterByFile(r *Ranking, substr string) *Ranking {
	lower := strings.ToLower(substr)
	return filter(r, func(t *model.RankedType) bool {
		return strings.Contains(strings.ToLower(t.File), lower)
	}, false)
}

func filter(r *Ranking, match func(*model.RankedType) bool, neighbours bool) *Ranking {
	matched := make(map[string]struct{})
	for i := range r.Types {
		if match(&r.Types[i]) {
			matched[r.Types[i].FQN] = struct{}{}
		}
	}

	var edges []Edge
	related := make(map[string]struct{})
	for _, e := range r.Edges {
		_, fromOK := matched[e.From]
		_, toOK := matched[e.To]
		if !fromOK && !toOK {
			continue
		}
		edges = append(edges, e)
		if neighbours {
			related[e.From] = struct{}{}
			related[e.To] = struct{}{}
		}
	}

	var types []model.RankedType
	for i := range r.Types {
		_, isMatched := matched[r.Types[i].FQN]
		_, isRelated := related[r.Types[i].FQN]
		if isMatched || isRelated {
			types = append(types, r.Types[i])
		}
	}
	return &Ranking{Types: types, Edges: edges}
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for src, targets := range outEdges {
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
