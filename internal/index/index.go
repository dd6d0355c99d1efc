// Package index holds the corpus-wide set of declared method names found in
// pass 1 and consulted by pass 2 when filtering call tokens.
package index

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/phobologic/javamap/internal/model"
)

// Builder accumulates method discoveries. It is not safe for concurrent use;
// workers buffer locally and a single goroutine merges into the Builder.
type Builder struct {
	byName map[string][]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{byName: make(map[string][]string)}
}

// Add records method refs.
func (b *Builder) Add(refs ...model.MethodRef) {
	for _, r := range refs {
		b.byName[r.Name] = append(b.byName[r.Name], r.FQN)
	}
}

// Freeze returns the read-only index. The Builder must not be used afterwards.
func (b *Builder) Freeze() *Index {
	h := xxhash.New()
	names := make([]string, 0, len(b.byName))
	for name, fqns := range b.byName {
		sort.Strings(fqns)
		fqns = dedupe(fqns)
		b.byName[name] = fqns
		names = append(names, name)
	}
	sort.Strings(names)
	total := 0
	for _, name := range names {
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
		for _, fqn := range b.byName[name] {
			_, _ = h.WriteString(fqn)
			_, _ = h.Write([]byte{0})
		}
		total += len(b.byName[name])
	}
	idx := &Index{
		byName: b.byName,
		names:  names,
		total:  total,
		digest: strconv.FormatUint(h.Sum64(), 16),
	}
	b.byName = nil
	return idx
}

func dedupe(sorted []string) []string {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

// Index is the frozen MethodIndex. Safe for concurrent reads.
type Index struct {
	byName map[string][]string
	names  []string
	total  int
	digest string
}

// Empty is an index with no methods.
var Empty = NewBuilder().Freeze()

// Contains reports whether any file declares a method with this simple name.
func (i *Index) Contains(name string) bool {
	if i == nil {
		return false
	}
	_, ok := i.byName[name]
	return ok
}

// FQNs returns the sorted qualified names declared under a simple name.
func (i *Index) FQNs(name string) []string {
	if i == nil {
		return nil
	}
	return i.byName[name]
}

// Names returns the sorted distinct simple names.
func (i *Index) Names() []string {
	if i == nil {
		return nil
	}
	return i.names
}

// Len returns the number of distinct simple names.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.names)
}

// Methods returns the number of distinct qualified methods.
func (i *Index) Methods() int {
	if i == nil {
		return 0
	}
	return i.total
}

// Digest identifies the index contents. Equal contents yield equal digests.
func (i *Index) Digest() string {
	if i == nil {
		return ""
	}
	return i.digest
}
