// Package corpus is the source catalog: the discovered Java files of one
// root plus lazy, cached access to their text.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/phobologic/javamap/internal/discover"
	"github.com/phobologic/javamap/internal/model"
	"github.com/phobologic/javamap/internal/rules"
)

// DefaultMaxFileSize skips files larger than 1 MB.
const DefaultMaxFileSize = 1_000_000

// ErrNotInCatalog is returned by Load for a path that was not discovered.
var ErrNotInCatalog = errors.New("file not in catalog")

// Options controls catalog construction.
type Options struct {
	IncludeTests bool
	TestSuffixes []string
	// MaxFileSize skips larger files with a warning. Zero means DefaultMaxFileSize,
	// negative disables the check.
	MaxFileSize int64
}

// Corpus is safe for concurrent use.
type Corpus struct {
	root    string
	entries []discover.FileEntry
	byPath  map[string]int

	group singleflight.Group

	mu       sync.RWMutex
	loaded   map[string]*model.SourceFile
	warnings []model.Warning
}

// Open catalogs the Java files under root.
func Open(root string, opts Options) (*Corpus, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", abs)
	}

	entries, warnings, err := discover.Files(abs, discover.Options{
		IncludeTests: opts.IncludeTests,
		TestSuffixes: opts.TestSuffixes,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}

	maxSize := opts.MaxFileSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}
	if maxSize > 0 {
		entries, warnings = filterBySize(abs, entries, maxSize, warnings)
	}

	c := &Corpus{
		root:     abs,
		entries:  entries,
		byPath:   make(map[string]int, len(entries)),
		loaded:   make(map[string]*model.SourceFile),
		warnings: warnings,
	}
	for i, e := range entries {
		c.byPath[e.Path] = i
	}
	return c, nil
}

func filterBySize(root string, files []discover.FileEntry, maxSize int64, warnings []model.Warning) ([]discover.FileEntry, []model.Warning) {
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, filepath.FromSlash(f.Path)))
		if err != nil {
			kept = append(kept, f) // Load reports the error
			continue
		}
		if fi.Size() > maxSize {
			warnings = append(warnings, model.Warning{
				Path:  f.Path,
				Phase: "discover",
				Err:   fmt.Errorf("skipped (>%d bytes)", maxSize),
			})
			continue
		}
		kept = append(kept, f)
	}
	return kept, warnings
}

// Root returns the absolute corpus root.
func (c *Corpus) Root() string {
	return c.root
}

// Files returns the catalog entries sorted by path.
func (c *Corpus) Files() []discover.FileEntry {
	return c.entries
}

// Len returns the number of catalogued files.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Contains reports whether path is catalogued.
func (c *Corpus) Contains(path string) bool {
	_, ok := c.byPath[path]
	return ok
}

// Entry returns the catalog entry for path.
func (c *Corpus) Entry(path string) (discover.FileEntry, bool) {
	i, ok := c.byPath[path]
	if !ok {
		return discover.FileEntry{}, false
	}
	return c.entries[i], true
}

// Load reads and caches a catalogued file. Concurrent loads of one path
// share a single read.
func (c *Corpus) Load(path string) (*model.SourceFile, error) {
	entry, ok := c.Entry(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotInCatalog)
	}

	c.mu.RLock()
	sf, ok := c.loaded[path]
	c.mu.RUnlock()
	if ok {
		return sf, nil
	}

	v, err, _ := c.group.Do(path, func() (any, error) {
		data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(path)))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		text := string(data)
		sf := &model.SourceFile{
			Path:    path,
			Text:    text,
			Package: rules.PackageName(text),
			Test:    entry.Test,
		}
		c.mu.Lock()
		c.loaded[path] = sf
		c.mu.Unlock()
		return sf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.SourceFile), nil
}

// Warn records a warning against the corpus.
func (c *Corpus) Warn(w model.Warning) {
	c.mu.Lock()
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()
}

// Warnings returns a copy of the recorded warnings.
func (c *Corpus) Warnings() []model.Warning {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Exists reports whether a root-relative path exists on disk, catalogued
// or not.
func (c *Corpus) Exists(path string) bool {
	info, err := os.Stat(filepath.Join(c.root, filepath.FromSlash(path)))
	return err == nil && !info.IsDir()
}

// ReadUncatalogued reads a root-relative file that discovery may have
// skipped (for example a test file named as a context target).
func (c *Corpus) ReadUncatalogued(path string) (*model.SourceFile, error) {
	if c.Contains(path) {
		return c.Load(path)
	}
	data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	text := string(data)
	return &model.SourceFile{Path: path, Text: text, Package: rules.PackageName(text)}, nil
}
