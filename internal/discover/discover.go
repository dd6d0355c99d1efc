// Package discover finds Java source files in a repository.
package discover

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/javamap/internal/lang"
	"github.com/phobologic/javamap/internal/model"
)

// ErrNoFiles is returned by callers that need at least one source file.
var ErrNoFiles = errors.New("no java source files found")

// DefaultTestSuffixes classify FooTest.java as a test file.
var DefaultTestSuffixes = []string{"Test"}

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to repo root
	Language string
	Test     bool
}

// Options controls discovery.
type Options struct {
	IncludeTests bool
	// TestSuffixes override DefaultTestSuffixes when non-empty.
	TestSuffixes []string
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	".gradle":      {},
	".idea":        {},
	".mvn":         {},
	"build":        {},
	"target":       {},
	"dist":         {},
}

// Files discovers Java source files under root, sorted by path.
// Unreadable entries are skipped and returned as warnings.
func Files(root string, opts Options) ([]FileEntry, []model.Warning, error) {
	suffixes := opts.TestSuffixes
	if len(suffixes) == 0 {
		suffixes = DefaultTestSuffixes
	}

	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var (
		results  []FileEntry
		warnings []model.Warning
	)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			rel, _ := filepath.Rel(root, path)
			warnings = append(warnings, model.Warning{Path: rel, Phase: "discover", Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		langName := lang.ForExtension(filepath.Ext(name))
		if langName == "" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		isTest := IsTestFile(rel, suffixes)
		if isTest && !opts.IncludeTests {
			return nil
		}

		results = append(results, FileEntry{Path: rel, Language: langName, Test: isTest})
		return nil
	})
	if err != nil {
		return nil, warnings, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, warnings, nil
}

// IsTestFile reports whether the base name of path, without its extension,
// ends with one of suffixes. Comparison is case-insensitive.
func IsTestFile(path string, suffixes []string) bool {
	base := filepath.Base(filepath.FromSlash(path))
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	for _, s := range suffixes {
		if s != "" && strings.HasSuffix(stem, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
