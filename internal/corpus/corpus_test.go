package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "src/main/java/p/A.java", "package p;\npublic class A {}\n")
	writeFile(t, dir, "src/main/java/Loose.java", "class Loose {}\n")

	c, err := Open(dir, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	sf, err := c.Load("src/main/java/p/A.java")
	require.NoError(t, err)
	assert.Equal(t, "p", sf.Package)
	assert.Contains(t, sf.Text, "public class A")

	loose, err := c.Load("src/main/java/Loose.java")
	require.NoError(t, err)
	assert.Equal(t, "default", loose.Package)

	again, err := c.Load("src/main/java/p/A.java")
	require.NoError(t, err)
	assert.Same(t, sf, again)
}

func TestLoadNotInCatalog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "A.java", "class A {}")

	c, err := Open(dir, Options{})
	require.NoError(t, err)

	_, err = c.Load("B.java")
	assert.True(t, errors.Is(err, ErrNotInCatalog))
}

func TestLoadConcurrent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "A.java", "package p; class A {}")

	c, err := Open(dir, Options{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sf, err := c.Load("A.java")
			assert.NoError(t, err)
			assert.Equal(t, "p", sf.Package)
		}()
	}
	wg.Wait()
}

func TestLoadRemovedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "A.java", "class A {}")

	c, err := Open(dir, Options{})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "A.java")))

	_, err = c.Load("A.java")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotInCatalog))
}

func TestOpenMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)
}

func TestOpenMaxFileSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Small.java", "class Small {}")
	writeFile(t, dir, "Big.java", "class Big {"+strings.Repeat(" ", 200)+"}")

	c, err := Open(dir, Options{MaxFileSize: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Contains("Small.java"))

	warnings := c.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Big.java", warnings[0].Path)
}

func TestOpenTests(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Foo.java", "class Foo {}")
	writeFile(t, dir, "FooTest.java", "class FooTest {}")

	c, err := Open(dir, Options{})
	require.NoError(t, err)
	assert.False(t, c.Contains("FooTest.java"))

	sf, err := c.ReadUncatalogued("FooTest.java")
	require.NoError(t, err)
	assert.Contains(t, sf.Text, "FooTest")

	c, err = Open(dir, Options{IncludeTests: true})
	require.NoError(t, err)
	e, ok := c.Entry("FooTest.java")
	require.True(t, ok)
	assert.True(t, e.Test)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
