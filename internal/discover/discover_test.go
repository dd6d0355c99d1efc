package discover

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestDiscoverJavaFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "src/main/java/com/acme/App.java", "package com.acme; class App {}")
	writeFile(t, dir, "src/main/java/com/acme/util/Strings.java", "package com.acme.util; class Strings {}")
	// Non-Java file should be ignored
	writeFile(t, dir, "readme.txt", "hello")
	writeFile(t, dir, "pom.xml", "<project/>")
	// Hidden file should be ignored
	writeFile(t, dir, ".Hidden.java", "class Hidden {}")

	entries, _, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(entries), paths)
	}

	// Should be sorted, slash-separated
	if entries[0].Path != "src/main/java/com/acme/App.java" {
		t.Errorf("entry 0: got %q", entries[0].Path)
	}
	if entries[1].Path != "src/main/java/com/acme/util/Strings.java" {
		t.Errorf("entry 1: got %q", entries[1].Path)
	}

	for _, e := range entries {
		if e.Language != "java" {
			t.Errorf("entry %q: language = %q, want java", e.Path, e.Language)
		}
	}
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "App.java", "class App {}")
	writeFile(t, dir, "target/generated/Gen.java", "class Gen {}")
	writeFile(t, dir, "node_modules/pkg/X.java", "class X {}")
	writeFile(t, dir, ".gradle/cache/Y.java", "class Y {}")
	writeFile(t, dir, ".hidden/Secret.java", "class Secret {}")

	entries, _, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Path != "App.java" {
		t.Errorf("expected App.java, got %q", entries[0].Path)
	}
}

func TestDiscoverExcludesTests(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "Foo.java", "class Foo {}")
	writeFile(t, dir, "FooTest.java", "class FooTest {}")
	writeFile(t, dir, "BarTEST.java", "class BarTEST {}")

	entries, _, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "Foo.java" {
		t.Fatalf("expected only Foo.java, got %+v", entries)
	}

	entries, _, err = Files(dir, Options{IncludeTests: true})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries with tests included, got %d", len(entries))
	}
	for _, e := range entries {
		wantTest := e.Path != "Foo.java"
		if e.Test != wantTest {
			t.Errorf("%s: Test = %v, want %v", e.Path, e.Test, wantTest)
		}
	}
}

func TestDiscoverGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "generated/\n")
	writeFile(t, dir, "App.java", "class App {}")
	writeFile(t, dir, "generated/Gen.java", "class Gen {}")

	entries, _, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "App.java" {
		t.Fatalf("expected only App.java, got %+v", entries)
	}
}

func TestDiscoverGitRepo(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	cmd := exec.Command("git", "init", "-q")
	cmd.Dir = dir
	if err := cmd.Run(); err != nil {
		t.Skipf("git init: %v", err)
	}
	writeFile(t, dir, ".gitignore", "Ignored.java\n")
	writeFile(t, dir, "App.java", "class App {}")
	writeFile(t, dir, "Ignored.java", "class Ignored {}")

	entries, _, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "App.java" {
		t.Fatalf("expected only App.java, got %+v", entries)
	}
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Real.java", "class Real {}")

	// Create symlink
	err := os.Symlink(filepath.Join(dir, "Real.java"), filepath.Join(dir, "Link.java"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	entries, _, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry (no symlink), got %d", len(entries))
	}
	if entries[0].Path != "Real.java" {
		t.Errorf("expected Real.java, got %q", entries[0].Path)
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	t.Parallel()

	_, _, err := Files(filepath.Join(t.TempDir(), "nope"), Options{})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestIsTestFile(t *testing.T) {
	t.Parallel()
	cases := []struct {
		path     string
		suffixes []string
		want     bool
	}{
		{"src/test/java/FooTest.java", DefaultTestSuffixes, true},
		{"FooTEST.java", DefaultTestSuffixes, true},
		{"footest.java", DefaultTestSuffixes, true},
		{"Foo.java", DefaultTestSuffixes, false},
		{"TestFoo.java", DefaultTestSuffixes, false},
		{"FooTests.java", DefaultTestSuffixes, false},
		{"FooTests.java", []string{"Test", "Tests"}, true},
		{"FooIT.java", []string{"Test", "IT"}, true},
		{"Contest.java", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			got := IsTestFile(tc.path, tc.suffixes)
			if got != tc.want {
				t.Errorf("IsTestFile(%q, %v) = %v, want %v", tc.path, tc.suffixes, got, tc.want)
			}
		})
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
