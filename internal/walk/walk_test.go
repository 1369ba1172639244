package walk

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

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

func relPaths(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.RelPath)
	}
	return out
}

func TestFilesDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.go", "package b\n")
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "sub/c.go", "package c\n")

	entries, err := Files(Options{Roots: []string{root}})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.go", "b.go", "sub/c.go"}
	if !reflect.DeepEqual(relPaths(entries), want) {
		t.Errorf("order = %v, want %v", relPaths(entries), want)
	}
}

func TestFilesGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "vendor/\n*.log\n")
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "vendor/dep.go", "package dep\n")
	writeFile(t, root, "debug.log", "noise\n")

	entries, err := Files(Options{Roots: []string{root}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(relPaths(entries), []string{"main.go"}) {
		t.Errorf("entries = %v", relPaths(entries))
	}

	// NoIgnore surfaces everything except hidden files.
	entries, err = Files(Options{Roots: []string{root}, NoIgnore: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("NoIgnore entries = %v", relPaths(entries))
	}
}

func TestFilesNestedGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sub/.gitignore", "generated.go\n")
	writeFile(t, root, "sub/generated.go", "package sub\n")
	writeFile(t, root, "sub/kept.go", "package sub\n")

	entries, err := Files(Options{Roots: []string{root}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(relPaths(entries), []string{"sub/kept.go"}) {
		t.Errorf("entries = %v", relPaths(entries))
	}
}

func TestFilesGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "b.py", "x = 1\n")
	writeFile(t, root, "sub/c.go", "package c\n")

	entries, err := Files(Options{Roots: []string{root}, Globs: []string{"**/*.go", "*.go"}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(relPaths(entries), []string{"a.go", "sub/c.go"}) {
		t.Errorf("glob entries = %v", relPaths(entries))
	}

	entries, err = Files(Options{Roots: []string{root}, ExcludeGlobs: []string{"sub/**"}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(relPaths(entries), []string{"a.go", "b.py"}) {
		t.Errorf("exclude entries = %v", relPaths(entries))
	}
}

func TestFilesLanguageFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "b.py", "x = 1\n")

	entries, err := Files(Options{
		Roots: []string{root},
		LanguageFor: func(path string) (string, bool) {
			if filepath.Ext(path) == ".go" {
				return "go", true
			}
			return "", false
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Language != "go" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestFilesSingleFileRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "only.go", "package only\n")

	entries, err := Files(Options{Roots: []string{filepath.Join(root, "only.go")}})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].RelPath != "only.go" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestFilesMissingRoot(t *testing.T) {
	if _, err := Files(Options{Roots: []string{"/does/not/exist"}}); err == nil {
		t.Fatal("missing root must fail")
	}
}
