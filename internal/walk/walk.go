package walk

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Options configures a traversal.
type Options struct {
	// Roots are files or directories to enumerate.
	Roots []string
	// Globs are include patterns (doublestar syntax); when set, a file
	// must match at least one.
	Globs []string
	// ExcludeGlobs remove files that would otherwise be included.
	ExcludeGlobs []string
	// LanguageFor resolves a path to its language identifier. Files it
	// rejects are skipped.
	LanguageFor func(path string) (string, bool)
	// Hidden includes dot-files and dot-directories.
	Hidden bool
	// NoIgnore disables .gitignore handling.
	NoIgnore bool
}

// Entry is one discovered source file.
type Entry struct {
	// Path is the absolute path on disk.
	Path string
	// RelPath is the path relative to the walk root, slash-separated.
	RelPath string
	// Language is the backend identifier claiming the file.
	Language string
}

// Files enumerates every candidate file under the roots. The result is
// sorted by relative path so downstream ordering never depends on
// filesystem enumeration order.
func Files(opts Options) ([]Entry, error) {
	var entries []Entry
	seen := make(map[string]bool)

	for _, root := range opts.Roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", root, err)
		}
		info, err := os.Stat(absRoot)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}

		if !info.IsDir() {
			if e, ok := accept(absRoot, filepath.Base(absRoot), opts); ok && !seen[e.Path] {
				seen[e.Path] = true
				entries = append(entries, e)
			}
			continue
		}

		ignores := &ignoreSet{}
		if !opts.NoIgnore {
			ignores.loadIgnoreFile(filepath.Join(absRoot, ".gitignore"), "")
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable entries degrade, not abort
			}
			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil || rel == "." {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if !opts.Hidden && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !opts.NoIgnore && ignores.Ignored(rel, d.IsDir()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if !opts.NoIgnore {
					ignores.loadIgnoreFile(filepath.Join(path, ".gitignore"), rel)
				}
				return nil
			}

			if e, ok := accept(path, rel, opts); ok && !seen[e.Path] {
				seen[e.Path] = true
				entries = append(entries, e)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].RelPath != entries[j].RelPath {
			return entries[i].RelPath < entries[j].RelPath
		}
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// accept applies glob and language filters to one file.
func accept(path, rel string, opts Options) (Entry, bool) {
	if len(opts.Globs) > 0 && !matchAny(opts.Globs, rel) {
		return Entry{}, false
	}
	if matchAny(opts.ExcludeGlobs, rel) {
		return Entry{}, false
	}
	language := ""
	if opts.LanguageFor != nil {
		lang, ok := opts.LanguageFor(path)
		if !ok {
			return Entry{}, false
		}
		language = lang
	}
	return Entry{Path: path, RelPath: rel, Language: language}, true
}

// matchAny matches a relative path against doublestar patterns, also
// accepting basename-only patterns the way grep tools do.
func matchAny(globs []string, rel string) bool {
	base := filepath.Base(rel)
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
		if !strings.Contains(g, "/") {
			if ok, _ := doublestar.Match(g, base); ok {
				return true
			}
		}
	}
	return false
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.'
}
