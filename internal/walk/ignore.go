// Package walk provides filesystem traversal for search and indexing:
// gitignore-aware, glob-filtered, language-filtered, and deterministic.
package walk

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignoreRule is a single parsed gitignore pattern.
type ignoreRule struct {
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool
	baseDir  string // directory the ignore file lives in, relative to root
}

// ignoreSet holds the rules gathered while descending from a root.
// Rules from deeper directories take precedence, as in git.
type ignoreSet struct {
	rules []ignoreRule
}

// loadIgnoreFile parses one .gitignore and appends its rules.
func (s *ignoreSet) loadIgnoreFile(path, baseDir string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule := ignoreRule{baseDir: baseDir}
		if strings.HasPrefix(line, "!") {
			rule.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			rule.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			rule.anchored = true
			line = line[1:]
		} else if strings.Contains(line, "/") {
			rule.anchored = true
		}
		rule.pattern = line
		s.rules = append(s.rules, rule)
	}
}

// Ignored reports whether relPath (relative to the walk root, using
// forward slashes) is excluded. Later rules win; negations re-include.
func (s *ignoreSet) Ignored(relPath string, isDir bool) bool {
	ignored := false
	for _, r := range s.rules {
		if r.dirOnly && !isDir {
			continue
		}
		p := relPath
		if r.baseDir != "" {
			var ok bool
			p, ok = strings.CutPrefix(relPath, r.baseDir+"/")
			if !ok {
				continue
			}
		}
		if r.matches(p) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r ignoreRule) matches(p string) bool {
	if r.anchored {
		if ok, _ := doublestar.Match(r.pattern, p); ok {
			return true
		}
		// A directory pattern also ignores everything beneath it.
		ok, _ := doublestar.Match(r.pattern+"/**", p)
		return ok
	}
	// Unanchored patterns match at any depth.
	base := filepath.Base(p)
	if ok, _ := doublestar.Match(r.pattern, base); ok {
		return true
	}
	if ok, _ := doublestar.Match("**/"+r.pattern, p); ok {
		return true
	}
	ok, _ := doublestar.Match("**/"+r.pattern+"/**", p)
	return ok
}
