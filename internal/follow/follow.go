// Package follow derives caller/callee neighborhoods from the call
// metadata of symbol search results. It is a thin projection over the
// engine: one symbol search, then per-target edge grouping.
package follow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kcosr/symgrep/internal/engine"
	"github.com/kcosr/symgrep/internal/model"
)

// Config selects the follow targets and direction. Discovery options
// mirror the search configuration.
type Config struct {
	Pattern      string
	Direction    model.FollowDirection
	Paths        []string
	Globs        []string
	ExcludeGlobs []string
	Language     string
	Literal      bool
	// Limit caps the number of targets, never the edges within one.
	Limit    *int
	Hidden   bool
	NoIgnore bool
}

// Run executes the follow operation. Call edges are always derived from
// a live parse; indexes are not consulted.
func Run(ctx context.Context, eng *engine.Engine, cfg Config) (*model.FollowResult, error) {
	direction := cfg.Direction
	if direction == "" {
		direction = model.FollowBoth
	}
	switch direction {
	case model.FollowCallers, model.FollowCallees, model.FollowBoth:
	default:
		return nil, fmt.Errorf("unknown follow direction %q", cfg.Direction)
	}

	searchResult, err := eng.SearchSymbolsWithCalls(ctx, engine.SearchConfig{
		Pattern:      cfg.Pattern,
		Paths:        cfg.Paths,
		Globs:        cfg.Globs,
		ExcludeGlobs: cfg.ExcludeGlobs,
		Language:     cfg.Language,
		Literal:      cfg.Literal,
		Limit:        cfg.Limit,
		Hidden:       cfg.Hidden,
		NoIgnore:     cfg.NoIgnore,
	})
	if err != nil {
		return nil, err
	}

	root := "."
	if len(cfg.Paths) > 0 {
		root = cfg.Paths[0]
	}
	lines := newLineCache(root)

	result := &model.FollowResult{
		Version:   model.FollowResultVersion,
		Direction: direction,
		Query:     cfg.Pattern,
		Targets:   []model.FollowTarget{},
	}
	for i := range searchResult.Symbols {
		target := searchResult.Symbols[i]
		ft := model.FollowTarget{Symbol: target}
		if direction == model.FollowCallers || direction == model.FollowBoth {
			ft.Callers = groupEdges(target.CalledBy, target.Name, lines)
		}
		if direction == model.FollowCallees || direction == model.FollowBoth {
			ft.Callees = groupEdges(target.Calls, "", lines)
		}
		result.Targets = append(result.Targets, ft)
	}
	return result, nil
}

// groupEdges folds call refs into one edge per (name, file, kind) with
// the collected call sites. siteName is the identifier to locate on the
// call line for the best-effort column; empty uses the edge's own name.
func groupEdges(refs []model.CallRef, siteName string, lines *lineCache) []model.FollowEdge {
	type key struct {
		name string
		file string
		kind model.SymbolKind
	}
	var order []key
	grouped := make(map[key]*model.FollowEdge)

	for _, ref := range refs {
		k := key{name: ref.Name, file: ref.File, kind: ref.Kind}
		edge, ok := grouped[k]
		if !ok {
			edge = &model.FollowEdge{
				Symbol: model.FollowSymbolRef{Name: ref.Name, Kind: ref.Kind, File: ref.File},
			}
			grouped[k] = edge
			order = append(order, k)
		}
		site := model.CallSite{File: ref.File, Line: ref.Line}
		lookup := siteName
		if lookup == "" {
			lookup = ref.Name
		}
		site.Column = lines.columnOf(ref.File, ref.Line, lookup)
		edge.CallSites = append(edge.CallSites, site)
	}

	edges := make([]model.FollowEdge, 0, len(order))
	for _, k := range order {
		edges = append(edges, *grouped[k])
	}
	return edges
}

// lineCache lazily loads file lines for call-site column resolution.
type lineCache struct {
	root  string
	files map[string][]string
}

func newLineCache(root string) *lineCache {
	return &lineCache{root: root, files: make(map[string][]string)}
}

// columnOf returns the 1-based column of the first occurrence of name on
// the given line, or 0 when it cannot be determined.
func (c *lineCache) columnOf(file string, line int, name string) int {
	if line <= 0 || name == "" {
		return 0
	}
	content, ok := c.files[file]
	if !ok {
		data, err := os.ReadFile(filepath.Join(c.root, file))
		if err != nil {
			c.files[file] = nil
			return 0
		}
		content = strings.Split(string(data), "\n")
		c.files[file] = content
	}
	if content == nil || line > len(content) {
		return 0
	}
	if idx := strings.Index(content[line-1], name); idx >= 0 {
		return idx + 1
	}
	return 0
}
