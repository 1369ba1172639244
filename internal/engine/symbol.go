package engine

import (
	"context"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/kcosr/symgrep/internal/index"
	"github.com/kcosr/symgrep/internal/lang"
	"github.com/kcosr/symgrep/internal/model"
	"github.com/kcosr/symgrep/internal/query"
	"github.com/kcosr/symgrep/internal/walk"
)

// symItem pairs a matched symbol with its reported context, if any.
type symItem struct {
	sym model.Symbol
	ctx *model.ContextInfo
}

// searchSymbols collects candidate symbols, applies the query, and
// materializes the requested views. Call-graph filters always force a
// live parse; otherwise an index is used when requested and present.
func (e *Engine) searchSymbols(ctx context.Context, cfg *SearchConfig, expr *query.Expr, entries []walk.Entry, result *model.SearchResult) error {
	needCalls := expr.HasCallFields() || cfg.forceCalls
	useIndex := (cfg.UseIndex || cfg.IndexPath != "") && !needCalls

	var items []symItem
	var err error
	if useIndex {
		items, err = e.symbolsFromIndex(ctx, cfg, expr, entries)
		if err != nil {
			return err
		}
		if items == nil {
			useIndex = false
		}
	}
	if !useIndex {
		items, err = e.symbolsLive(ctx, cfg, expr, entries, needCalls)
		if err != nil {
			return err
		}
	}

	sortSymbols(items)

	discoverable := len(items)
	truncated := cfg.Limit != nil && discoverable > *cfg.Limit
	if truncated {
		items = items[:*cfg.Limit]
	}
	for i := range items {
		result.Symbols = append(result.Symbols, items[i].sym)
		if items[i].ctx != nil {
			idx := i
			items[i].ctx.SymbolIndex = &idx
			result.Contexts = append(result.Contexts, *items[i].ctx)
		}
	}
	result.Summary = model.SearchSummary{
		TotalMatches: len(result.Matches) + len(result.Symbols),
		Truncated:    truncated,
	}
	return nil
}

// symbolsLive parses every candidate file and evaluates symbols while the
// tree is open. Workers merge into a shared slice; ordering is restored
// by the final sort.
func (e *Engine) symbolsLive(ctx context.Context, cfg *SearchConfig, expr *query.Expr, entries []walk.Entry, needCalls bool) ([]symItem, error) {
	sem := semaphore.NewWeighted(int64(e.workers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var items []symItem

	for _, entry := range entries {
		if entry.Language == "" {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, wrapErr(err)
		}
		wg.Add(1)
		go func(entry walk.Entry) {
			defer wg.Done()
			defer sem.Release(1)

			fileItems := e.processFile(cfg, expr, entry, needCalls)
			if len(fileItems) > 0 {
				mu.Lock()
				items = append(items, fileItems...)
				mu.Unlock()
			}
		}(entry)
	}
	wg.Wait()
	return items, nil
}

func (e *Engine) processFile(cfg *SearchConfig, expr *query.Expr, entry walk.Entry, needCalls bool) []symItem {
	backend, ok := e.registry.ForID(entry.Language)
	if !ok {
		return nil
	}
	content, err := os.ReadFile(entry.Path)
	if err != nil {
		e.logger.Warn("skipping unreadable file", "file", entry.RelPath, "error", err)
		return nil
	}
	tree, err := backend.Parse(content)
	if err != nil {
		e.logger.Warn("skipping file with parse errors", "file", entry.RelPath, "error", err)
		return nil
	}
	defer tree.Close()

	symbols := backend.Symbols(tree, entry.RelPath)
	if needCalls {
		for i := range symbols {
			symbols[i].Calls = backend.Calls(tree, &symbols[i])
		}
		projectCalledBy(symbols)
	}
	return e.evaluate(cfg, expr, symbols, tree, backend)
}

// evaluate filters symbols by the query and materializes views. tree may
// be nil (stale index entry whose file no longer parses); the symbol is
// then evaluated without a context surface.
func (e *Engine) evaluate(cfg *SearchConfig, expr *query.Expr, symbols []model.Symbol, tree *lang.Tree, backend lang.Backend) []symItem {
	nonContent := expr.NonContentGroups()
	region := cfg.regionView()
	needSurface := expr.HasContent()
	wantMatches := cfg.hasView(ViewMatches)

	// The region view wins as snippet source; with content terms and no
	// region view, def is fetched internally but not reported.
	snippetView := region
	reportRegion := region != ""
	if snippetView == "" && needSurface {
		snippetView = ViewDef
	}

	var items []symItem
	for i := range symbols {
		sym := symbols[i]
		if !nonContent.MatchSymbol(&sym, "", cfg.Literal) {
			continue
		}

		var ci *model.ContextInfo
		if snippetView != "" && tree != nil {
			info, err := backend.Context(tree, &sym, contextKindOf(snippetView))
			if err == nil {
				ci = &info
				if contextKindOf(snippetView) == model.ContextDef {
					sym.DefLineCount = info.Range.LineCount()
				}
			} else {
				e.logger.Warn("context materialization failed",
					"file", sym.File, "symbol", sym.Name, "error", err)
			}
		}
		snippet := ""
		if ci != nil {
			snippet = ci.Snippet
		}

		if !expr.MatchSymbol(&sym, snippet, cfg.Literal) {
			continue
		}
		if wantMatches {
			sym.Matches = symbolMatches(cfg, expr, &sym, ci)
		}

		item := symItem{sym: sym}
		if reportRegion && ci != nil {
			item.ctx = ci
		}
		items = append(items, item)
	}
	return items
}

// symbolMatches computes the per-line content hits for the matches view:
// inside the chosen region when one was materialized, otherwise inside
// the doc comment or description.
func symbolMatches(cfg *SearchConfig, expr *query.Expr, sym *model.Symbol, ci *model.ContextInfo) []model.SymbolMatch {
	if !expr.HasContent() {
		return nil
	}
	useAttrs := cfg.regionView() == "" && cfg.hasView(ViewComment)
	if ci != nil && !useAttrs {
		var out []model.SymbolMatch
		for i, line := range strings.Split(ci.Snippet, "\n") {
			for _, col := range expr.ContentHits(line, cfg.Literal) {
				out = append(out, model.SymbolMatch{
					Line:    ci.Range.StartLine + i,
					Column:  col,
					Snippet: line,
				})
			}
		}
		return out
	}
	if sym.Attributes == nil {
		return nil
	}
	var out []model.SymbolMatch
	if sym.Attributes.Comment != "" {
		base := 1
		if sym.Attributes.CommentRange != nil {
			base = sym.Attributes.CommentRange.StartLine
		}
		for i, line := range strings.Split(sym.Attributes.Comment, "\n") {
			for _, col := range expr.ContentHits(line, cfg.Literal) {
				out = append(out, model.SymbolMatch{Line: base + i, Column: col, Snippet: line})
			}
		}
	}
	if sym.Attributes.Description != "" {
		for i, line := range strings.Split(sym.Attributes.Description, "\n") {
			for _, col := range expr.ContentHits(line, cfg.Literal) {
				out = append(out, model.SymbolMatch{Line: i + 1, Column: col, Snippet: line})
			}
		}
	}
	return out
}

// symbolsFromIndex reads candidates from an index, re-applies the full
// query, and lazily parses only the files whose symbols need a context
// surface. A (nil, nil) return means no usable index exists and the
// caller should parse live.
func (e *Engine) symbolsFromIndex(ctx context.Context, cfg *SearchConfig, expr *query.Expr, entries []walk.Entry) ([]symItem, error) {
	store, err := e.openIndexForRead(cfg.IndexPath, cfg.Paths[0])
	if err != nil {
		return nil, wrapErr(err)
	}
	if store == nil {
		return nil, nil
	}
	defer store.Close()

	if _, err := store.LoadMeta(); err != nil {
		return nil, wrapErr(err)
	}
	if cfg.ReindexOnSearch {
		builder := index.NewBuilder(store, e.registry, e.logger)
		if _, err := builder.Run(ctx, index.BuildOptions{
			Paths:        cfg.Paths,
			Globs:        cfg.Globs,
			ExcludeGlobs: cfg.ExcludeGlobs,
			Language:     cfg.Language,
		}); err != nil {
			return nil, wrapErr(err)
		}
	}

	records, err := store.QuerySymbols(coarseQuery(expr))
	if err != nil {
		return nil, wrapErr(err)
	}

	// Restrict to the files the current walk selected, and group by file
	// so each needs at most one parse.
	absByRel := make(map[string]string, len(entries))
	langByRel := make(map[string]string, len(entries))
	for _, entry := range entries {
		absByRel[entry.RelPath] = entry.Path
		langByRel[entry.RelPath] = entry.Language
	}

	byFile := make(map[string][]model.Symbol)
	var order []string
	for i := range records {
		rec := &records[i]
		if _, ok := absByRel[rec.Path]; !ok {
			continue
		}
		if _, ok := byFile[rec.Path]; !ok {
			order = append(order, rec.Path)
		}
		byFile[rec.Path] = append(byFile[rec.Path], rec.ToSymbol())
	}

	needTree := cfg.regionView() != "" || expr.HasContent() || cfg.hasView(ViewMatches)
	items := []symItem{}
	for _, rel := range order {
		backend, ok := e.registry.ForID(langByRel[rel])
		if !ok {
			continue
		}
		var tree *lang.Tree
		if needTree {
			if content, err := os.ReadFile(absByRel[rel]); err == nil {
				if parsed, err := backend.Parse(content); err == nil {
					tree = parsed
				} else {
					e.logger.Warn("indexed file no longer parses", "file", rel, "error", err)
				}
			}
		}
		items = append(items, e.evaluate(cfg, expr, byFile[rel], tree, backend)...)
		if tree != nil {
			tree.Close()
		}
	}
	return items, nil
}

// coarseQuery derives the store-level pre-filter from the expression:
// only single-term groups translate safely to native constraints; the
// full expression is always re-applied afterwards.
func coarseQuery(expr *query.Expr) index.SymbolQuery {
	var q index.SymbolQuery
	for _, g := range expr.Groups {
		if len(g.Terms) != 1 {
			continue
		}
		t := g.Terms[0]
		switch t.Field {
		case query.FieldKind:
			if q.Kind == "" {
				kind, _ := model.NormalizeKind(t.Value)
				q.Kind = string(kind)
			}
		case query.FieldLanguage:
			if q.Language == "" {
				q.Language = strings.ToLower(t.Value)
			}
		case query.FieldName:
			if q.Name == "" && t.Op != query.OpElement {
				q.Name = t.Value
				q.NameExact = t.Op == query.OpExact
			}
		case query.FieldFile:
			if q.PathContains == "" && t.Op == query.OpSubstring {
				q.PathContains = t.Value
			}
		}
	}
	return q
}

// projectCalledBy computes the reverse call projection within one file:
// for every call edge of S targeting a name some sibling T defines, T
// gains a called_by edge identifying S at the call site.
func projectCalledBy(symbols []model.Symbol) {
	for i := range symbols {
		caller := &symbols[i]
		for _, call := range caller.Calls {
			for j := range symbols {
				target := &symbols[j]
				if i == j || target.Name != call.Name {
					continue
				}
				target.CalledBy = append(target.CalledBy, model.CallRef{
					Name: caller.Name,
					File: caller.File,
					Line: call.Line,
					Kind: caller.Kind,
				})
			}
		}
	}
}
