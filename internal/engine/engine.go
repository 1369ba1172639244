// Package engine orchestrates searches: it parses the pattern DSL,
// enumerates candidate files, dispatches to language backends directly or
// through the index, evaluates the query, materializes context views, and
// assembles versioned result documents.
package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/kcosr/symgrep/internal/index"
	"github.com/kcosr/symgrep/internal/lang"
	"github.com/kcosr/symgrep/internal/model"
	"github.com/kcosr/symgrep/internal/query"
	"github.com/kcosr/symgrep/internal/walk"
)

// Engine is the synchronous entry point for search, index, and attribute
// operations. Parallelism is an internal optimization; every public call
// returns a single result value.
type Engine struct {
	registry *lang.Registry
	logger   *slog.Logger
	workers  int
}

// New creates an engine with every registered language backend.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry: lang.NewRegistry(),
		logger:   logger,
		workers:  runtime.NumCPU(),
	}
}

// Registry exposes the language registry to collaborators (follow, CLI).
func (e *Engine) Registry() *lang.Registry { return e.registry }

// Search runs one search operation:
//
//	parse -> validate -> walk -> (index | parse live) ->
//	filter -> materialize views -> assemble
//
// Per-file parse failures degrade that file only; any other failure is
// terminal and no partial result is returned.
func (e *Engine) Search(ctx context.Context, cfg SearchConfig) (*model.SearchResult, error) {
	if cfg.Pattern == "" {
		return nil, invalidQueryf("empty pattern")
	}
	expr, err := query.Parse(cfg.Pattern)
	if err != nil {
		return nil, wrapErr(err)
	}

	paths, err := validatePaths(cfg.Paths)
	if err != nil {
		return nil, err
	}
	cfg.Paths = paths

	mode := cfg.Mode
	switch mode {
	case ModeText, ModeSymbol:
	case ModeAuto, "":
		if expr.HasSymbolFields() {
			mode = ModeSymbol
		} else {
			mode = ModeText
		}
	default:
		return nil, invalidConfigf("unknown mode %q", cfg.Mode)
	}

	entries, err := walk.Files(walk.Options{
		Roots:        cfg.Paths,
		Globs:        cfg.Globs,
		ExcludeGlobs: cfg.ExcludeGlobs,
		LanguageFor:  e.languageFilter(cfg.Language, mode),
		Hidden:       cfg.Hidden,
		NoIgnore:     cfg.NoIgnore,
	})
	if err != nil {
		return nil, wrapErr(err)
	}

	result := model.NewSearchResult(cfg.Pattern)
	if mode == ModeText {
		err = e.searchText(ctx, &cfg, expr, entries, result)
	} else {
		err = e.searchSymbols(ctx, &cfg, expr, entries, result)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SearchSymbolsWithCalls runs a symbol search that always parses live and
// populates call edges; the follow subsystem is built on it.
func (e *Engine) SearchSymbolsWithCalls(ctx context.Context, cfg SearchConfig) (*model.SearchResult, error) {
	cfg.Mode = ModeSymbol
	cfg.UseIndex = false
	cfg.IndexPath = ""
	cfg.forceCalls = true
	return e.Search(ctx, cfg)
}

// Index builds or refreshes an index.
func (e *Engine) Index(ctx context.Context, cfg IndexConfig) (*model.IndexSummary, error) {
	paths, err := validatePaths(cfg.Paths)
	if err != nil {
		return nil, err
	}
	store, err := e.openIndexForWrite(cfg, paths[0])
	if err != nil {
		return nil, wrapErr(err)
	}
	defer store.Close()

	builder := index.NewBuilder(store, e.registry, e.logger)
	summary, err := builder.Run(ctx, index.BuildOptions{
		Paths:        paths,
		Globs:        cfg.Globs,
		ExcludeGlobs: cfg.ExcludeGlobs,
		Language:     cfg.Language,
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return summary, nil
}

// Watch runs the index watcher until the context is canceled.
func (e *Engine) Watch(ctx context.Context, cfg IndexConfig) error {
	paths, err := validatePaths(cfg.Paths)
	if err != nil {
		return err
	}
	store, err := e.openIndexForWrite(cfg, paths[0])
	if err != nil {
		return wrapErr(err)
	}
	defer store.Close()

	builder := index.NewBuilder(store, e.registry, e.logger)
	opts := index.BuildOptions{
		Paths:        paths,
		Globs:        cfg.Globs,
		ExcludeGlobs: cfg.ExcludeGlobs,
		Language:     cfg.Language,
	}
	if _, err := builder.Run(ctx, opts); err != nil {
		return wrapErr(err)
	}
	return index.NewWatcher(builder, opts, e.logger).Watch(ctx)
}

// UpdateAttributes replaces the keywords and description of exactly one
// indexed symbol. The extracted doc comment is never modified.
func (e *Engine) UpdateAttributes(req AttributesRequest) error {
	store, err := e.openIndexForRead(req.IndexPath, req.Root)
	if err != nil {
		return wrapErr(err)
	}
	if store == nil {
		return invalidConfigf("no index found; run index first")
	}
	defer store.Close()

	if _, err := store.LoadMeta(); err != nil {
		return wrapErr(err)
	}
	kind := model.SymbolKind("")
	if req.Selector.Kind != "" {
		kind, _ = model.NormalizeKind(req.Selector.Kind)
	}
	err = store.UpdateSymbolAttributes(index.SymbolSelector{
		File:      req.Selector.File,
		Language:  req.Selector.Language,
		Kind:      kind,
		Name:      req.Selector.Name,
		StartLine: req.Selector.StartLine,
		EndLine:   req.Selector.EndLine,
	}, model.SymbolAttributes{
		Keywords:    req.Keywords,
		Description: req.Description,
	})
	return wrapErr(err)
}

// openIndexForWrite resolves the backend and location for indexing.
func (e *Engine) openIndexForWrite(cfg IndexConfig, root string) (index.Store, error) {
	backend := cfg.Backend
	switch backend {
	case "":
		backend = index.BackendSQLite
	case index.BackendSQLite, index.BackendFile:
	default:
		return nil, invalidConfigf("unknown index backend %q", backend)
	}
	path := cfg.IndexPath
	if path == "" {
		switch backend {
		case index.BackendSQLite:
			path = filepath.Join(root, index.DefaultDir, index.DefaultSQLiteName)
		case index.BackendFile:
			path = filepath.Join(root, index.DefaultDir)
		}
	}
	return index.Open(backend, path)
}

// openIndexForRead applies the selection policy: an explicit path wins,
// otherwise an existing index under the root is discovered. A nil store
// with nil error means no index exists.
func (e *Engine) openIndexForRead(indexPath, root string) (index.Store, error) {
	if indexPath != "" {
		info, err := os.Stat(indexPath)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return index.OpenFile(indexPath)
		}
		return index.OpenSQLite(indexPath)
	}
	store, err := index.Discover(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return store, nil
}

// languageFilter restricts the walk to files a backend claims. Text mode
// without an explicit language searches every file.
func (e *Engine) languageFilter(language string, mode Mode) func(string) (string, bool) {
	return func(path string) (string, bool) {
		backend, ok := e.registry.ForPath(path)
		if !ok {
			if mode == ModeText && language == "" {
				return "", true
			}
			return "", false
		}
		if language != "" && backend.ID() != language {
			return "", false
		}
		return backend.ID(), true
	}
}

func validatePaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return nil, invalidConfigf("path %s: %v", p, err)
		}
	}
	return paths, nil
}

// applyLimit truncates a result to the configured limit and fills the
// summary. discoverable is the pre-truncation total.
func applyLimit(result *model.SearchResult, limit *int, discoverable int) {
	if limit == nil || discoverable <= *limit {
		result.Summary = model.SearchSummary{TotalMatches: discoverable, Truncated: false}
		return
	}
	n := *limit
	if len(result.Matches) > n {
		result.Matches = result.Matches[:n]
		n = 0
	} else {
		n -= len(result.Matches)
	}
	if len(result.Symbols) > n {
		result.Symbols = result.Symbols[:n]
	}
	result.Summary = model.SearchSummary{
		TotalMatches: len(result.Matches) + len(result.Symbols),
		Truncated:    true,
	}
}

// sortSymbols enforces the document ordering contract.
func sortSymbols(items []symItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i].sym, &items[j].sym
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Range.StartLine != b.Range.StartLine {
			return a.Range.StartLine < b.Range.StartLine
		}
		if a.Range.StartCol != b.Range.StartCol {
			return a.Range.StartCol < b.Range.StartCol
		}
		return a.Name < b.Name
	})
}
