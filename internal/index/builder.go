package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kcosr/symgrep/internal/lang"
	"github.com/kcosr/symgrep/internal/model"
	"github.com/kcosr/symgrep/internal/walk"
)

// BuildOptions configures one index pass.
type BuildOptions struct {
	Paths        []string
	Globs        []string
	ExcludeGlobs []string
	Language     string
}

// Builder performs incremental index maintenance: change detection by
// content hash, per-file symbol replacement with attribute preservation,
// and pruning of vanished files.
type Builder struct {
	store    Store
	registry *lang.Registry
	logger   *slog.Logger
	workers  int
}

// NewBuilder creates a builder over an open store.
func NewBuilder(store Store, registry *lang.Registry, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		store:    store,
		registry: registry,
		logger:   logger,
		workers:  runtime.NumCPU(),
	}
}

// parsedFile is the outcome of hashing and (when changed) reparsing one
// candidate file.
type parsedFile struct {
	entry    walk.Entry
	hash     string
	mtime    int64
	size     int64
	changed  bool
	symbols  []model.Symbol
	parseErr error
}

// Run walks the inputs, reindexes changed files, prunes vanished ones,
// and returns a summary of the resulting index.
func (b *Builder) Run(ctx context.Context, opts BuildOptions) (*model.IndexSummary, error) {
	rootPath := ""
	if len(opts.Paths) > 0 {
		if abs, err := filepath.Abs(opts.Paths[0]); err == nil {
			rootPath = abs
		}
	}

	if err := b.store.Initialize(NewMeta(rootPath)); err != nil {
		return nil, fmt.Errorf("initialize index: %w", err)
	}
	meta, err := b.store.LoadMeta()
	if err != nil {
		return nil, err
	}

	entries, err := walk.Files(walk.Options{
		Roots:        opts.Paths,
		Globs:        opts.Globs,
		ExcludeGlobs: opts.ExcludeGlobs,
		LanguageFor:  b.languageFilter(opts.Language),
	})
	if err != nil {
		return nil, err
	}

	existing, err := b.store.ListFiles()
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]FileRecord, len(existing))
	for _, f := range existing {
		byPath[f.Path] = f
	}

	parsed, err := b.parseChanged(ctx, entries, byPath)
	if err != nil {
		return nil, err
	}

	// Apply writes serially in walk order so backend state is
	// deterministic regardless of worker scheduling.
	for i := range parsed {
		pf := &parsed[i]
		if !pf.changed {
			continue
		}
		if pf.parseErr != nil {
			// The file changed but no longer parses; keep its previous
			// records and surface the condition in diagnostics only.
			b.logger.Warn("skipping file with parse errors",
				"file", pf.entry.RelPath, "error", pf.parseErr)
			continue
		}
		if err := b.applyFile(pf); err != nil {
			return nil, err
		}
	}

	// Prune records for files no longer present under the roots.
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.RelPath] = true
	}
	for _, f := range existing {
		if !seen[f.Path] {
			if err := b.store.DeleteFile(f.Path); err != nil {
				return nil, err
			}
		}
	}

	meta.UpdatedAt = time.Now().UTC()
	if err := b.store.SaveMeta(meta); err != nil {
		return nil, err
	}

	files, err := b.store.ListFiles()
	if err != nil {
		return nil, err
	}
	symbolCount, err := b.store.CountSymbols()
	if err != nil {
		return nil, err
	}

	created := meta.CreatedAt
	updated := meta.UpdatedAt
	return &model.IndexSummary{
		Backend:        b.store.Backend(),
		IndexPath:      b.store.Path(),
		FilesIndexed:   len(files),
		SymbolsIndexed: symbolCount,
		RootPath:       meta.RootPath,
		SchemaVersion:  meta.SchemaVersion,
		ToolVersion:    meta.ToolVersion,
		CreatedAt:      &created,
		UpdatedAt:      &updated,
	}, nil
}

// parseChanged hashes every candidate concurrently and reparses the ones
// whose content changed. Results keep walk order.
func (b *Builder) parseChanged(ctx context.Context, entries []walk.Entry, byPath map[string]FileRecord) ([]parsedFile, error) {
	parsed := make([]parsedFile, len(entries))
	sem := semaphore.NewWeighted(int64(b.workers))
	var wg sync.WaitGroup

	for i := range entries {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			parsed[i] = b.parseOne(entries[i], byPath)
		}(i)
	}
	wg.Wait()
	return parsed, nil
}

func (b *Builder) parseOne(entry walk.Entry, byPath map[string]FileRecord) parsedFile {
	pf := parsedFile{entry: entry}

	content, err := os.ReadFile(entry.Path)
	if err != nil {
		pf.changed = true
		pf.parseErr = err
		return pf
	}
	sum := sha256.Sum256(content)
	pf.hash = hex.EncodeToString(sum[:])
	pf.size = int64(len(content))
	if info, err := os.Stat(entry.Path); err == nil {
		pf.mtime = info.ModTime().UnixNano()
	}

	if prev, ok := byPath[entry.RelPath]; ok && prev.Hash == pf.hash {
		return pf // unchanged
	}
	pf.changed = true

	backend, ok := b.registry.ForID(entry.Language)
	if !ok {
		pf.parseErr = fmt.Errorf("no backend for language %q", entry.Language)
		return pf
	}
	tree, err := backend.Parse(content)
	if err != nil {
		pf.parseErr = err
		return pf
	}
	defer tree.Close()
	pf.symbols = backend.Symbols(tree, entry.RelPath)
	return pf
}

// applyFile upserts the file record and replaces its symbols, carrying
// externally managed attributes across by identity key.
func (b *Builder) applyFile(pf *parsedFile) error {
	fileID, err := b.store.UpsertFile(FileRecord{
		Path:     pf.entry.RelPath,
		Language: pf.entry.Language,
		Hash:     pf.hash,
		Mtime:    pf.mtime,
		Size:     pf.size,
	})
	if err != nil {
		return err
	}

	old, err := b.store.QuerySymbols(SymbolQuery{PathContains: pf.entry.RelPath})
	if err != nil {
		return err
	}
	var oldForFile []SymbolRecord
	for _, rec := range old {
		if rec.Path == pf.entry.RelPath {
			oldForFile = append(oldForFile, rec)
		}
	}

	fresh := make([]SymbolRecord, 0, len(pf.symbols))
	for i := range pf.symbols {
		fresh = append(fresh, RecordOf(&pf.symbols[i], fileID))
	}
	fresh = mergeAttributes(oldForFile, fresh)
	return b.store.ReplaceSymbols(fileID, fresh)
}

// languageFilter resolves walk candidates to a language id, optionally
// pinned to one explicit language.
func (b *Builder) languageFilter(language string) func(string) (string, bool) {
	return func(path string) (string, bool) {
		backend, ok := b.registry.ForPath(path)
		if !ok {
			return "", false
		}
		if language != "" && backend.ID() != language {
			return "", false
		}
		return backend.ID(), true
	}
}
