package engine

import (
	"bufio"
	"context"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/kcosr/symgrep/internal/model"
	"github.com/kcosr/symgrep/internal/query"
	"github.com/kcosr/symgrep/internal/walk"
)

// searchText scans candidate files line by line for the content values of
// the expression. Files are processed in parallel; matches are merged and
// sorted before the limit is applied, so the result never depends on
// scheduling.
func (e *Engine) searchText(ctx context.Context, cfg *SearchConfig, expr *query.Expr, entries []walk.Entry, result *model.SearchResult) error {
	sem := semaphore.NewWeighted(int64(e.workers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var matches []model.SearchMatch

	for _, entry := range entries {
		if err := sem.Acquire(ctx, 1); err != nil {
			return wrapErr(err)
		}
		wg.Add(1)
		go func(entry walk.Entry) {
			defer wg.Done()
			defer sem.Release(1)

			fileMatches, err := e.scanFile(entry, expr, cfg)
			if err != nil {
				e.logger.Warn("skipping unreadable file", "file", entry.RelPath, "error", err)
				return
			}
			if len(fileMatches) > 0 {
				mu.Lock()
				matches = append(matches, fileMatches...)
				mu.Unlock()
			}
		}(entry)
	}
	wg.Wait()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Path != matches[j].Path {
			return matches[i].Path < matches[j].Path
		}
		if matches[i].Line != matches[j].Line {
			return matches[i].Line < matches[j].Line
		}
		return matches[i].Column < matches[j].Column
	})

	result.Matches = matches
	applyLimit(result, cfg.Limit, len(matches))
	return nil
}

// scanFile produces the matches of one file.
func (e *Engine) scanFile(entry walk.Entry, expr *query.Expr, cfg *SearchConfig) ([]model.SearchMatch, error) {
	f, err := os.Open(entry.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var matches []model.SearchMatch
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		col, ok := expr.MatchLine(line, cfg.Literal)
		if !ok {
			continue
		}
		matches = append(matches, model.SearchMatch{
			Path:    entry.RelPath,
			Line:    lineNum,
			Column:  col,
			Snippet: textSnippet(line, cfg.MaxLines),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

// textSnippet applies the presentation-only max-lines flag: zero replaces
// the single-line snippet with null.
func textSnippet(line string, maxLines *int) *string {
	if maxLines != nil && *maxLines == 0 {
		return nil
	}
	s := line
	return &s
}
