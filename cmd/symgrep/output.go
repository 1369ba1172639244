package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kcosr/symgrep/internal/model"
)

// writeJSON renders any result document as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// renderSearchText prints a human-readable search result. Context lines
// are a pure rendering concern; the JSON document never carries them.
func renderSearchText(w io.Writer, result *model.SearchResult, contextLines int) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	lastFile := ""
	for _, m := range result.Matches {
		if contextLines > 0 {
			if m.Path != lastFile {
				if lastFile != "" {
					fmt.Fprintln(bw, "--")
				}
				lastFile = m.Path
			}
			printContext(bw, m, contextLines)
			continue
		}
		snippet := ""
		if m.Snippet != nil {
			snippet = *m.Snippet
		}
		fmt.Fprintf(bw, "%s:%d:%d:%s\n", m.Path, m.Line, m.Column, snippet)
	}

	for i, sym := range result.Symbols {
		fmt.Fprintf(bw, "%s:%d: %s %s", sym.File, sym.Range.StartLine, sym.Kind, sym.Name)
		if sym.Signature != "" {
			fmt.Fprintf(bw, "  %s", sym.Signature)
		}
		fmt.Fprintln(bw)
		for _, ctx := range result.Contexts {
			if ctx.SymbolIndex == nil || *ctx.SymbolIndex != i {
				continue
			}
			for _, line := range strings.Split(ctx.Snippet, "\n") {
				fmt.Fprintf(bw, "    %s\n", line)
			}
		}
		for _, hit := range sym.Matches {
			fmt.Fprintf(bw, "    %d:%d: %s\n", hit.Line, hit.Column, hit.Snippet)
		}
	}

	fmt.Fprintf(bw, "%d result(s)", result.Summary.TotalMatches)
	if result.Summary.Truncated {
		fmt.Fprint(bw, " (truncated)")
	}
	fmt.Fprintln(bw)
	return nil
}

// printContext merges surrounding lines around one text match.
func printContext(w io.Writer, m model.SearchMatch, contextLines int) {
	lines := readLines(m.Path)
	if lines == nil {
		fmt.Fprintf(w, "%s:%d:%d\n", m.Path, m.Line, m.Column)
		return
	}
	start := m.Line - contextLines
	if start < 1 {
		start = 1
	}
	end := m.Line + contextLines
	if end > len(lines) {
		end = len(lines)
	}
	for i := start; i <= end; i++ {
		sep := "-"
		if i == m.Line {
			sep = ":"
		}
		fmt.Fprintf(w, "%s%s%d%s%s\n", m.Path, sep, i, sep, lines[i-1])
	}
}

func readLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.Split(string(data), "\n")
}

// renderIndexText prints an index summary.
func renderIndexText(w io.Writer, summary *model.IndexSummary) error {
	fmt.Fprintf(w, "indexed %d file(s), %d symbol(s)\n", summary.FilesIndexed, summary.SymbolsIndexed)
	fmt.Fprintf(w, "backend: %s at %s\n", summary.Backend, summary.IndexPath)
	if summary.UpdatedAt != nil {
		fmt.Fprintf(w, "updated: %s\n", summary.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

// renderFollowText prints follow targets with their edges.
func renderFollowText(w io.Writer, result *model.FollowResult) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	for _, target := range result.Targets {
		sym := target.Symbol
		fmt.Fprintf(bw, "%s %s  %s:%d\n", sym.Kind, sym.Name, sym.File, sym.Range.StartLine)
		for _, edge := range target.Callers {
			fmt.Fprintf(bw, "  <- %s (%s)", edge.Symbol.Name, edge.Symbol.File)
			printSites(bw, edge.CallSites)
		}
		for _, edge := range target.Callees {
			fmt.Fprintf(bw, "  -> %s (%s)", edge.Symbol.Name, edge.Symbol.File)
			printSites(bw, edge.CallSites)
		}
	}
	fmt.Fprintf(bw, "%d target(s)\n", len(result.Targets))
	return nil
}

func printSites(w io.Writer, sites []model.CallSite) {
	parts := make([]string, 0, len(sites))
	for _, s := range sites {
		parts = append(parts, fmt.Sprintf("%d", s.Line))
	}
	fmt.Fprintf(w, " at line %s\n", strings.Join(parts, ", "))
}
