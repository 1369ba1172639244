package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kcosr/symgrep/internal/model"
)

func testEngine() *Engine {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(logger)
}

func writeFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Scenario: plain text search over a two-file fixture.
func TestTextSearch(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "a.txt", "foo\n")
	writeFixture(t, root, "b.txt", "bar\n")

	result, err := testEngine().Search(context.Background(), SearchConfig{
		Pattern: "foo",
		Paths:   []string{root},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Version != model.SearchResultVersion {
		t.Errorf("version = %s", result.Version)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("matches = %+v", result.Matches)
	}
	m := result.Matches[0]
	if m.Path != "a.txt" || m.Line != 1 || m.Column != 1 || m.Snippet == nil || *m.Snippet != "foo" {
		t.Errorf("match = %+v", m)
	}
	if len(result.Symbols) != 0 || len(result.Contexts) != 0 {
		t.Errorf("unexpected symbols/contexts: %+v", result)
	}
	if result.Summary.TotalMatches != 1 || result.Summary.Truncated {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestTextSearchMaxLinesZero(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "a.txt", "foo\n")

	zero := 0
	result, err := testEngine().Search(context.Background(), SearchConfig{
		Pattern:  "foo",
		Paths:    []string{root},
		MaxLines: &zero,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Matches) != 1 || result.Matches[0].Snippet != nil {
		t.Errorf("snippet should be null: %+v", result.Matches)
	}
}

func TestTextSearchLimit(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "a.txt", "foo\nfoo\nfoo\n")

	one := 1
	result, err := testEngine().Search(context.Background(), SearchConfig{
		Pattern: "foo",
		Paths:   []string{root},
		Limit:   &one,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Matches) != 1 || !result.Summary.Truncated || result.Summary.TotalMatches != 1 {
		t.Errorf("limit result = %+v", result.Summary)
	}

	zero := 0
	result, err = testEngine().Search(context.Background(), SearchConfig{
		Pattern: "foo",
		Paths:   []string{root},
		Limit:   &zero,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Matches) != 0 || !result.Summary.Truncated {
		t.Errorf("limit 0 should report truncation: %+v", result.Summary)
	}
}

const tsFixture = `// Adds two numbers.

export function add(a: number, b: number): number {
  return a + b;
}
`

// Scenario: symbol search with a decl view.
func TestSymbolSearchDeclView(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "math.ts", tsFixture)

	result, err := testEngine().Search(context.Background(), SearchConfig{
		Pattern: "name:add kind:function",
		Paths:   []string{root},
		Views:   []View{ViewDecl},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Symbols) != 1 {
		t.Fatalf("symbols = %+v", result.Symbols)
	}
	sym := result.Symbols[0]
	if sym.Name != "add" || sym.Kind != model.KindFunction || sym.Language != "typescript" {
		t.Errorf("symbol = %+v", sym)
	}
	if sym.Range.StartLine != 3 || sym.Range.EndLine != 5 {
		t.Errorf("range = %+v", sym.Range)
	}
	if len(result.Contexts) != 1 {
		t.Fatalf("contexts = %+v", result.Contexts)
	}
	ctx := result.Contexts[0]
	if ctx.Kind != model.ContextDecl {
		t.Errorf("context kind = %s", ctx.Kind)
	}
	if ctx.SymbolIndex == nil || *ctx.SymbolIndex != 0 {
		t.Errorf("symbol index = %v", ctx.SymbolIndex)
	}
	if ctx.Snippet == "" || ctx.Range.EndLine-ctx.Range.StartLine+1 != len(splitLines(ctx.Snippet)) {
		t.Errorf("snippet/range mismatch: %+v", ctx)
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}

func TestAutoModePicksSymbol(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "math.ts", tsFixture)

	result, err := testEngine().Search(context.Background(), SearchConfig{
		Pattern: "kind:function",
		Paths:   []string{root},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Symbols) != 1 || len(result.Matches) != 0 {
		t.Errorf("auto mode result = %+v", result)
	}
}

func TestDefViewSetsLineCount(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "math.ts", tsFixture)

	result, err := testEngine().Search(context.Background(), SearchConfig{
		Pattern: "name:add",
		Paths:   []string{root},
		Views:   []View{ViewDef},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Symbols) != 1 {
		t.Fatal("expected one symbol")
	}
	if result.Symbols[0].DefLineCount != 3 {
		t.Errorf("def_line_count = %d, want 3", result.Symbols[0].DefLineCount)
	}
}

func TestParseFailureDegradesFileOnly(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "good.go", "package good\n\nfunc Good() {}\n")
	writeFixture(t, root, "bad.go", "package bad\n\nfunc broken( {\n")

	result, err := testEngine().Search(context.Background(), SearchConfig{
		Pattern: "kind:function",
		Paths:   []string{root},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Symbols) != 1 || result.Symbols[0].Name != "Good" {
		t.Errorf("symbols = %+v", result.Symbols)
	}
}

func TestEmptyRepo(t *testing.T) {
	result, err := testEngine().Search(context.Background(), SearchConfig{
		Pattern: "anything",
		Paths:   []string{t.TempDir()},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.TotalMatches != 0 || result.Summary.Truncated {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestInvalidInputs(t *testing.T) {
	eng := testEngine()
	_, err := eng.Search(context.Background(), SearchConfig{Pattern: ""})
	if kind, ok := KindOf(err); !ok || kind != KindInvalidQuery {
		t.Errorf("empty pattern error = %v", err)
	}
	_, err = eng.Search(context.Background(), SearchConfig{Pattern: "bogus:x"})
	if kind, ok := KindOf(err); !ok || kind != KindInvalidQuery {
		t.Errorf("unknown field error = %v", err)
	}
	_, err = eng.Search(context.Background(), SearchConfig{Pattern: "x", Paths: []string{"/missing/path"}})
	if kind, ok := KindOf(err); !ok || kind != KindInvalidConfig {
		t.Errorf("missing path error = %v", err)
	}
	_, err = eng.Search(context.Background(), SearchConfig{Pattern: "x", Mode: "weird", Paths: []string{"."}})
	if kind, ok := KindOf(err); !ok || kind != KindInvalidConfig {
		t.Errorf("bad mode error = %v", err)
	}
}

// Index parity: an indexed run returns the same document as a live run.
func TestIndexParity(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "math.ts", tsFixture)
	writeFixture(t, root, "calc.go", "package calc\n\n// Mul multiplies.\nfunc Mul(a, b int) int {\n\treturn a * b\n}\n")

	eng := testEngine()
	if _, err := eng.Index(context.Background(), IndexConfig{Paths: []string{root}}); err != nil {
		t.Fatal(err)
	}

	for _, pattern := range []string{"kind:function", "name:add", "comment:multiplies content:return"} {
		live, err := eng.Search(context.Background(), SearchConfig{
			Pattern: pattern,
			Paths:   []string{root},
			Views:   []View{ViewDecl},
		})
		if err != nil {
			t.Fatalf("live %q: %v", pattern, err)
		}
		indexed, err := eng.Search(context.Background(), SearchConfig{
			Pattern:  pattern,
			Paths:    []string{root},
			Views:    []View{ViewDecl},
			UseIndex: true,
		})
		if err != nil {
			t.Fatalf("indexed %q: %v", pattern, err)
		}
		liveJSON, _ := json.Marshal(live)
		indexedJSON, _ := json.Marshal(indexed)
		if !reflect.DeepEqual(liveJSON, indexedJSON) {
			t.Errorf("parity broken for %q:\nlive:    %s\nindexed: %s", pattern, liveJSON, indexedJSON)
		}
	}
}

func TestMatchesView(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "math.ts", tsFixture)

	result, err := testEngine().Search(context.Background(), SearchConfig{
		Pattern: "name:add content:return",
		Paths:   []string{root},
		Views:   []View{ViewMatches},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Symbols) != 1 {
		t.Fatalf("symbols = %+v", result.Symbols)
	}
	sym := result.Symbols[0]
	if len(sym.Matches) != 1 || sym.Matches[0].Line != 4 {
		t.Errorf("matches = %+v", sym.Matches)
	}
	// The internal def fetch must not surface as a context.
	if len(result.Contexts) != 0 {
		t.Errorf("contexts = %+v", result.Contexts)
	}
}

func TestCallFilter(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "calc.go",
		"package calc\n\nfunc foo() {\n\tbar()\n\tbaz()\n}\n\nfunc bar() {}\n\nfunc baz() {}\n\nfunc qux() {\n\tfoo()\n}\n")

	result, err := testEngine().Search(context.Background(), SearchConfig{
		Pattern: "calls:bar",
		Paths:   []string{root},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Symbols) != 1 || result.Symbols[0].Name != "foo" {
		t.Errorf("calls filter = %+v", result.Symbols)
	}

	result, err = testEngine().Search(context.Background(), SearchConfig{
		Pattern: "called-by:qux",
		Paths:   []string{root},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Symbols) != 1 || result.Symbols[0].Name != "foo" {
		t.Errorf("called-by filter = %+v", result.Symbols)
	}
}
