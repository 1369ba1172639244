package query

import (
	"errors"
	"testing"

	"github.com/kcosr/symgrep/internal/model"
)

func TestParseBasicFields(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		groups  int
		field   string
		op      MatchOp
		value   string
	}{
		{"name substring", "name:add", 1, FieldName, OpSubstring, "add"},
		{"kind exact op", "kind:=function", 1, FieldKind, OpExact, "function"},
		{"keyword element", "keyword:~auth", 1, FieldKeyword, OpElement, "auth"},
		{"desc alias", "desc:login", 1, FieldDescription, OpSubstring, "login"},
		{"callers alias", "callers:main", 1, FieldCalledBy, OpSubstring, "main"},
		{"quoted value", `comment:"connection pool"`, 1, FieldComment, OpSubstring, "connection pool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.pattern)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.pattern, err)
			}
			if len(expr.Groups) != tt.groups {
				t.Fatalf("expected %d groups, got %d", tt.groups, len(expr.Groups))
			}
			term := expr.Groups[0].Terms[0]
			if term.Field != tt.field || term.Op != tt.op || term.Value != tt.value {
				t.Errorf("got term %+v", term)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"unknown field", "bogus:value"},
		{"unterminated quote", `name:"half`},
		{"missing value", "name:"},
		{"empty alternative", "kind:function|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.pattern)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", tt.pattern)
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("expected *ParseError, got %T", err)
			}
		})
	}
}

func TestParseFieldInheritance(t *testing.T) {
	expr, err := Parse("kind:function|method language:typescript")
	if err != nil {
		t.Fatal(err)
	}
	if len(expr.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(expr.Groups))
	}
	g := expr.Groups[0]
	if len(g.Terms) != 2 {
		t.Fatalf("expected 2 alternatives, got %d", len(g.Terms))
	}
	if g.Terms[1].Field != FieldKind || g.Terms[1].Value != "method" {
		t.Errorf("bare alternative should inherit kind, got %+v", g.Terms[1])
	}
}

func TestParseBarePatternRewrite(t *testing.T) {
	expr, err := Parse("foo bar")
	if err != nil {
		t.Fatal(err)
	}
	// No field anywhere: one disjunction of content terms.
	if len(expr.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(expr.Groups))
	}
	for _, term := range expr.Groups[0].Terms {
		if term.Field != FieldContent {
			t.Errorf("expected content term, got %+v", term)
		}
	}
}

func TestParseMixedBareTermDefaultsToContent(t *testing.T) {
	expr, err := Parse("kind:function foo")
	if err != nil {
		t.Fatal(err)
	}
	if expr.Groups[1].Terms[0].Field != FieldContent {
		t.Errorf("standalone bare term should become content, got %+v", expr.Groups[1].Terms[0])
	}
}

func TestRoundTrip(t *testing.T) {
	patterns := []string{
		"name:add kind:function",
		"kind:function|method language:typescript",
		`comment:"error handling" keyword:~auth`,
		"calls:parse called-by:main",
		"foo bar",
	}
	for _, pattern := range patterns {
		expr, err := Parse(pattern)
		if err != nil {
			t.Fatalf("Parse(%q): %v", pattern, err)
		}
		again, err := Parse(expr.String())
		if err != nil {
			t.Fatalf("reparse of %q (%q): %v", pattern, expr.String(), err)
		}
		if expr.String() != again.String() {
			t.Errorf("round trip mismatch: %q -> %q -> %q", pattern, expr.String(), again.String())
		}
	}
}

func TestHasSymbolFields(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{"name:add", true},
		{"kind:function", true},
		{"content:foo", false},
		{"file:main.go", false},
		{"language:go", false},
		{"keyword:auth", true},
		{"called-by:main", true},
		{"plain text", false},
	}
	for _, tt := range tests {
		expr, err := Parse(tt.pattern)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.pattern, err)
		}
		if got := expr.HasSymbolFields(); got != tt.want {
			t.Errorf("HasSymbolFields(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}

func testSymbol() *model.Symbol {
	return &model.Symbol{
		Name:     "loginUser",
		Kind:     model.KindFunction,
		Language: "go",
		File:     "auth/login.go",
		Range:    model.TextRange{StartLine: 10, StartCol: 1, EndLine: 20, EndCol: 2},
		Attributes: &model.SymbolAttributes{
			Comment:     "loginUser authenticates a user by token.",
			Keywords:    []string{"auth", "jwt"},
			Description: "Primary entry for session auth.",
		},
		Calls:    []model.CallRef{{Name: "verifyToken", File: "auth/login.go", Line: 12}},
		CalledBy: []model.CallRef{{Name: "handleLogin", File: "auth/login.go", Line: 42, Kind: model.KindFunction}},
	}
}

func TestMatchSymbol(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		literal bool
		want    bool
	}{
		{"name substring", "name:login", false, true},
		{"name exact mismatch", "name:=login", false, false},
		{"name exact match", "name:=loginUser", false, true},
		{"literal name", "name:login", true, false},
		{"kind alias", "kind:func", false, true},
		{"kind mismatch", "kind:method", false, false},
		{"language", "language:go", false, true},
		{"file substring", "file:auth", false, true},
		{"comment", "comment:authenticates", false, true},
		{"keyword member", "keyword:jwt", false, true},
		{"keyword no substring by default", "keyword:jw", false, false},
		{"keyword element op", "keyword:~jw", false, true},
		{"description", "desc:session", false, true},
		{"calls", "calls:verifyToken", false, true},
		{"called-by", "called-by:handleLogin", false, true},
		{"and groups", "name:login kind:function language:go", false, true},
		{"and groups fail", "name:login kind:method", false, false},
		{"or group", "kind:method|function", false, true},
		{"content over surface", "content:jwt", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.pattern)
			if err != nil {
				t.Fatal(err)
			}
			if got := expr.MatchSymbol(testSymbol(), "", tt.literal); got != tt.want {
				t.Errorf("MatchSymbol(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestMatchSymbolCommentEmptyNeverMatches(t *testing.T) {
	sym := testSymbol()
	sym.Attributes = nil
	expr, _ := Parse("comment:anything")
	if expr.MatchSymbol(sym, "", false) {
		t.Error("missing comment must not match")
	}
}

func TestContentUsesSnippet(t *testing.T) {
	sym := testSymbol()
	expr, _ := Parse("content:bcrypt")
	if expr.MatchSymbol(sym, "", false) {
		t.Fatal("should not match without snippet")
	}
	if !expr.MatchSymbol(sym, "hash := bcrypt.Sum(pw)", false) {
		t.Error("should match inside snippet surface")
	}
}

func TestMatchLine(t *testing.T) {
	expr, err := Parse("foo")
	if err != nil {
		t.Fatal(err)
	}
	col, ok := expr.MatchLine("a foo b", false)
	if !ok || col != 3 {
		t.Errorf("got (%d, %v), want (3, true)", col, ok)
	}
	if _, ok := expr.MatchLine("nothing here", false); ok {
		t.Error("unexpected match")
	}
}

func TestMatchLineLiteral(t *testing.T) {
	expr, _ := Parse("add")
	if _, ok := expr.MatchLine("address := 1", true); ok {
		t.Error("literal must not match inside identifier")
	}
	col, ok := expr.MatchLine("x := add(1, 2)", true)
	if !ok || col != 6 {
		t.Errorf("got (%d, %v), want (6, true)", col, ok)
	}
}

// Scenario: alternatives with inheritance are equivalent to the expanded
// disjunction on any symbol set.
func TestPrecedenceEquivalence(t *testing.T) {
	short, err := Parse("kind:function|method language:typescript")
	if err != nil {
		t.Fatal(err)
	}
	long, err := Parse("kind:function|kind:method language:typescript")
	if err != nil {
		t.Fatal(err)
	}
	symbols := []*model.Symbol{
		{Name: "a", Kind: model.KindFunction, Language: "typescript"},
		{Name: "b", Kind: model.KindMethod, Language: "typescript"},
		{Name: "c", Kind: model.KindClass, Language: "typescript"},
		{Name: "d", Kind: model.KindFunction, Language: "go"},
	}
	for _, sym := range symbols {
		if short.MatchSymbol(sym, "", false) != long.MatchSymbol(sym, "", false) {
			t.Errorf("expressions disagree on %s %s", sym.Kind, sym.Name)
		}
	}
}

func TestContentHits(t *testing.T) {
	expr, _ := Parse("content:ab")
	cols := expr.ContentHits("ab x ab", false)
	if len(cols) != 2 || cols[0] != 1 || cols[1] != 6 {
		t.Errorf("got %v, want [1 6]", cols)
	}
}
