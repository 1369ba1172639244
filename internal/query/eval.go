package query

import (
	"strings"

	"github.com/kcosr/symgrep/internal/model"
)

// Surface builds the composite text a content: term is evaluated against
// for a symbol: name, signature, doc comment, keywords, description, and
// the selected context snippet when one was materialized.
func Surface(sym *model.Symbol, snippet string) string {
	parts := []string{sym.Name}
	if sym.Signature != "" {
		parts = append(parts, sym.Signature)
	}
	if sym.Attributes != nil {
		if sym.Attributes.Comment != "" {
			parts = append(parts, sym.Attributes.Comment)
		}
		if len(sym.Attributes.Keywords) > 0 {
			parts = append(parts, strings.Join(sym.Attributes.Keywords, " "))
		}
		if sym.Attributes.Description != "" {
			parts = append(parts, sym.Attributes.Description)
		}
	}
	if snippet != "" {
		parts = append(parts, snippet)
	}
	return strings.Join(parts, "\n")
}

// MatchSymbol evaluates the expression against a symbol. snippet is the
// materialized context region used as part of the content surface (empty
// when none was fetched). literal promotes substring matches on name and
// content to whole-identifier matches.
func (e *Expr) MatchSymbol(sym *model.Symbol, snippet string, literal bool) bool {
	for _, g := range e.Groups {
		if !g.matchSymbol(sym, snippet, literal) {
			return false
		}
	}
	return true
}

func (g Group) matchSymbol(sym *model.Symbol, snippet string, literal bool) bool {
	for _, t := range g.Terms {
		if t.matchSymbol(sym, snippet, literal) {
			return true
		}
	}
	return false
}

func (t Term) matchSymbol(sym *model.Symbol, snippet string, literal bool) bool {
	switch t.Field {
	case FieldName:
		return matchString(t.Op, sym.Name, t.Value, literal)
	case FieldKind:
		want, _ := model.NormalizeKind(t.Value)
		return sym.Kind == want
	case FieldLanguage:
		return sym.Language == strings.ToLower(t.Value)
	case FieldFile:
		return matchString(t.Op, sym.File, t.Value, false)
	case FieldComment:
		if sym.Attributes == nil || sym.Attributes.Comment == "" {
			return false
		}
		return matchString(t.Op, sym.Attributes.Comment, t.Value, false)
	case FieldKeyword:
		if sym.Attributes == nil {
			return false
		}
		for _, kw := range sym.Attributes.Keywords {
			if t.Op == OpElement {
				if strings.Contains(kw, t.Value) {
					return true
				}
			} else if kw == t.Value {
				return true
			}
		}
		return false
	case FieldDescription:
		if sym.Attributes == nil || sym.Attributes.Description == "" {
			return false
		}
		return matchString(t.Op, sym.Attributes.Description, t.Value, false)
	case FieldCalls:
		return matchCallRefs(t, sym.Calls)
	case FieldCalledBy:
		return matchCallRefs(t, sym.CalledBy)
	case FieldContent:
		return matchString(t.Op, Surface(sym, snippet), t.Value, literal)
	}
	return false
}

func matchCallRefs(t Term, refs []model.CallRef) bool {
	for _, ref := range refs {
		if matchString(t.Op, ref.Name, t.Value, false) {
			return true
		}
	}
	return false
}

// matchString applies a term operator to a haystack. literal promotes the
// default substring containment to a whole-identifier match.
func matchString(op MatchOp, s, value string, literal bool) bool {
	if op == OpExact {
		return s == value
	}
	if literal {
		return wordMatch(s, value) >= 0
	}
	return strings.Contains(s, value)
}

// MatchLine evaluates the content groups of the expression against one
// text line. It returns the 1-based column of the earliest hit and true
// when every content-bearing group is satisfied.
func (e *Expr) MatchLine(line string, literal bool) (int, bool) {
	col := -1
	matchedAny := false
	for _, g := range e.Groups {
		hasContent := false
		groupCol := -1
		for _, t := range g.Terms {
			if t.Field != FieldContent {
				continue
			}
			hasContent = true
			if c := findIn(line, t.Value, t.Op, literal); c >= 0 {
				if groupCol < 0 || c < groupCol {
					groupCol = c
				}
			}
		}
		if !hasContent {
			continue
		}
		if groupCol < 0 {
			return 0, false
		}
		matchedAny = true
		if col < 0 || groupCol < col {
			col = groupCol
		}
	}
	if !matchedAny {
		return 0, false
	}
	return col + 1, true
}

// ContentHits returns the 1-based columns at which any content: value
// occurs in line, ascending and deduplicated. Used to populate per-symbol
// match lists inside a materialized region.
func (e *Expr) ContentHits(line string, literal bool) []int {
	seen := map[int]bool{}
	var cols []int
	for _, t := range e.ContentTerms() {
		off := 0
		for off <= len(line) {
			c := findIn(line[off:], t.Value, t.Op, literal)
			if c < 0 {
				break
			}
			abs := off + c
			if !seen[abs] {
				seen[abs] = true
				cols = append(cols, abs)
			}
			off = abs + 1
		}
	}
	sortInts(cols)
	for i := range cols {
		cols[i]++
	}
	return cols
}

// findIn locates value in s per the operator, returning a 0-based index
// or -1.
func findIn(s, value string, op MatchOp, literal bool) int {
	if op == OpExact {
		if s == value {
			return 0
		}
		return -1
	}
	if literal {
		return wordMatch(s, value)
	}
	return strings.Index(s, value)
}

// wordMatch finds the first whole-identifier occurrence of w in s,
// returning its 0-based index or -1. Boundaries are non-identifier
// characters or the string ends.
func wordMatch(s, w string) int {
	if w == "" {
		return -1
	}
	off := 0
	for {
		i := strings.Index(s[off:], w)
		if i < 0 {
			return -1
		}
		abs := off + i
		before := abs == 0 || !isIdentChar(s[abs-1])
		afterIdx := abs + len(w)
		after := afterIdx >= len(s) || !isIdentChar(s[afterIdx])
		if before && after {
			return abs
		}
		off = abs + 1
	}
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_' || c == '$'
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}
