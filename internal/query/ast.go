// Package query implements the fielded search DSL: lexing and parsing of
// pattern strings into a QueryExpr, plus the evaluators that apply an
// expression to symbols and to raw text lines.
//
// A pattern is a sequence of AND-groups separated by whitespace. Inside a
// group, alternatives are joined by '|'. A term is `field:value`,
// `field:=value` (exact), `field:~value` (per-element substring), or a
// bare value. Double quotes preserve spaces and bind tightest.
package query

import "strings"

// MatchOp is the comparison a term applies to its field.
type MatchOp int

const (
	// OpSubstring is the default: substring containment, or for
	// list-valued fields exact element membership.
	OpSubstring MatchOp = iota
	// OpExact requires full equality (`field:=value`).
	OpExact
	// OpElement requires per-element substring match on list-valued
	// fields (`field:~value`).
	OpElement
)

// Known field names. "desc" and "callers" are accepted spellings of
// "description" and "called-by" and are normalized at parse time.
const (
	FieldContent     = "content"
	FieldName        = "name"
	FieldKind        = "kind"
	FieldLanguage    = "language"
	FieldFile        = "file"
	FieldComment     = "comment"
	FieldKeyword     = "keyword"
	FieldDescription = "description"
	FieldCalls       = "calls"
	FieldCalledBy    = "called-by"
)

var fieldNames = map[string]string{
	"content":     FieldContent,
	"name":        FieldName,
	"kind":        FieldKind,
	"language":    FieldLanguage,
	"file":        FieldFile,
	"comment":     FieldComment,
	"keyword":     FieldKeyword,
	"desc":        FieldDescription,
	"description": FieldDescription,
	"calls":       FieldCalls,
	"called-by":   FieldCalledBy,
	"callers":     FieldCalledBy,
}

// symbolFields are the fields that flip auto mode to symbol search.
var symbolFields = map[string]bool{
	FieldName:        true,
	FieldKind:        true,
	FieldComment:     true,
	FieldKeyword:     true,
	FieldDescription: true,
	FieldCalls:       true,
	FieldCalledBy:    true,
}

// Term is a single field comparison.
type Term struct {
	Field  string
	Op     MatchOp
	Value  string
	quoted bool
}

// Group is a disjunction of terms (`a|b|c`).
type Group struct {
	Terms []Term
}

// Expr is a conjunction of groups: every group must match.
type Expr struct {
	Groups []Group
}

// HasSymbolFields reports whether any term targets a symbol-oriented
// field; the engine's auto mode picks symbol search when it does.
func (e *Expr) HasSymbolFields() bool {
	for _, g := range e.Groups {
		for _, t := range g.Terms {
			if symbolFields[t.Field] {
				return true
			}
		}
	}
	return false
}

// HasCallFields reports whether the expression filters on call edges.
// Call-graph filters force a live parse even when an index is available.
func (e *Expr) HasCallFields() bool {
	for _, g := range e.Groups {
		for _, t := range g.Terms {
			if t.Field == FieldCalls || t.Field == FieldCalledBy {
				return true
			}
		}
	}
	return false
}

// HasContent reports whether any term targets file/symbol content.
func (e *Expr) HasContent() bool {
	return len(e.ContentTerms()) > 0
}

// ContentTerms returns every content: term in group order.
func (e *Expr) ContentTerms() []Term {
	var out []Term
	for _, g := range e.Groups {
		for _, t := range g.Terms {
			if t.Field == FieldContent {
				out = append(out, t)
			}
		}
	}
	return out
}

// NonContentGroups returns the sub-expression made of the groups that
// carry no content: term. The engine uses it to narrow by symbol fields
// before materializing the content surface.
func (e *Expr) NonContentGroups() *Expr {
	out := &Expr{}
	for _, g := range e.Groups {
		pure := true
		for _, t := range g.Terms {
			if t.Field == FieldContent {
				pure = false
				break
			}
		}
		if pure {
			out.Groups = append(out.Groups, g)
		}
	}
	return out
}

// String unparses the expression. Parsing the output yields a
// semantically equivalent expression.
func (e *Expr) String() string {
	groups := make([]string, 0, len(e.Groups))
	for _, g := range e.Groups {
		terms := make([]string, 0, len(g.Terms))
		for _, t := range g.Terms {
			terms = append(terms, t.String())
		}
		groups = append(groups, strings.Join(terms, "|"))
	}
	return strings.Join(groups, " ")
}

func (t Term) String() string {
	var b strings.Builder
	b.WriteString(t.Field)
	b.WriteByte(':')
	switch t.Op {
	case OpExact:
		b.WriteByte('=')
	case OpElement:
		b.WriteByte('~')
	}
	if t.quoted || strings.ContainsAny(t.Value, " \t|:") {
		b.WriteByte('"')
		b.WriteString(t.Value)
		b.WriteByte('"')
	} else {
		b.WriteString(t.Value)
	}
	return b.String()
}
