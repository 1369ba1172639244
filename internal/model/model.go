// Package model defines the domain entities shared by the query,
// language, index, engine, and follow layers: symbols, text ranges,
// context snippets, call edges, and the versioned result documents.
package model

import (
	"fmt"
	"strings"
)

// SymbolKind classifies a symbol using a stable lowercase vocabulary.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindVariable  SymbolKind = "variable"
	KindNamespace SymbolKind = "namespace"
)

// kindAliases maps DSL spellings onto the canonical vocabulary.
// Language backends emit canonical kinds directly; the aliases exist so
// queries like `kind:func` or `kind:struct` resolve the way users expect.
var kindAliases = map[string]SymbolKind{
	"func":   KindFunction,
	"fn":     KindFunction,
	"struct": KindClass,
	"trait":  KindInterface,
	"enum":   KindClass,
	"ns":     KindNamespace,
	"module": KindNamespace,
	"var":    KindVariable,
}

// NormalizeKind lowercases s and resolves aliases. The second return is
// false when s names no known kind or alias.
func NormalizeKind(s string) (SymbolKind, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	switch SymbolKind(k) {
	case KindFunction, KindMethod, KindClass, KindInterface, KindVariable, KindNamespace:
		return SymbolKind(k), true
	}
	if alias, ok := kindAliases[k]; ok {
		return alias, true
	}
	return SymbolKind(k), false
}

// TextRange is a half-open region of source text. Lines and columns are
// 1-based; the end position is exclusive.
type TextRange struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// Valid reports whether the range is ordered (start <= end).
func (r TextRange) Valid() bool {
	if r.StartLine != r.EndLine {
		return r.StartLine < r.EndLine
	}
	return r.StartCol <= r.EndCol
}

// LineCount returns the number of source lines the range spans.
func (r TextRange) LineCount() int {
	return r.EndLine - r.StartLine + 1
}

func (r TextRange) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.StartLine, r.StartCol, r.EndLine, r.EndCol)
}

// CallRef is an intra-file, name-based call edge. Line is the call site,
// in reverse (called_by) projections as well; Kind is filled when the
// referenced symbol is known.
type CallRef struct {
	Name string     `json:"name"`
	File string     `json:"file"`
	Line int        `json:"line,omitempty"`
	Kind SymbolKind `json:"kind,omitempty"`
}

// SymbolAttributes carries the doc comment extracted from source plus the
// externally managed keyword and description annotations.
type SymbolAttributes struct {
	Comment      string     `json:"comment,omitempty"`
	CommentRange *TextRange `json:"comment_range,omitempty"`
	Keywords     []string   `json:"keywords,omitempty"`
	Description  string     `json:"description,omitempty"`
}

// Empty reports whether no attribute field is set.
func (a SymbolAttributes) Empty() bool {
	return a.Comment == "" && a.CommentRange == nil && len(a.Keywords) == 0 && a.Description == ""
}

// Symbol is a named, located program entity extracted from a syntax tree.
type Symbol struct {
	Name         string            `json:"name"`
	Kind         SymbolKind        `json:"kind"`
	Language     string            `json:"language"`
	File         string            `json:"file"`
	Range        TextRange         `json:"range"`
	Signature    string            `json:"signature,omitempty"`
	Attributes   *SymbolAttributes `json:"attributes,omitempty"`
	DefLineCount int               `json:"def_line_count,omitempty"`
	Matches      []SymbolMatch     `json:"matches,omitempty"`
	Calls        []CallRef         `json:"calls,omitempty"`
	CalledBy     []CallRef         `json:"called_by,omitempty"`
}

// SymbolMatch is a per-symbol content hit inside a materialized view.
type SymbolMatch struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Snippet string `json:"snippet"`
}

// IdentityKey is the 5-tuple that matches a symbol across reindex passes.
// Two symbols with equal keys are the same identity; external keywords and
// descriptions carry forward along it.
type IdentityKey struct {
	Kind      SymbolKind
	Name      string
	StartLine int
	EndLine   int
	Signature string
}

// Identity returns the symbol's reindex identity key.
func (s *Symbol) Identity() IdentityKey {
	return IdentityKey{
		Kind:      s.Kind,
		Name:      s.Name,
		StartLine: s.Range.StartLine,
		EndLine:   s.Range.EndLine,
		Signature: s.Signature,
	}
}

// ContextKind selects which region of a symbol a context snippet covers.
type ContextKind string

const (
	ContextDecl   ContextKind = "decl"
	ContextDef    ContextKind = "def"
	ContextParent ContextKind = "parent"
)

// ContextNode is one entry of a parent chain. The first entry always
// describes the file itself and has a null kind.
type ContextNode struct {
	Name string      `json:"name"`
	Kind *SymbolKind `json:"kind"`
}

// ContextInfo is a text region tied to a symbol: its declaration, its full
// definition, or its enclosing scope. Snippet always contains the complete
// selected region; presentation flags never truncate it.
type ContextInfo struct {
	Kind        ContextKind   `json:"kind"`
	File        string        `json:"file"`
	Range       TextRange     `json:"range"`
	Snippet     string        `json:"snippet"`
	SymbolIndex *int          `json:"symbol_index,omitempty"`
	ParentChain []ContextNode `json:"parent_chain"`
}

// FileNode builds the file-level head of a parent chain from a path.
func FileNode(basename string) ContextNode {
	return ContextNode{Name: basename, Kind: nil}
}

// ScopeNode builds a named-scope parent chain entry.
func ScopeNode(name string, kind SymbolKind) ContextNode {
	k := kind
	return ContextNode{Name: name, Kind: &k}
}
