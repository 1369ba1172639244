// Package lang implements the language-backend abstraction: per-language
// parsing, symbol extraction, context snippets, parent chains, and
// intra-file call edges. Syntax-tree node types never leave this package;
// everything crossing its boundary is a model value.
package lang

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/kcosr/symgrep/internal/model"
)

// ErrSyntax marks sources the grammar could not parse cleanly. The engine
// skips such files without emitting partial symbols.
var ErrSyntax = errors.New("syntax errors in source")

// Backend extracts symbols and context information for one language.
type Backend interface {
	// ID is the stable lowercase language identifier.
	ID() string
	// Extensions lists the file extensions (with leading dot) the
	// backend claims.
	Extensions() []string
	// Parse parses source bytes into a tree handle. Trees are
	// thread-local: parse per file, never share across goroutines.
	Parse(src []byte) (*Tree, error)
	// Symbols walks the tree and returns every extracted symbol with
	// range, signature, and doc-comment attributes filled in.
	Symbols(t *Tree, file string) []model.Symbol
	// Context materializes a decl, def, or parent snippet for a symbol
	// previously extracted from the same tree.
	Context(t *Tree, sym *model.Symbol, kind model.ContextKind) (model.ContextInfo, error)
	// Calls records the call expressions inside the symbol's body.
	Calls(t *Tree, sym *model.Symbol) []model.CallRef
}

// Tree is an opaque handle over a parsed file. It borrows the source
// bytes for the lifetime of the handle.
type Tree struct {
	src   []byte
	lines []string
	tree  *sitter.Tree
}

// Close releases the underlying parse tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Lines returns the source split into lines (without terminators).
func (t *Tree) Lines() []string {
	return t.lines
}

// grammar describes how one language maps onto the shared extractor.
type grammar struct {
	id         string
	extensions []string
	language   *sitter.Language

	// symbolKinds maps node kinds to symbol kinds. classify may refine
	// the mapped kind (receiver methods, impl-block functions); filter
	// may reject a candidate node entirely.
	symbolKinds map[string]model.SymbolKind
	classify    func(n *sitter.Node, src []byte, kind model.SymbolKind) model.SymbolKind
	filter      func(n *sitter.Node) bool

	// nameOf locates the identifier node naming a symbol node. When nil
	// the "name" field is used.
	nameOf func(n *sitter.Node, src []byte) *sitter.Node

	// scopeKinds maps node kinds that appear in parent chains to the
	// kind they contribute. scopeName overrides "name"-field naming.
	scopeKinds map[string]model.SymbolKind
	scopeName  func(n *sitter.Node, src []byte) string

	// callKinds are call-expression node kinds; callee extracts the
	// head identifier of the called function. When callee is nil the
	// "function" field is resolved to its trailing identifier.
	callKinds map[string]bool
	callee    func(n *sitter.Node, src []byte) (string, bool)

	// bodyField names the child field holding the definition body;
	// the decl region stops where the body starts.
	bodyField string

	// lineComment is the single-line comment prefix used for doc
	// comment extraction; hasBlockComments additionally recognizes
	// /* ... */ blocks above a symbol.
	lineComment      string
	hasBlockComments bool
}

// backend is the shared Backend implementation, parameterized by grammar.
type backend struct {
	g grammar
}

func newBackend(g grammar) *backend {
	return &backend{g: g}
}

func (b *backend) ID() string            { return b.g.id }
func (b *backend) Extensions() []string  { return b.g.extensions }

func (b *backend) Parse(src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(b.g.language); err != nil {
		return nil, fmt.Errorf("set %s language: %w", b.g.id, err)
	}
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s: parser returned no tree", b.g.id)
	}
	if tree.RootNode().HasError() {
		tree.Close()
		return nil, fmt.Errorf("%s: %w", b.g.id, ErrSyntax)
	}
	return &Tree{
		src:   src,
		lines: strings.Split(string(src), "\n"),
		tree:  tree,
	}, nil
}

func (b *backend) Symbols(t *Tree, file string) []model.Symbol {
	var symbols []model.Symbol
	b.walk(t.tree.RootNode(), func(n *sitter.Node) {
		kind, ok := b.g.symbolKinds[n.Kind()]
		if !ok {
			return
		}
		if b.g.filter != nil && !b.g.filter(n) {
			return
		}
		nameNode := b.nameNode(n, t.src)
		if nameNode == nil {
			return
		}
		name := nodeText(nameNode, t.src)
		if name == "" {
			return
		}
		if b.g.classify != nil {
			kind = b.g.classify(n, t.src, kind)
		}

		sym := model.Symbol{
			Name:      name,
			Kind:      kind,
			Language:  b.g.id,
			File:      file,
			Range:     rangeOf(n),
			Signature: b.signature(n, t),
		}
		if attrs := b.docComment(n, t); attrs != nil {
			sym.Attributes = attrs
		}
		symbols = append(symbols, sym)
	})
	return symbols
}

func (b *backend) Context(t *Tree, sym *model.Symbol, kind model.ContextKind) (model.ContextInfo, error) {
	node := b.findNode(t, sym)
	if node == nil {
		return model.ContextInfo{}, fmt.Errorf("symbol %s %s not found in tree", sym.Kind, sym.Name)
	}

	info := model.ContextInfo{
		Kind:        kind,
		File:        sym.File,
		ParentChain: b.parentChain(node, t, sym.File),
	}

	switch kind {
	case model.ContextDecl:
		start, end := b.declLines(node)
		info.Range, info.Snippet = lineRegion(t.lines, start, end)
	case model.ContextDef:
		r := rangeOf(node)
		info.Range, info.Snippet = lineRegion(t.lines, r.StartLine, r.EndLine)
	case model.ContextParent:
		scope := b.enclosingScope(node)
		if scope != nil {
			r := rangeOf(scope)
			info.Range, info.Snippet = lineRegion(t.lines, r.StartLine, r.EndLine)
		} else {
			// No enclosing named scope; the parent is the file itself.
			info.Range, info.Snippet = lineRegion(t.lines, 1, len(t.lines))
		}
	default:
		return model.ContextInfo{}, fmt.Errorf("unknown context kind %q", kind)
	}
	return info, nil
}

func (b *backend) Calls(t *Tree, sym *model.Symbol) []model.CallRef {
	node := b.findNode(t, sym)
	if node == nil {
		return nil
	}
	body := node
	if b.g.bodyField != "" {
		if bn := node.ChildByFieldName(b.g.bodyField); bn != nil {
			body = bn
		}
	}

	var calls []model.CallRef
	b.walk(body, func(n *sitter.Node) {
		if !b.g.callKinds[n.Kind()] {
			return
		}
		name, ok := b.calleeName(n, t.src)
		if !ok || name == "" {
			return
		}
		calls = append(calls, model.CallRef{
			Name: name,
			File: sym.File,
			Line: int(n.StartPosition().Row) + 1,
		})
	})
	return calls
}

// walk visits every node depth-first.
func (b *backend) walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for i := uint(0); i < n.ChildCount(); i++ {
		b.walk(n.Child(i), visit)
	}
}

func (b *backend) nameNode(n *sitter.Node, src []byte) *sitter.Node {
	if b.g.nameOf != nil {
		return b.g.nameOf(n, src)
	}
	return n.ChildByFieldName("name")
}

// findNode relocates the tree node a symbol was extracted from by its
// defining range. Parent references are resolved by re-walking the tree,
// never by back-pointers.
func (b *backend) findNode(t *Tree, sym *model.Symbol) *sitter.Node {
	var found *sitter.Node
	b.walk(t.tree.RootNode(), func(n *sitter.Node) {
		if found != nil {
			return
		}
		if _, ok := b.g.symbolKinds[n.Kind()]; !ok {
			return
		}
		if rangeOf(n) == sym.Range {
			found = n
		}
	})
	return found
}

// enclosingScope returns the smallest named scope containing the node.
func (b *backend) enclosingScope(n *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := b.g.scopeKinds[p.Kind()]; ok {
			return p
		}
	}
	return nil
}

// parentChain builds the chain from the file node down to the innermost
// enclosing named scope.
func (b *backend) parentChain(n *sitter.Node, t *Tree, file string) []model.ContextNode {
	var scopes []*sitter.Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := b.g.scopeKinds[p.Kind()]; ok {
			scopes = append(scopes, p)
		}
	}

	chain := []model.ContextNode{model.FileNode(filepath.Base(file))}
	// scopes were collected inner-to-outer; emit outermost first.
	for i := len(scopes) - 1; i >= 0; i-- {
		s := scopes[i]
		name := b.scopeNameOf(s, t.src)
		if name == "" {
			continue
		}
		chain = append(chain, model.ScopeNode(name, b.g.scopeKinds[s.Kind()]))
	}
	return chain
}

func (b *backend) scopeNameOf(n *sitter.Node, src []byte) string {
	if b.g.scopeName != nil {
		return b.g.scopeName(n, src)
	}
	if nn := n.ChildByFieldName("name"); nn != nil {
		return nodeText(nn, src)
	}
	return ""
}

// declLines returns the 1-based line span of the declaration header: the
// node's start line through the line on which its body begins, or the
// whole node when it has no body.
func (b *backend) declLines(n *sitter.Node) (int, int) {
	start := int(n.StartPosition().Row) + 1
	if b.g.bodyField != "" {
		if body := n.ChildByFieldName(b.g.bodyField); body != nil {
			return start, int(body.StartPosition().Row) + 1
		}
	}
	return start, int(n.EndPosition().Row) + 1
}

// signature renders the single-line header of a symbol node.
func (b *backend) signature(n *sitter.Node, t *Tree) string {
	line := int(n.StartPosition().Row)
	if line < 0 || line >= len(t.lines) {
		return ""
	}
	sig := strings.TrimSpace(t.lines[line])
	sig = strings.TrimSuffix(sig, "{")
	return strings.TrimRight(sig, " \t")
}

// docComment scans the comment block immediately above the symbol,
// allowing a single blank line between comment and declaration.
func (b *backend) docComment(n *sitter.Node, t *Tree) *model.SymbolAttributes {
	startLine := int(n.StartPosition().Row) // 0-based line of the symbol
	i := startLine - 1
	if i >= 0 && i < len(t.lines) && strings.TrimSpace(t.lines[i]) == "" {
		i--
	}
	if i < 0 || i >= len(t.lines) {
		return nil
	}

	var commentLines []string
	first, last := -1, -1

	trimmed := strings.TrimSpace(t.lines[i])
	switch {
	case b.g.lineComment != "" && strings.HasPrefix(trimmed, b.g.lineComment):
		last = i
		for i >= 0 {
			text := strings.TrimSpace(t.lines[i])
			if !strings.HasPrefix(text, b.g.lineComment) {
				break
			}
			commentLines = append([]string{strings.TrimSpace(strings.TrimPrefix(text, b.g.lineComment))}, commentLines...)
			first = i
			i--
		}
	case b.g.hasBlockComments && strings.HasSuffix(trimmed, "*/"):
		last = i
		for i >= 0 {
			text := strings.TrimSpace(t.lines[i])
			commentLines = append([]string{trimBlockComment(text)}, commentLines...)
			first = i
			if strings.HasPrefix(text, "/*") {
				break
			}
			i--
		}
		if first > 0 && !strings.HasPrefix(strings.TrimSpace(t.lines[first]), "/*") {
			return nil
		}
	default:
		return nil
	}

	if first < 0 {
		return nil
	}
	comment := strings.TrimSpace(strings.Join(commentLines, "\n"))
	if comment == "" {
		return nil
	}
	return &model.SymbolAttributes{
		Comment: comment,
		CommentRange: &model.TextRange{
			StartLine: first + 1,
			StartCol:  1,
			EndLine:   last + 1,
			EndCol:    len(t.lines[last]) + 1,
		},
	}
}

func trimBlockComment(s string) string {
	s = strings.TrimPrefix(s, "/**")
	s = strings.TrimPrefix(s, "/*")
	s = strings.TrimSuffix(s, "*/")
	s = strings.TrimPrefix(strings.TrimSpace(s), "*")
	return strings.TrimSpace(s)
}

// calleeName resolves the head identifier of a call expression. Member
// calls like obj.foo(...) yield foo; qualified calls yield the trailing
// identifier.
func (b *backend) calleeName(n *sitter.Node, src []byte) (string, bool) {
	if b.g.callee != nil {
		return b.g.callee(n, src)
	}
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return "", false
	}
	return trailingIdentifier(fn, src)
}

// trailingIdentifier descends a callee expression to its final
// identifier-like node.
func trailingIdentifier(n *sitter.Node, src []byte) (string, bool) {
	switch n.Kind() {
	case "identifier", "field_identifier", "property_identifier", "type_identifier":
		return nodeText(n, src), true
	}
	for _, field := range []string{"field", "property", "name", "attribute"} {
		if c := n.ChildByFieldName(field); c != nil {
			return trailingIdentifier(c, src)
		}
	}
	// Fall back to the last named child (covers parenthesized and
	// generic callees).
	for i := int(n.ChildCount()) - 1; i >= 0; i-- {
		c := n.Child(uint(i))
		if c != nil && c.IsNamed() {
			return trailingIdentifier(c, src)
		}
	}
	return "", false
}

// rangeOf converts a node's positions to a 1-based half-open TextRange.
func rangeOf(n *sitter.Node) model.TextRange {
	start := n.StartPosition()
	end := n.EndPosition()
	return model.TextRange{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
	}
}

// lineRegion materializes a whole-line region: the snippet covers every
// line in [startLine, endLine] and the range mirrors it exactly, so the
// snippet's line count always equals the range's.
func lineRegion(lines []string, startLine, endLine int) (model.TextRange, string) {
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if endLine < startLine {
		endLine = startLine
	}
	snippet := strings.Join(lines[startLine-1:endLine], "\n")
	return model.TextRange{
		StartLine: startLine,
		StartCol:  1,
		EndLine:   endLine,
		EndCol:    len(lines[endLine-1]) + 1,
	}, snippet
}

// nodeText extracts the source text of a node.
func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	start := n.StartByte()
	end := n.EndByte()
	if start >= uint(len(src)) || end > uint(len(src)) || start >= end {
		return ""
	}
	return string(src[start:end])
}

// hasAncestor reports whether any ancestor of n has one of the kinds.
func hasAncestor(n *sitter.Node, kinds ...string) bool {
	return ancestorOf(n, kinds...) != nil
}

func ancestorOf(n *sitter.Node, kinds ...string) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		for _, k := range kinds {
			if p.Kind() == k {
				return p
			}
		}
	}
	return nil
}
