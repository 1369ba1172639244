package lang

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/kcosr/symgrep/internal/model"
)

// NewPython returns the Python backend. Functions defined inside a class
// body are methods; module-level assignments are variables.
func NewPython() Backend {
	return newBackend(grammar{
		id:         "python",
		extensions: []string{".py", ".pyi"},
		language:   sitter.NewLanguage(tree_sitter_python.Language()),
		symbolKinds: map[string]model.SymbolKind{
			"function_definition": model.KindFunction,
			"class_definition":    model.KindClass,
			"assignment":          model.KindVariable,
		},
		classify: func(n *sitter.Node, src []byte, kind model.SymbolKind) model.SymbolKind {
			if n.Kind() == "function_definition" && hasAncestor(n, "class_definition") {
				return model.KindMethod
			}
			return kind
		},
		filter: func(n *sitter.Node) bool {
			if n.Kind() != "assignment" {
				return true
			}
			// Only module-level `name = value` statements count.
			p := n.Parent()
			if p == nil || p.Kind() != "expression_statement" {
				return false
			}
			gp := p.Parent()
			if gp == nil || gp.Kind() != "module" {
				return false
			}
			left := n.ChildByFieldName("left")
			return left != nil && left.Kind() == "identifier"
		},
		nameOf: func(n *sitter.Node, src []byte) *sitter.Node {
			if n.Kind() == "assignment" {
				return n.ChildByFieldName("left")
			}
			return n.ChildByFieldName("name")
		},
		scopeKinds: map[string]model.SymbolKind{
			"class_definition": model.KindClass,
		},
		callKinds: map[string]bool{"call": true},
		bodyField: "body",

		lineComment: "#",
	})
}
