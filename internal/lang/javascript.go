package lang

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"github.com/kcosr/symgrep/internal/model"
)

// NewJavaScript returns the JavaScript backend.
func NewJavaScript() Backend {
	return newBackend(grammar{
		id:         "javascript",
		extensions: []string{".js", ".mjs", ".jsx"},
		language:   sitter.NewLanguage(tree_sitter_javascript.Language()),
		symbolKinds: map[string]model.SymbolKind{
			"function_declaration":           model.KindFunction,
			"generator_function_declaration": model.KindFunction,
			"class_declaration":              model.KindClass,
			"method_definition":              model.KindMethod,
			"variable_declarator":            model.KindVariable,
		},
		filter: jsTopLevelDeclarator,
		scopeKinds: map[string]model.SymbolKind{
			"class_declaration": model.KindClass,
		},
		callKinds: map[string]bool{"call_expression": true},
		bodyField: "body",

		lineComment:      "//",
		hasBlockComments: true,
	})
}

// jsTopLevelDeclarator keeps variable declarators at program scope and
// drops the locals inside function bodies.
func jsTopLevelDeclarator(n *sitter.Node) bool {
	if n.Kind() != "variable_declarator" {
		return true
	}
	if name := n.ChildByFieldName("name"); name == nil || name.Kind() != "identifier" {
		return false
	}
	decl := n.Parent()
	if decl == nil {
		return false
	}
	switch decl.Kind() {
	case "variable_declaration", "lexical_declaration":
	default:
		return false
	}
	gp := decl.Parent()
	if gp == nil {
		return false
	}
	if gp.Kind() == "export_statement" {
		gp = gp.Parent()
	}
	return gp != nil && gp.Kind() == "program"
}
