package lang

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/kcosr/symgrep/internal/model"
)

// NewRust returns the Rust backend. Free functions and associated
// functions without a self receiver are functions; anything taking
// self/&self/&mut self is a method. Traits map to interface, structs and
// enums to class, mod blocks to namespace.
func NewRust() Backend {
	return newBackend(grammar{
		id:         "rust",
		extensions: []string{".rs"},
		language:   sitter.NewLanguage(tree_sitter_rust.Language()),
		symbolKinds: map[string]model.SymbolKind{
			"function_item": model.KindFunction,
			"struct_item":   model.KindClass,
			"enum_item":     model.KindClass,
			"trait_item":    model.KindInterface,
			"mod_item":      model.KindNamespace,
			"static_item":   model.KindVariable,
			"const_item":    model.KindVariable,
		},
		classify: func(n *sitter.Node, src []byte, kind model.SymbolKind) model.SymbolKind {
			if n.Kind() == "function_item" && rustHasSelfReceiver(n) {
				return model.KindMethod
			}
			return kind
		},
		scopeKinds: map[string]model.SymbolKind{
			"mod_item":   model.KindNamespace,
			"impl_item":  model.KindClass,
			"trait_item": model.KindInterface,
		},
		scopeName: func(n *sitter.Node, src []byte) string {
			if n.Kind() == "impl_item" {
				return nodeText(n.ChildByFieldName("type"), src)
			}
			return nodeText(n.ChildByFieldName("name"), src)
		},
		callKinds: map[string]bool{"call_expression": true},
		bodyField: "body",

		lineComment: "//",
	})
}

// rustHasSelfReceiver checks the parameter list for a self parameter.
func rustHasSelfReceiver(n *sitter.Node) bool {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return false
	}
	for i := uint(0); i < params.ChildCount(); i++ {
		if c := params.Child(i); c != nil && c.Kind() == "self_parameter" {
			return true
		}
	}
	return false
}
