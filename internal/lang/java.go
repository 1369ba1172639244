package lang

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/kcosr/symgrep/internal/model"
)

// NewJava returns the Java backend.
func NewJava() Backend {
	return newBackend(grammar{
		id:         "java",
		extensions: []string{".java"},
		language:   sitter.NewLanguage(tree_sitter_java.Language()),
		symbolKinds: map[string]model.SymbolKind{
			"method_declaration":      model.KindMethod,
			"constructor_declaration": model.KindMethod,
			"class_declaration":       model.KindClass,
			"interface_declaration":   model.KindInterface,
			"enum_declaration":        model.KindClass,
		},
		scopeKinds: map[string]model.SymbolKind{
			"class_declaration":     model.KindClass,
			"interface_declaration": model.KindInterface,
			"enum_declaration":      model.KindClass,
		},
		callKinds: map[string]bool{"method_invocation": true},
		callee: func(n *sitter.Node, src []byte) (string, bool) {
			name := n.ChildByFieldName("name")
			if name == nil {
				return "", false
			}
			return nodeText(name, src), true
		},
		bodyField: "body",

		lineComment:      "//",
		hasBlockComments: true,
	})
}
