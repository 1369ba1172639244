package lang

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/kcosr/symgrep/internal/model"
)

// NewGo returns the Go backend. Receiver methods map to method; struct
// and interface types map to the shared class/interface vocabulary.
func NewGo() Backend {
	return newBackend(grammar{
		id:         "go",
		extensions: []string{".go"},
		language:   sitter.NewLanguage(tree_sitter_go.Language()),
		symbolKinds: map[string]model.SymbolKind{
			"function_declaration": model.KindFunction,
			"method_declaration":   model.KindMethod,
			"type_spec":            model.KindClass,
			"var_spec":             model.KindVariable,
			"const_spec":           model.KindVariable,
		},
		classify: func(n *sitter.Node, src []byte, kind model.SymbolKind) model.SymbolKind {
			if n.Kind() != "type_spec" {
				return kind
			}
			if tn := n.ChildByFieldName("type"); tn != nil {
				switch tn.Kind() {
				case "interface_type":
					return model.KindInterface
				}
			}
			return model.KindClass
		},
		callKinds: map[string]bool{"call_expression": true},
		bodyField: "body",

		lineComment: "//",
	})
}
