package lang

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/kcosr/symgrep/internal/model"
)

// NewCpp returns the C++ backend. Functions defined inside a class or
// struct body are methods; namespace definitions produce namespace
// symbols and parent-chain entries.
func NewCpp() Backend {
	return newBackend(grammar{
		id:         "cpp",
		extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hxx", ".h++"},
		language:   sitter.NewLanguage(tree_sitter_cpp.Language()),
		symbolKinds: map[string]model.SymbolKind{
			"function_definition":  model.KindFunction,
			"class_specifier":      model.KindClass,
			"struct_specifier":     model.KindClass,
			"enum_specifier":       model.KindClass,
			"namespace_definition": model.KindNamespace,
		},
		classify: func(n *sitter.Node, src []byte, kind model.SymbolKind) model.SymbolKind {
			if n.Kind() == "function_definition" && hasAncestor(n, "class_specifier", "struct_specifier") {
				return model.KindMethod
			}
			return kind
		},
		filter: func(n *sitter.Node) bool {
			switch n.Kind() {
			case "class_specifier", "struct_specifier", "enum_specifier":
				return n.ChildByFieldName("body") != nil && n.ChildByFieldName("name") != nil
			}
			return true
		},
		nameOf: cppNameNode,
		scopeKinds: map[string]model.SymbolKind{
			"namespace_definition": model.KindNamespace,
			"class_specifier":      model.KindClass,
			"struct_specifier":     model.KindClass,
		},
		callKinds: map[string]bool{"call_expression": true},
		bodyField: "body",

		lineComment:      "//",
		hasBlockComments: true,
	})
}

func cppNameNode(n *sitter.Node, src []byte) *sitter.Node {
	switch n.Kind() {
	case "class_specifier", "struct_specifier", "enum_specifier", "namespace_definition":
		return n.ChildByFieldName("name")
	}
	return declaratorIdentifier(n.ChildByFieldName("declarator"))
}
