package lang

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"

	"github.com/kcosr/symgrep/internal/model"
)

// NewC returns the C backend. Struct and enum definitions (with bodies)
// map to class; forward declarations and bare usages are skipped.
func NewC() Backend {
	return newBackend(grammar{
		id:         "c",
		extensions: []string{".c", ".h"},
		language:   sitter.NewLanguage(tree_sitter_c.Language()),
		symbolKinds: map[string]model.SymbolKind{
			"function_definition": model.KindFunction,
			"struct_specifier":    model.KindClass,
			"enum_specifier":      model.KindClass,
		},
		filter: cHasBody,
		nameOf: cNameNode,
		callKinds: map[string]bool{
			"call_expression": true,
		},
		bodyField: "body",

		lineComment:      "//",
		hasBlockComments: true,
	})
}

// cHasBody keeps only defining struct/enum specifiers.
func cHasBody(n *sitter.Node) bool {
	switch n.Kind() {
	case "struct_specifier", "enum_specifier":
		return n.ChildByFieldName("body") != nil && n.ChildByFieldName("name") != nil
	}
	return true
}

// cNameNode resolves the identifier inside nested declarators.
func cNameNode(n *sitter.Node, src []byte) *sitter.Node {
	switch n.Kind() {
	case "struct_specifier", "enum_specifier":
		return n.ChildByFieldName("name")
	}
	return declaratorIdentifier(n.ChildByFieldName("declarator"))
}

// declaratorIdentifier descends pointer/function declarators to the
// defined identifier.
func declaratorIdentifier(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Kind() {
		case "identifier", "field_identifier", "type_identifier", "qualified_identifier":
			if n.Kind() == "qualified_identifier" {
				if name := n.ChildByFieldName("name"); name != nil {
					n = name
					continue
				}
			}
			return n
		}
		next := n.ChildByFieldName("declarator")
		if next == nil {
			next = n.ChildByFieldName("name")
		}
		n = next
	}
	return nil
}
