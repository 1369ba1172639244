package lang

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/kcosr/symgrep/internal/model"
)

// NewTypeScript returns the TypeScript backend. It extends the
// JavaScript construct set with interfaces, enums, type aliases, and
// namespaces.
func NewTypeScript() Backend {
	return newBackend(grammar{
		id:         "typescript",
		extensions: []string{".ts", ".tsx"},
		language:   sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		symbolKinds: map[string]model.SymbolKind{
			"function_declaration":           model.KindFunction,
			"generator_function_declaration": model.KindFunction,
			"class_declaration":              model.KindClass,
			"abstract_class_declaration":     model.KindClass,
			"method_definition":              model.KindMethod,
			"interface_declaration":          model.KindInterface,
			"enum_declaration":               model.KindClass,
			"type_alias_declaration":         model.KindClass,
			"internal_module":                model.KindNamespace,
			"variable_declarator":            model.KindVariable,
		},
		filter: jsTopLevelDeclarator,
		scopeKinds: map[string]model.SymbolKind{
			"class_declaration":          model.KindClass,
			"abstract_class_declaration": model.KindClass,
			"interface_declaration":      model.KindInterface,
			"internal_module":            model.KindNamespace,
		},
		callKinds: map[string]bool{"call_expression": true},
		bodyField: "body",

		lineComment:      "//",
		hasBlockComments: true,
	})
}
