package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kcosr/symgrep/internal/engine"
)

type attrFlags struct {
	IndexPath   string
	Root        string
	File        string
	Language    string
	Kind        string
	Name        string
	StartLine   int
	EndLine     int
	Keywords    []string
	Description string
}

var attrOpts attrFlags

var attrCmd = &cobra.Command{
	Use:   "attr",
	Short: "Manage external symbol annotations",
}

var attrSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set keywords and description on exactly one indexed symbol",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := engine.New(slog.Default())
		return eng.UpdateAttributes(engine.AttributesRequest{
			IndexPath: attrOpts.IndexPath,
			Root:      attrOpts.Root,
			Selector: engine.AttributeSelector{
				File:      attrOpts.File,
				Language:  attrOpts.Language,
				Kind:      attrOpts.Kind,
				Name:      attrOpts.Name,
				StartLine: attrOpts.StartLine,
				EndLine:   attrOpts.EndLine,
			},
			Keywords:    attrOpts.Keywords,
			Description: attrOpts.Description,
		})
	},
}

func init() {
	f := attrSetCmd.Flags()
	f.StringVar(&attrOpts.IndexPath, "index-path", "", "explicit index location")
	f.StringVar(&attrOpts.Root, "root", ".", "search root for index discovery")
	f.StringVar(&attrOpts.File, "file", "", "selector: file path")
	f.StringVar(&attrOpts.Language, "language", "", "selector: language")
	f.StringVar(&attrOpts.Kind, "kind", "", "selector: symbol kind")
	f.StringVar(&attrOpts.Name, "name", "", "selector: symbol name")
	f.IntVar(&attrOpts.StartLine, "start-line", 0, "selector: start line")
	f.IntVar(&attrOpts.EndLine, "end-line", 0, "selector: end line")
	f.StringSliceVar(&attrOpts.Keywords, "keyword", nil, "keyword to store (repeatable)")
	f.StringVar(&attrOpts.Description, "description", "", "description to store")
	attrCmd.AddCommand(attrSetCmd)
	rootCmd.AddCommand(attrCmd)
}
