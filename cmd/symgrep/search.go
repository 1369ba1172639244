package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kcosr/symgrep/internal/engine"
)

type searchFlags struct {
	Mode            string
	Views           []string
	Literal         bool
	Limit           int
	MaxLines        int
	ContextLines    int
	UseIndex        bool
	IndexPath       string
	ReindexOnSearch bool
}

var searchOpts searchFlags

var searchCmd = &cobra.Command{
	Use:   "search PATTERN [PATH...]",
	Short: "Search files and symbols with the fielded query DSL",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := engine.SearchConfig{
			Pattern:      args[0],
			Paths:        args[1:],
			Globs:        global.Globs,
			ExcludeGlobs: global.ExcludeGlobs,
			Language:     global.Language,
			Mode:         engine.Mode(searchOpts.Mode),
			Literal:      searchOpts.Literal,
			UseIndex:     searchOpts.UseIndex,
			IndexPath:    searchOpts.IndexPath,
			ReindexOnSearch: searchOpts.ReindexOnSearch,
			ContextLines: searchOpts.ContextLines,
			Hidden:       global.Hidden,
			NoIgnore:     global.NoIgnore,
		}
		views, err := engine.ParseViews(searchOpts.Views)
		if err != nil {
			return err
		}
		cfg.Views = views
		if cmd.Flags().Changed("limit") {
			limit := searchOpts.Limit
			cfg.Limit = &limit
		}
		if cmd.Flags().Changed("max-lines") {
			maxLines := searchOpts.MaxLines
			cfg.MaxLines = &maxLines
		}

		eng := engine.New(slog.Default())
		result, err := eng.Search(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if global.JSON {
			return writeJSON(os.Stdout, result)
		}
		return renderSearchText(os.Stdout, result, searchOpts.ContextLines)
	},
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchOpts.Mode, "mode", "m", "auto", "search mode: text, symbol, or auto")
	f.StringSliceVar(&searchOpts.Views, "view", nil, "views to materialize: meta,decl,def,parent,comment,matches")
	f.BoolVarP(&searchOpts.Literal, "literal", "w", false, "whole-identifier matching for name and content")
	f.IntVar(&searchOpts.Limit, "limit", 0, "stop after N matches")
	f.IntVar(&searchOpts.MaxLines, "max-lines", -1, "cap text-mode snippets (0 removes them)")
	f.IntVarP(&searchOpts.ContextLines, "context", "C", 0, "context lines in text rendering")
	f.BoolVar(&searchOpts.UseIndex, "use-index", false, "consult an existing index")
	f.StringVar(&searchOpts.IndexPath, "index-path", "", "explicit index location")
	f.BoolVar(&searchOpts.ReindexOnSearch, "reindex", false, "refresh the index before searching")
	rootCmd.AddCommand(searchCmd)
}
