package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kcosr/symgrep/internal/engine"
)

type indexFlags struct {
	Backend   string
	IndexPath string
	Watch     bool
}

var indexOpts indexFlags

var indexCmd = &cobra.Command{
	Use:   "index [PATH...]",
	Short: "Build or refresh the symbol index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := engine.IndexConfig{
			Paths:        args,
			Globs:        global.Globs,
			ExcludeGlobs: global.ExcludeGlobs,
			Language:     global.Language,
			Backend:      indexOpts.Backend,
			IndexPath:    indexOpts.IndexPath,
		}
		eng := engine.New(slog.Default())
		if indexOpts.Watch {
			return eng.Watch(cmd.Context(), cfg)
		}
		summary, err := eng.Index(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if global.JSON {
			return writeJSON(os.Stdout, summary)
		}
		return renderIndexText(os.Stdout, summary)
	},
}

func init() {
	f := indexCmd.Flags()
	f.StringVar(&indexOpts.Backend, "backend", "sqlite", "index backend: sqlite or file")
	f.StringVar(&indexOpts.IndexPath, "index-path", "", "index location (default <root>/.symgrep/index.sqlite for sqlite, <root>/.symgrep for file)")
	f.BoolVar(&indexOpts.Watch, "watch", false, "keep running and reindex on file changes")
	rootCmd.AddCommand(indexCmd)
}
