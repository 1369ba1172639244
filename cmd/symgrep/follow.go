package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kcosr/symgrep/internal/engine"
	"github.com/kcosr/symgrep/internal/follow"
	"github.com/kcosr/symgrep/internal/model"
)

type followFlags struct {
	Direction string
	Literal   bool
	Limit     int
}

var followOpts followFlags

var followCmd = &cobra.Command{
	Use:   "follow PATTERN [PATH...]",
	Short: "Show caller/callee neighborhoods for matched symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := follow.Config{
			Pattern:      args[0],
			Direction:    model.FollowDirection(followOpts.Direction),
			Paths:        args[1:],
			Globs:        global.Globs,
			ExcludeGlobs: global.ExcludeGlobs,
			Language:     global.Language,
			Literal:      followOpts.Literal,
			Hidden:       global.Hidden,
			NoIgnore:     global.NoIgnore,
		}
		if cmd.Flags().Changed("limit") {
			limit := followOpts.Limit
			cfg.Limit = &limit
		}
		eng := engine.New(slog.Default())
		result, err := follow.Run(cmd.Context(), eng, cfg)
		if err != nil {
			return err
		}
		if global.JSON {
			return writeJSON(os.Stdout, result)
		}
		return renderFollowText(os.Stdout, result)
	},
}

func init() {
	f := followCmd.Flags()
	f.StringVarP(&followOpts.Direction, "direction", "d", "both", "callers, callees, or both")
	f.BoolVarP(&followOpts.Literal, "literal", "w", false, "whole-identifier matching")
	f.IntVar(&followOpts.Limit, "limit", 0, "cap the number of targets")
	rootCmd.AddCommand(followCmd)
}
