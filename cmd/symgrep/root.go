package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	Globs        []string
	ExcludeGlobs []string
	Language     string
	JSON         bool
	Hidden       bool
	NoIgnore     bool
	Verbose      bool
	ConfigFile   string
}

var global globalFlags

var rootCmd = &cobra.Command{
	Use:   "symgrep",
	Short: "Code-aware search for source trees",
	Long: `symgrep blends grep-style text scanning with AST-derived symbol
queries across multiple languages and returns versioned, machine-readable
result documents.

EXAMPLES:
    # Text search
    symgrep search "connection pool" src/

    # Symbol search with the fielded query DSL
    symgrep search "name:add kind:function" --view decl
    symgrep search "kind:function|method language:typescript"

    # Build and use an index
    symgrep index .
    symgrep search "keyword:auth" --use-index

    # Explore the call graph
    symgrep follow "name:main" --direction callees`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringSliceVarP(&global.Globs, "glob", "g", nil, "include glob (doublestar syntax, repeatable)")
	pf.StringSliceVar(&global.ExcludeGlobs, "exclude", nil, "exclude glob (repeatable)")
	pf.StringVarP(&global.Language, "language", "l", "", "restrict to one language")
	pf.BoolVar(&global.JSON, "json", false, "emit JSON documents")
	pf.BoolVar(&global.Hidden, "hidden", false, "include hidden files and directories")
	pf.BoolVar(&global.NoIgnore, "no-ignore", false, "disable .gitignore handling")
	pf.BoolVarP(&global.Verbose, "verbose", "v", false, "verbose diagnostics")
	pf.StringVar(&global.ConfigFile, "config", "", "config file (default .symgrep.yaml)")
}

// initConfig wires viper: explicit config file, .symgrep.yaml in the
// working directory, and SYMGREP_* environment overrides.
func initConfig(cmd *cobra.Command) error {
	if global.ConfigFile != "" {
		viper.SetConfigFile(global.ConfigFile)
	} else {
		viper.SetConfigName(".symgrep")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}
	viper.SetEnvPrefix("SYMGREP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}

	// Flags not set explicitly pick up config/env values.
	bindFromViper(cmd)

	level := slog.LevelWarn
	if global.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func bindFromViper(cmd *cobra.Command) {
	pf := cmd.Root().PersistentFlags()
	for _, key := range []string{"language", "json", "hidden", "no-ignore"} {
		if !pf.Changed(key) && viper.IsSet(key) {
			_ = pf.Set(key, viper.GetString(key))
		}
	}
}
