// Package main provides the ducky CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joss/ducky/internal/config"
	"github.com/joss/ducky/internal/logging"
	"github.com/joss/ducky/internal/render"
)

var (
	version  = "0.1.0"
	pretty   = true
	jsonOut  bool
	verbose  bool
	cfg      config.Config
	paths    *config.Paths
	logger   = zap.NewNop()
	closeLog = func() error { return nil }
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ducky",
		Short: "Ducky - bang, duckling and island query resolution",
		Long: `Ducky turns a search query into a destination URL.

Usage modes:
  ducky resolve <query>   Show where a query goes
  ducky serve             Run the redirect server for your browser
  ducky <command>         Manage ducklings, islands, bangs and caches

Queries:
  !gh cobra       bang (also "cobra gh!")
  !gha cobra      bang with island "a"
  ducky           duckling keyword
  \ducky          escaped, skips ducklings and searches the default`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = closeLog()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", true, "Pretty print output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warn")

	rootCmd.AddGroup(
		&cobra.Group{ID: "query", Title: "Queries:"},
		&cobra.Group{ID: "rules", Title: "Rules:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	for _, c := range []*cobra.Command{resolveCmd(), serveCmd(), recentCmd()} {
		c.GroupID = "query"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{ducklingCmd(), islandCmd(), bangCmd()} {
		c.GroupID = "rules"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{cacheCmd(), configCmd(), versionCmd()} {
		c.GroupID = "system"
		rootCmd.AddCommand(c)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and the logger for every command.
func setup(cmd *cobra.Command) error {
	env := config.Env()
	paths = config.GetPaths()

	loaded, err := config.LoadOrCreate(paths.ConfigFile)
	if err != nil {
		return err
	}
	loaded.ApplyEnv(env)
	cfg = loaded

	if !render.IsTerminal(os.Stdout) {
		pretty = pretty && cmd.Flags().Changed("pretty")
	}

	level := cfg.Log.Level
	if !verbose && env.LogLevel == "" && cmd.Name() != "serve" {
		level = "warn"
	}
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = paths.LogFile
	}

	l, closeFn, err := logging.New(logging.Options{
		Level:      level,
		File:       logFile,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		SessionID:  env.SessionID,
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	logger = l.With(zap.String("command", cmd.CommandPath()))
	closeLog = closeFn
	return nil
}

func versionCmd() *cobra.Command {
	return newSimpleCommand(CommandConfig{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunFunc: func(cmd *cobra.Command, args []string) error {
			if jsonOut {
				return printJSON(map[string]string{"version": version})
			}
			fmt.Printf("ducky %s\n", version)
			return nil
		},
	})
}
