package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joss/ducky/internal/app"
)

// cacheCmd provides commands for inspecting and resetting caches
func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage caches",
		Long: `The result and duckling caches live in memory inside one process; a running
server reports them on /metrics. The super cache persists query -> URL
redirects across runs, keyed by the default bang, and is off unless enabled.`,
	}

	cmd.AddCommand(
		cacheStatsCmd(),
		cacheClearCmd(),
		cacheToggleCmd("enable", true),
		cacheToggleCmd("disable", false),
	)
	return cmd
}

func cacheStatsCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:   "stats",
		Short: "Show super cache state and entries",
		Args:  cobra.NoArgs,
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			on := a.Super.Enabled(ctx)
			entries := a.Super.Entries(ctx)
			ttl := a.Config.SuperCacheTTLDuration()
			if jsonOut {
				return printJSON(map[string]any{
					"enabled": on,
					"ttl":     ttl.String(),
					"entries": entries,
				})
			}
			fmt.Print(renderer().SuperCache(on, entries, ttl, time.Now()))
			return nil
		},
	})
}

func cacheClearCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:   "clear",
		Short: "Clear all caches",
		Args:  cobra.NoArgs,
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			a.Engine.Invalidate()
			if err := a.Super.Clear(ctx); err != nil {
				return err
			}
			fmt.Println("Caches cleared")
			return nil
		},
	})
}

func cacheToggleCmd(name string, on bool) *cobra.Command {
	return newCommand(CommandConfig{
		Use:   name,
		Short: fmt.Sprintf("%s the super cache", map[bool]string{true: "Enable", false: "Disable"}[on]),
		Args:  cobra.NoArgs,
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			if err := a.Super.SetEnabled(ctx, on); err != nil {
				return err
			}
			fmt.Printf("Super cache %sd\n", name)
			return nil
		},
	})
}
