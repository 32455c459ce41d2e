package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joss/ducky/internal/app"
	"github.com/joss/ducky/internal/redirect"
)

func resolveCmd() *cobra.Command {
	cmd := newCommand(CommandConfig{
		Use:   "resolve <query...>",
		Short: "Show where a query redirects",
		Long: `Resolve a query exactly as the redirect server would and print the result.

The query is recorded as the last search, so "ducky resolve !!" repeats it.`,
		Example: `  ducky resolve '!gh cobra'
  ducky resolve ducky
  ducky resolve --default-bang w golang`,
		Args:    cobra.MinimumNArgs(1),
		Aliases: []string{"r"},
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			override, _ := cmd.Flags().GetString("default-bang")
			urlOnly, _ := cmd.Flags().GetBool("url")

			d := a.Redirect.Decide(ctx, joinArgs(args), override)
			if d.Action == redirect.ActionRepeat {
				d = a.Redirect.Decide(ctx, d.Query, override)
			}

			switch {
			case jsonOut:
				return printJSON(d)
			case urlOnly:
				if d.URL == "" {
					return fmt.Errorf("no destination for %q", strings.Join(args, " "))
				}
				fmt.Println(d.URL)
			default:
				fmt.Print(renderer().Decision(d))
			}
			return nil
		},
	})
	cmd.Flags().String("default-bang", "", "Use this default bang for this query only")
	cmd.Flags().Bool("url", false, "Print only the destination URL")
	return cmd
}

func recentCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:   "recent",
		Short: "List recently used bangs",
		Args:  cobra.NoArgs,
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			tokens, err := a.Recent.List(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(tokens)
			}
			fmt.Print(renderer().Recent(tokens))
			if len(tokens) == 0 {
				fmt.Println()
			}
			return nil
		},
	})
}
