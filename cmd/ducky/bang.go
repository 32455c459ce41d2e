package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joss/ducky/internal/app"
)

// bangCmd provides commands for browsing the bang dataset
func bangCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bang",
		Short: "Browse bangs and set the default bang",
	}

	cmd.AddCommand(
		bangListCmd(),
		bangShowCmd(),
		bangSearchCmd(),
		bangDefaultCmd(),
	)
	return cmd
}

func bangListCmd() *cobra.Command {
	cmd := newCommand(CommandConfig{
		Use:     "ls",
		Short:   "List bangs",
		Aliases: []string{"list"},
		Args:    cobra.NoArgs,
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			list := a.Engine.Bangs().List()
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}
			if jsonOut {
				return printJSON(list)
			}
			fmt.Print(renderer().Bangs(list))
			return nil
		},
	})
	cmd.Flags().IntP("limit", "n", 0, "Show at most n bangs (0 = all)")
	return cmd
}

func bangShowCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:   "show <token>",
		Short: "Show one bang",
		Args:  cobra.ExactArgs(1),
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			token := strings.ToLower(strings.TrimPrefix(args[0], "!"))
			b, ok := a.Engine.Bangs().Get(token)
			if !ok {
				return fmt.Errorf("unknown bang !%s", token)
			}
			if jsonOut {
				return printJSON(b)
			}
			fmt.Printf("Token:    !%s\n", b.Token)
			fmt.Printf("Name:     %s\n", b.ShortLabel)
			fmt.Printf("Domain:   %s\n", b.Domain)
			fmt.Printf("Template: %s\n", b.URLTemplate)
			return nil
		},
	})
}

func bangSearchCmd() *cobra.Command {
	cmd := newCommand(CommandConfig{
		Use:   "search <term>",
		Short: "Fuzzy search bang tokens and names",
		Args:  cobra.MinimumNArgs(1),
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			found := a.Engine.Bangs().Search(joinArgs(args), limit)
			if jsonOut {
				return printJSON(found)
			}
			fmt.Print(renderer().Bangs(found))
			if len(found) == 0 {
				fmt.Println()
			}
			return nil
		},
	})
	cmd.Flags().IntP("limit", "n", 10, "Maximum results")
	return cmd
}

func bangDefaultCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:   "default [token]",
		Short: "Show or set the default bang",
		Args:  cobra.MaximumNArgs(1),
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				token := strings.ToLower(strings.TrimPrefix(args[0], "!"))
				if err := a.Redirect.SetDefaultBang(ctx, token); err != nil {
					return err
				}
				fmt.Printf("Default bang set to !%s\n", token)
				return nil
			}
			b := a.Redirect.DefaultBang(ctx, "")
			if jsonOut {
				return printJSON(b)
			}
			if b.IsZero() {
				fmt.Println("No usable default bang")
				return nil
			}
			fmt.Printf("!%s (%s)\n", b.Token, b.ShortLabel)
			return nil
		},
	})
}
