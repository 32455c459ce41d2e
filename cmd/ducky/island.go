package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joss/ducky/internal/app"
	"github.com/joss/ducky/internal/domain"
	"github.com/joss/ducky/internal/island"
)

// islandCmd provides commands for managing bang suffix prompts
func islandCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "island",
		Short: "Manage islands (bang suffix prompts)",
		Long: `An island is a short suffix on a bang that prepends a prompt to the query.
With island "a", "!gha what is a goroutine" searches !gh for the prompt
followed by the query.`,
	}

	cmd.AddCommand(
		islandListCmd(),
		islandAddCmd(),
		islandEditCmd(),
		islandRemoveCmd(),
		islandShowCmd(),
	)
	return cmd
}

func islandListCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:     "ls",
		Short:   "List islands",
		Aliases: []string{"list"},
		Args:    cobra.NoArgs,
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			t, err := a.Islands.Load(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(t)
			}
			fmt.Print(renderer().Islands(t.List()))
			if t.Len() == 0 {
				fmt.Println()
			}
			return nil
		},
	})
}

// warnConflicts reports bang tokens that key would shadow as island splits.
func warnConflicts(a *app.App, key string) {
	shadowed := island.Conflicts(key, a.Engine.Bangs())
	if len(shadowed) == 0 {
		return
	}
	shown := shadowed
	if len(shown) > 5 {
		shown = shown[:5]
	}
	fmt.Fprintf(os.Stderr, "Warning: island %q overlaps %d bang(s) ending in %q: !%s",
		key, len(shadowed), key, strings.Join(shown, " !"))
	if len(shadowed) > len(shown) {
		fmt.Fprint(os.Stderr, " ...")
	}
	fmt.Fprintln(os.Stderr)
}

func islandAddCmd() *cobra.Command {
	cmd := newCommand(CommandConfig{
		Use:   "add <key> <name>",
		Short: "Add or replace an island",
		Args:  cobra.ExactArgs(2),
		Example: `  ducky island add e "Explain Like I'm Five" --prompt "Explain simply: "`,
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			prompt, _ := cmd.Flags().GetString("prompt")
			is := domain.Island{Key: strings.ToLower(args[0]), Name: args[1], Prompt: prompt}
			if err := a.Islands.Add(ctx, is); err != nil {
				return err
			}
			warnConflicts(a, is.Key)
			fmt.Printf("Added island %q (%s)\n", is.Key, is.Name)
			return nil
		},
	})
	cmd.Flags().StringP("prompt", "p", "", "Text prepended to the query")
	return cmd
}

func islandEditCmd() *cobra.Command {
	cmd := newCommand(CommandConfig{
		Use:   "edit <key>",
		Short: "Change an island's key, name or prompt",
		Args:  cobra.ExactArgs(1),
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			is, err := a.Islands.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("key") {
				is.Key, _ = cmd.Flags().GetString("key")
				is.Key = strings.ToLower(is.Key)
			}
			if cmd.Flags().Changed("name") {
				is.Name, _ = cmd.Flags().GetString("name")
			}
			if cmd.Flags().Changed("prompt") {
				is.Prompt, _ = cmd.Flags().GetString("prompt")
			}
			if err := a.Islands.Update(ctx, args[0], is); err != nil {
				return err
			}
			if is.Key != args[0] {
				warnConflicts(a, is.Key)
			}
			fmt.Printf("Updated island %q\n", is.Key)
			return nil
		},
	})
	cmd.Flags().String("key", "", "New key")
	cmd.Flags().String("name", "", "New name")
	cmd.Flags().StringP("prompt", "p", "", "New prompt")
	return cmd
}

func islandRemoveCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:     "rm <key>",
		Short:   "Remove an island",
		Aliases: []string{"remove"},
		Args:    cobra.ExactArgs(1),
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			removed, err := a.Islands.Remove(ctx, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("island %q not found", args[0])
			}
			fmt.Printf("Removed island %q\n", args[0])
			return nil
		},
	})
}

func islandShowCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:   "show <key>",
		Short: "Show an island",
		Args:  cobra.ExactArgs(1),
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			is, err := a.Islands.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(is)
			}
			fmt.Printf("Key:    %s\n", is.Key)
			fmt.Printf("Name:   %s\n", is.Name)
			fmt.Printf("Prompt:\n%s\n", is.Prompt)
			return nil
		},
	})
}
