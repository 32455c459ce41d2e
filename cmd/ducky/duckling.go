package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joss/ducky/internal/app"
	"github.com/joss/ducky/internal/domain"
	"github.com/joss/ducky/internal/duckling"
)

// ducklingCmd provides commands for managing keyword shortcuts
func ducklingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "duckling",
		Short:   "Manage ducklings (keyword shortcuts)",
		Aliases: []string{"dl"},
		Long: `A duckling maps a keyword to a bang and a target value.

  ducky duckling add ducky ghr shalevari/ducky
  ducky duckling add news raw https://news.ycombinator.com
  ducky duckling add docs none`,
	}

	cmd.AddCommand(
		ducklingListCmd(),
		ducklingAddCmd(),
		ducklingRemoveCmd(),
		ducklingShowCmd(),
		ducklingImportCmd(),
		ducklingExportCmd(),
	)
	return cmd
}

func ducklingListCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:     "ls",
		Short:   "List ducklings",
		Aliases: []string{"list"},
		Args:    cobra.NoArgs,
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			list, err := a.Ducklings.Load(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(list)
			}
			fmt.Print(renderer().Ducklings(list))
			if len(list) == 0 {
				fmt.Println()
			}
			return nil
		},
	})
}

func ducklingAddCmd() *cobra.Command {
	cmd := newCommand(CommandConfig{
		Use:   "add <pattern> <bang|raw|none> [target...]",
		Short: "Add or replace a duckling",
		Long: `Add a duckling. The target defaults to the pattern itself.
An existing duckling with the same pattern is replaced.`,
		Args: cobra.MinimumNArgs(2),
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			desc, _ := cmd.Flags().GetString("description")
			d := domain.Duckling{
				Pattern:     args[0],
				BangCommand: strings.TrimPrefix(strings.ToLower(args[1]), "!"),
				TargetValue: joinArgs(args[2:]),
				Description: desc,
			}
			if d.TargetValue == "" {
				d.TargetValue = d.Pattern
			}
			if d.Kind() == domain.DucklingBang && !a.Engine.Bangs().Has(d.BangCommand) {
				fmt.Fprintf(os.Stderr, "Warning: unknown bang !%s, the default bang will be used\n", d.BangCommand)
			}
			if err := a.Ducklings.Add(ctx, d); err != nil {
				return err
			}
			fmt.Printf("Added duckling %q -> !%s %s\n", d.Pattern, d.BangCommand, d.TargetValue)
			return nil
		},
	})
	cmd.Flags().StringP("description", "d", "", "Description")
	return cmd
}

func ducklingRemoveCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:     "rm <pattern>",
		Short:   "Remove a duckling",
		Aliases: []string{"remove"},
		Args:    cobra.ExactArgs(1),
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			removed, err := a.Ducklings.Remove(ctx, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("duckling %q not found", args[0])
			}
			fmt.Printf("Removed duckling %q\n", args[0])
			return nil
		},
	})
}

func ducklingShowCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:   "show <pattern>",
		Short: "Show a duckling and how its pattern matches",
		Args:  cobra.ExactArgs(1),
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			d, err := a.Ducklings.Get(ctx, args[0])
			if err != nil {
				return err
			}
			m := a.Engine.MatchDuckling(d.Pattern)
			if jsonOut {
				return printJSON(map[string]any{"duckling": d, "match": m})
			}
			fmt.Printf("Pattern:     %s\n", d.Pattern)
			fmt.Printf("Bang:        %s\n", d.BangCommand)
			fmt.Printf("Target:      %s\n", d.TargetValue)
			if d.Description != "" {
				fmt.Printf("Description: %s\n", d.Description)
			}
			if m != nil {
				fmt.Printf("Matches as:  !%s %s\n", m.BangCommand, m.RemainingQuery)
			} else {
				fmt.Println("Matches as:  (shadowed by another duckling)")
			}
			return nil
		},
	})
}

func ducklingImportCmd() *cobra.Command {
	cmd := newCommand(CommandConfig{
		Use:   "import <file|->",
		Short: "Import ducklings from a YAML document",
		Args:  cobra.ExactArgs(1),
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			replace, _ := cmd.Flags().GetBool("replace")

			var r io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			list, err := duckling.Import(r)
			if err != nil {
				return err
			}
			if err := a.Ducklings.Merge(ctx, list, replace); err != nil {
				return err
			}
			fmt.Printf("Imported %d duckling(s)\n", len(list))
			return nil
		},
	})
	cmd.Flags().Bool("replace", false, "Replace all ducklings instead of merging")
	return cmd
}

func ducklingExportCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:   "export [file]",
		Short: "Export ducklings as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			list, err := a.Ducklings.Load(ctx)
			if err != nil {
				return err
			}
			if len(args) == 0 || args[0] == "-" {
				return duckling.Export(os.Stdout, list)
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := duckling.Export(f, list); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Exported %d duckling(s) to %s\n", len(list), args[0])
			return nil
		},
	})
}
