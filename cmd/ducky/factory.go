package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joss/ducky/internal/app"
)

// CommandFunc defines the function signature for command execution.
type CommandFunc func(cmd *cobra.Command, args []string) error

// AppFunc runs a command against the opened services.
type AppFunc func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error

// CommandConfig holds configuration for creating standardized commands.
type CommandConfig struct {
	Use     string
	Short   string
	Long    string
	Args    cobra.PositionalArgs
	Example string
	Aliases []string
	RunFunc CommandFunc
	RunApp  AppFunc
}

func baseCommand(cfg CommandConfig) *cobra.Command {
	return &cobra.Command{
		Use:     cfg.Use,
		Short:   cfg.Short,
		Long:    cfg.Long,
		Args:    cfg.Args,
		Example: cfg.Example,
		Aliases: cfg.Aliases,
	}
}

// newCommand creates a command that needs the rule store. The services are
// opened before RunApp and closed after it.
func newCommand(cfg CommandConfig) *cobra.Command {
	cmd := baseCommand(cfg)
	cmd.Run = func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := openApp(ctx)
		if err != nil {
			exitOnError(err)
			return
		}
		err = cfg.RunApp(ctx, a, cmd, args)
		if closeErr := a.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			exitOnError(err)
		}
	}
	return cmd
}

// newSimpleCommand creates a command without store requirement.
func newSimpleCommand(cfg CommandConfig) *cobra.Command {
	cmd := baseCommand(cfg)
	cmd.Run = func(cmd *cobra.Command, args []string) {
		if err := cfg.RunFunc(cmd, args); err != nil {
			exitOnError(err)
		}
	}
	return cmd
}
