package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joss/ducky/internal/config"
)

// configCmd provides commands for reading and writing config.toml
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit configuration",
	}

	cmd.AddCommand(
		configShowCmd(),
		configGetCmd(),
		configSetCmd(),
		configPathCmd(),
	)
	return cmd
}

func configShowCmd() *cobra.Command {
	return newSimpleCommand(CommandConfig{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunFunc: func(cmd *cobra.Command, args []string) error {
			if jsonOut {
				return printJSON(cfg)
			}
			for _, key := range config.Keys() {
				v, _ := cfg.Get(key)
				fmt.Printf("%-24s %s\n", key, v)
			}
			return nil
		},
	})
}

func configGetCmd() *cobra.Command {
	return newSimpleCommand(CommandConfig{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunFunc: func(cmd *cobra.Command, args []string) error {
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	})
}

func configSetCmd() *cobra.Command {
	return newSimpleCommand(CommandConfig{
		Use:   "set <key> <value>",
		Short: "Set a configuration value in config.toml",
		Args:  cobra.ExactArgs(2),
		RunFunc: func(cmd *cobra.Command, args []string) error {
			// Reload so environment overrides are not written back.
			fileCfg, err := config.LoadOrCreate(paths.ConfigFile)
			if err != nil {
				return err
			}
			if err := fileCfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(paths.ConfigFile, fileCfg); err != nil {
				return err
			}
			v, _ := fileCfg.Get(args[0])
			fmt.Printf("%s = %s\n", args[0], v)
			return nil
		},
	})
}

func configPathCmd() *cobra.Command {
	return newSimpleCommand(CommandConfig{
		Use:   "path",
		Short: "Show ducky file locations",
		Args:  cobra.NoArgs,
		RunFunc: func(cmd *cobra.Command, args []string) error {
			if jsonOut {
				return printJSON(paths)
			}
			fmt.Printf("Home:   %s\n", paths.Home)
			fmt.Printf("Config: %s\n", paths.ConfigFile)
			fmt.Printf("Data:   %s\n", paths.Data)
			fmt.Printf("Bangs:  %s\n", paths.Bangs)
			fmt.Printf("Log:    %s\n", paths.LogFile)
			return nil
		},
	})
}
