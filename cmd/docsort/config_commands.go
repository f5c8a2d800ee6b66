package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"docsort/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}
			if err := config.WriteSample(target); err != nil {
				return err
			}
			fmt.Printf("Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetPath, "path", "", "Destination for the sample config")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Printf("# %s\n", ctx.configPath)
			encoder := toml.NewEncoder(os.Stdout)
			encoder.SetIndentTables(true)
			return encoder.Encode(cfg)
		},
	}
}

func newConfigValidateCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration file for problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, resolved, exists, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !exists {
				fmt.Printf("No config file at %s; defaults are valid.\n", resolved)
				return nil
			}
			fmt.Printf("Configuration at %s is valid.\n", resolved)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "path", "", "Configuration file to validate")
	return cmd
}
