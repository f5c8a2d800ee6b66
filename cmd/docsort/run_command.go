package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docsort/internal/daemon"
	"docsort/internal/logging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the intake directory and sort files until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewForPaths(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}
			if err := d.Start(cmd.Context()); err != nil {
				return err
			}

			<-cmd.Context().Done()
			d.Stop()
			return nil
		},
	}
}
