package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docsort/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sorting outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled in the configuration")
			}

			journal, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history journal: %w", err)
			}
			defer journal.Close()

			entries, err := journal.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No history recorded yet.")
				return nil
			}

			colorize := stdoutIsTerminal()
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.CreatedAt.Local().Format(time.DateTime),
					entry.FileName,
					entry.Category,
					fmt.Sprintf("%.2f", entry.Score),
					colorizeAction(entry.Action, colorize),
					entry.Detail,
				})
			}

			fmt.Println(renderTable(
				[]string{"WHEN", "FILE", "CATEGORY", "SCORE", "ACTION", "DETAIL"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	return cmd
}
