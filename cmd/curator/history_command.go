package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/history"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect organized file history",
	}

	historyCmd.AddCommand(newHistoryListCommand(cmdCtx))
	historyCmd.AddCommand(newHistoryClearCommand(cmdCtx))

	return historyCmd
}

func newHistoryListCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List retired items, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			archive, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history archive: %w", err)
			}
			defer archive.Close()

			records, err := archive.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "History is empty.")
				return nil
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					record.OriginalName,
					record.FinalName,
					record.FinalFolder,
					string(record.Action),
					record.RetiredAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Original", "Final Name", "Final Folder", "Action", "Retired"},
				rows,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many records (0 = all)")
	return cmd
}

func newHistoryClearCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all history records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			archive, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history archive: %w", err)
			}
			defer archive.Close()

			count, err := archive.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count history: %w", err)
			}
			if err := archive.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d history records\n", count)
			return nil
		},
	}
}
