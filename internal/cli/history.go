// SPDX-License-Identifier: MIT

package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/1001011000101101/lers-plugins-sub000/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past batch runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent batch runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		limit, _ := cmd.Flags().GetInt("limit")
		records, err := store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "no batch runs recorded")
			return nil
		}
		for _, rec := range records {
			fmt.Fprintf(out, "%s  %-14s  %-30s  ok %d / fail %d / skip %d  %s\n",
				rec.FinishedAt.Local().Format("2006-01-02 15:04"),
				rec.State, rec.Template, rec.Succeeded, rec.Failed, rec.Skipped, rec.BatchID)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <batch-id>",
	Short: "Print the full summary of one batch run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		summary, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if summary == nil {
			return fmt.Errorf("batch %s not found", args[0])
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

var historyCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove batch runs older than the given age",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		maxAge, _ := cmd.Flags().GetDuration("max-age")
		deleted, err := store.Cleanup(cmd.Context(), maxAge)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d batch runs\n", deleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyCleanupCmd)

	historyListCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	historyCleanupCmd.Flags().Duration("max-age", 90*24*time.Hour, "Runs older than this are removed")
}

func openHistory(cmd *cobra.Command) (*history.SQLiteStore, error) {
	path, _ := cmd.Flags().GetString("history")
	if path == "" {
		return nil, fmt.Errorf("a history database path is required (use --history)")
	}
	return history.NewSQLiteStore(path)
}
