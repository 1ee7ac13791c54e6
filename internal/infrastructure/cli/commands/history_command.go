package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zeittresor/csforge/internal/app"
	"github.com/zeittresor/csforge/internal/domain"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past builds",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistorySearchCommand(container),
		newHistoryClearCommand(container),
		newHistoryExportCommand(container),
	)

	return historyCmd
}

func newHistoryListCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listBuildRecords(cmd.OutOrStdout(), container, limit, "")
		},
	}

	cmd.Flags().IntVar(&limit, "limit", domain.DefaultHistoryLimit, "Max entries to show")
	return cmd
}

func newHistorySearchCommand(container *app.Container) *cobra.Command {
	var query string
	var limit int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search builds by source or output path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" {
				return fmt.Errorf(ErrQueryRequired)
			}
			return listBuildRecords(cmd.OutOrStdout(), container, limit, query)
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Search keyword")
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultHistoryLimit, "Limit search results")
	return cmd
}

func newHistoryClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear build history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.HistoryStore == nil {
				return fmt.Errorf(ErrHistoryStoreUnavailable)
			}
			return container.HistoryStore.Clear()
		},
	}
}

func newHistoryExportCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export build history to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.HistoryStore == nil {
				return fmt.Errorf(ErrHistoryStoreUnavailable)
			}
			return container.HistoryStore.ExportJSON(args[0])
		},
	}
}

func listBuildRecords(out io.Writer, container *app.Container, limit int, search string) error {
	if container.HistoryStore == nil {
		return fmt.Errorf(ErrHistoryStoreUnavailable)
	}
	records, err := container.HistoryStore.Records(limit, search)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}
	for _, rec := range records {
		displayBuildRecord(out, rec)
	}
	return nil
}

func displayBuildRecord(out io.Writer, rec domain.BuildRecord) {
	marker := "-"
	if rec.Outcome == domain.OutcomeSuccess {
		marker = "+"
	}
	fmt.Fprintf(out, "%s %s  %-8s %-16s %s\n",
		marker,
		rec.Timestamp.Format(domain.TimestampFormat),
		rec.Backend,
		rec.Outcome,
		rec.Source)
	if rec.FellBack {
		fmt.Fprintf(out, "    fell back after %d attempts\n", rec.Attempts)
	}
}
