package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"actas/internal/audit"
	"actas/internal/document"
	"actas/internal/store"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var documentID string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit log, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				var entries []audit.Entry
				var err error
				if documentID != "" {
					entries, err = st.ListAuditEntriesForDocument(cctx, documentID)
				} else {
					entries, err = st.ListAuditEntries(cctx, limit)
				}
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entries)
				}
				rows := make([]table.Row, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, table.Row{
						formatTime(entry.CreatedAt),
						statusLabel(entry.Action),
						entry.ActorName,
						shortID(entry.DocumentID),
						entry.Detail,
					})
				}
				renderTable(cmd.OutOrStdout(), table.Row{"When", "Action", "Actor", "Document", "Detail"}, rows)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show, 0 for everything")
	cmd.Flags().StringVar(&documentID, "document", "", "Only entries for this document id")
	return cmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				stats, err := st.DocumentStats(cctx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				total := 0
				for _, status := range document.AllStatuses() {
					count := stats[status]
					total += count
					fmt.Fprintf(out, "  %-20s %d\n", colorStatus(out, status), count)
				}
				fmt.Fprintf(out, "  %-20s %d\n", "Total", total)
				return nil
			})
		},
	}
}
