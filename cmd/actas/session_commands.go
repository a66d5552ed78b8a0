package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"actas/internal/session"
	"actas/internal/store"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect saved authoring wizard progress",
	}

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the saved wizard sessions for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				snaps, err := session.NewManager(st).List(cctx, actor.ID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, snaps)
				}
				if len(snaps) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No saved sessions for %s\n", actor.Name)
					return nil
				}
				rows := make([]table.Row, 0, len(snaps))
				for _, snap := range snaps {
					rows = append(rows, table.Row{
						shortID(snap.DocumentID),
						snap.Step,
						snap.Title,
						snap.AudioFileName,
						formatTime(snap.SavedAt),
					})
				}
				renderTable(cmd.OutOrStdout(), table.Row{"Document", "Step", "Title", "Recording", "Saved"}, rows)
				return nil
			})
		},
	})

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "clear <document-id>",
		Short: "Discard the saved wizard session for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				removed, err := session.NewManager(st).Clear(cctx, actor.ID, args[0])
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintln(cmd.OutOrStdout(), "Session cleared")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No saved session")
				}
				return nil
			})
		},
	})

	return sessionCmd
}
