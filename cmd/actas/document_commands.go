package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"actas/internal/audit"
	"actas/internal/document"
	"actas/internal/store"
)

func newDocumentCommand(ctx *commandContext) *cobra.Command {
	documentCmd := &cobra.Command{
		Use:     "document",
		Aliases: []string{"doc"},
		Short:   "Inspect and move documents through their lifecycle",
	}

	documentCmd.AddCommand(newDocumentListCommand(ctx))
	documentCmd.AddCommand(newDocumentShowCommand(ctx))
	documentCmd.AddCommand(newDocumentCreateCommand(ctx))
	documentCmd.AddCommand(newDocumentSubmitCommand(ctx))
	documentCmd.AddCommand(newDocumentApproveCommand(ctx))
	documentCmd.AddCommand(newDocumentRejectCommand(ctx))
	documentCmd.AddCommand(newDocumentPublishCommand(ctx))
	documentCmd.AddCommand(newDocumentDeleteCommand(ctx))
	documentCmd.AddCommand(newDocumentPendingCommand(ctx))

	return documentCmd
}

func newDocumentListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				var statuses []document.Status
				if statusFlag != "" {
					status, err := document.ParseStatus(statusFlag)
					if err != nil {
						return err
					}
					statuses = append(statuses, status)
				}
				docs, err := st.ListDocuments(cctx, statuses...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, docs)
				}
				out := cmd.OutOrStdout()
				rows := make([]table.Row, 0, len(docs))
				for i := range docs {
					doc := &docs[i]
					rows = append(rows, table.Row{
						shortID(doc.ID),
						doc.Title,
						colorStatus(out, doc.Status),
						"v" + strconv.Itoa(doc.Version),
						formatTime(doc.CreatedAt),
					})
				}
				renderTable(out, table.Row{"ID", "Title", "Status", "Version", "Created"}, rows)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show documents with this status")
	return cmd
}

func newDocumentShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one document with its sections and approvals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				doc, err := st.GetDocument(cctx, args[0])
				if err != nil {
					return err
				}
				if doc == nil {
					return fmt.Errorf("no document with id %q", args[0])
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, doc)
				}
				printDocument(cmd, doc)
				return nil
			})
		},
	}
}

func printDocument(cmd *cobra.Command, doc *document.Document) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", doc.Title)
	fmt.Fprintf(out, "  ID:       %s\n", doc.ID)
	fmt.Fprintf(out, "  Status:   %s (v%d)\n", colorStatus(out, doc.Status), doc.Version)
	if doc.MeetingDate != "" {
		fmt.Fprintf(out, "  Meeting:  %s\n", doc.MeetingDate)
	}
	fmt.Fprintf(out, "  Created:  %s by %s\n", formatTime(doc.CreatedAt), doc.CreatedBy)
	if doc.Status == document.StatusRejected && doc.RejectionReason != "" {
		fmt.Fprintf(out, "  Rejected: %s\n", doc.RejectionReason)
	}
	if len(doc.DesignatedApproverIDs) > 0 {
		fmt.Fprintf(out, "  Approvals: %d of %d\n", len(doc.Approvals), len(doc.DesignatedApproverIDs))
		for _, approval := range doc.Approvals {
			fmt.Fprintf(out, "    %s at %s\n", approval.UserName, formatTime(approval.ApprovedAt))
		}
	}
	if doc.Status == document.StatusPublished {
		visibility := string(doc.Visibility)
		if doc.Visibility == document.VisibilitySpecific {
			visibility = fmt.Sprintf("%s (%d users)", visibility, len(doc.AllowedUserIDs))
		}
		fmt.Fprintf(out, "  Visibility: %s\n", visibility)
	}
	for _, section := range doc.Sections {
		fmt.Fprintf(out, "\n== %s ==\n%s\n", section.Title, section.Content)
	}
}

func newDocumentCreateCommand(ctx *commandContext) *cobra.Command {
	var title string
	var meetingDate string
	var sessionType string
	var tags []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft document without the authoring wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				if strings.TrimSpace(title) == "" {
					return fmt.Errorf("--title is required")
				}
				doc, err := st.CreateDocument(cctx, &document.Document{
					Title:       title,
					MeetingDate: meetingDate,
					SessionType: sessionType,
					Tags:        tags,
					CreatedBy:   actor.ID,
				})
				if err != nil {
					return err
				}
				audit.NewRecorder(st, nil).Record(cctx, actor, audit.ActionDocumentCreated, doc.ID, "created via cli")
				if ctx.jsonOutput() {
					return writeJSON(cmd, doc)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created draft %s (%s)\n", doc.ID, doc.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&meetingDate, "date", "", "Meeting date, e.g. 2026-08-30")
	cmd.Flags().StringVar(&sessionType, "session-type", "", "Meeting session type")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to attach (repeatable)")
	return cmd
}

func newDocumentSubmitCommand(ctx *commandContext) *cobra.Command {
	var approvers []string

	cmd := &cobra.Command{
		Use:   "submit <id>",
		Short: "Send a draft or rejected document into approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				doc, err := ctx.lifecycle(st).Submit(cctx, actor, args[0], approvers)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, doc)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s for approval by %d user(s)\n",
					doc.Title, len(doc.DesignatedApproverIDs))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&approvers, "approver", nil, "User id that must approve (repeatable)")
	return cmd
}

func newDocumentApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Record your approval on a pending document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				result, err := ctx.lifecycle(st).Approve(cctx, actor, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				switch {
				case result.AlreadyApproved:
					fmt.Fprintf(out, "%s was already approved by you\n", result.Document.Title)
				case result.FullyApproved:
					fmt.Fprintf(out, "%s is now fully approved (v%d)\n", result.Document.Title, result.Document.Version)
				default:
					fmt.Fprintf(out, "Approval recorded; %d of %d collected\n",
						len(result.Document.Approvals), len(result.Document.DesignatedApproverIDs))
				}
				return nil
			})
		},
	}
}

func newDocumentRejectCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Return a pending document to its author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				doc, err := ctx.lifecycle(st).Reject(cctx, actor, args[0], reason)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, doc)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rejected %s (now v%d)\n", doc.Title, doc.Version)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the document is being rejected")
	return cmd
}

func newDocumentPublishCommand(ctx *commandContext) *cobra.Command {
	var visibility string
	var allowed []string

	cmd := &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish an approved document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				doc, err := ctx.lifecycle(st).Publish(cctx, actor, args[0], document.Visibility(visibility), allowed)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, doc)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published %s with %s visibility\n", doc.Title, doc.Visibility)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&visibility, "visibility", "private", "public, private, or specific")
	cmd.Flags().StringSliceVar(&allowed, "allow", nil, "User id allowed to read (repeatable, specific visibility only)")
	return cmd
}

func newDocumentDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				doc, err := st.GetDocument(cctx, args[0])
				if err != nil {
					return err
				}
				if doc == nil {
					return fmt.Errorf("no document with id %q", args[0])
				}
				if _, err := st.DeleteDocument(cctx, doc.ID); err != nil {
					return err
				}
				audit.NewRecorder(st, nil).Record(cctx, actor, audit.ActionDocumentDeleted, doc.ID, doc.Title)
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", doc.Title)
				return nil
			})
		},
	}
}

func newDocumentPendingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List documents waiting for your approval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				docs, err := st.ListDocumentsPendingApprovalBy(cctx, actor.ID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, docs)
				}
				out := cmd.OutOrStdout()
				if len(docs) == 0 {
					fmt.Fprintln(out, "Nothing waiting for your approval")
					return nil
				}
				rows := make([]table.Row, 0, len(docs))
				for i := range docs {
					doc := &docs[i]
					rows = append(rows, table.Row{
						shortID(doc.ID),
						doc.Title,
						fmt.Sprintf("%d/%d", len(doc.Approvals), len(doc.DesignatedApproverIDs)),
						formatTime(doc.UpdatedAt),
					})
				}
				renderTable(out, table.Row{"ID", "Title", "Approvals", "Updated"}, rows)
				return nil
			})
		},
	}
}
