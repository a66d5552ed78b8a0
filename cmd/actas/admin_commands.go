package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"actas/internal/audit"
	"actas/internal/rbac"
	"actas/internal/store"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	userCmd.AddCommand(newUserListCommand(ctx))
	userCmd.AddCommand(newUserAddCommand(ctx))
	userCmd.AddCommand(newUserRemoveCommand(ctx))

	return userCmd
}

func newUserListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users and their roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				users, err := st.ListUsers(cctx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, users)
				}
				roleNames, err := roleNameIndex(cctx, st)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(users))
				for i := range users {
					user := &users[i]
					names := make([]string, 0, len(user.RoleIDs))
					for _, id := range user.RoleIDs {
						if name, ok := roleNames[id]; ok {
							names = append(names, name)
						} else {
							names = append(names, id)
						}
					}
					rows = append(rows, table.Row{shortID(user.ID), user.Name, user.Email, strings.Join(names, ", ")})
				}
				renderTable(cmd.OutOrStdout(), table.Row{"ID", "Name", "Email", "Roles"}, rows)
				return nil
			})
		},
	}
}

func roleNameIndex(ctx context.Context, st *store.Store) (map[string]string, error) {
	records, err := st.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(records))
	for _, record := range records {
		names[record.ID] = record.Name
	}
	return names, nil
}

func newUserAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var email string
	var roleIDs []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
					return fmt.Errorf("--name and --email are required")
				}
				user, err := st.CreateUser(cctx, &rbac.User{
					Name:    name,
					Email:   email,
					RoleIDs: roleIDs,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, user)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Name, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringSliceVar(&roleIDs, "role", nil, "Role id to assign (repeatable)")
	return cmd
}

func newUserRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				removed, err := st.DeleteUser(cctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no user with id %q", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), "User removed")
				return nil
			})
		},
	}
}

func newRoleCommand(ctx *commandContext) *cobra.Command {
	roleCmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles and their permissions",
	}

	roleCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				records, err := st.ListRoles(cctx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, records)
				}
				rows := make([]table.Row, 0, len(records))
				for _, record := range records {
					labels := make([]string, 0, 4)
					for _, name := range record.Permissions.Names() {
						labels = append(labels, statusLabel(name))
					}
					rows = append(rows, table.Row{
						record.ID,
						record.Name,
						yesNo(record.Builtin),
						strings.Join(labels, ", "),
					})
				}
				renderTable(cmd.OutOrStdout(), table.Row{"ID", "Name", "Builtin", "Permissions"}, rows)
				return nil
			})
		},
	})

	roleCmd.AddCommand(newRoleAddCommand(ctx))
	roleCmd.AddCommand(newRoleRemoveCommand(ctx))

	return roleCmd
}

func newRoleAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var permissions []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a custom role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				if strings.TrimSpace(name) == "" {
					return fmt.Errorf("--name is required")
				}
				var caps rbac.Capabilities
				for _, raw := range permissions {
					perm, ok := rbac.ParsePermission(raw)
					if !ok {
						return fmt.Errorf("unknown permission %q (see `actas role list` for known names)", raw)
					}
					caps |= rbac.Capabilities(perm)
				}
				record, err := st.CreateRole(cctx, &rbac.Role{Name: name, Permissions: caps})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, record)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created role %s (%s)\n", record.Name, record.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Role name")
	cmd.Flags().StringSliceVar(&permissions, "permission", nil, "Permission name to grant (repeatable)")
	return cmd
}

func newRoleRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a role; refused while any user still holds it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				removed, err := st.DeleteRole(cctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no role with id %q", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Role removed")
				return nil
			})
		},
	}
}

func newTemplateCommand(ctx *commandContext) *cobra.Command {
	templateCmd := &cobra.Command{
		Use:   "template",
		Short: "Inspect document templates",
	}

	templateCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				templates, err := st.ListTemplates(cctx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, templates)
				}
				rows := make([]table.Row, 0, len(templates))
				for i := range templates {
					tmpl := &templates[i]
					rows = append(rows, table.Row{
						tmpl.ID,
						tmpl.Name,
						len(tmpl.Segments),
						yesNo(tmpl.Builtin),
					})
				}
				renderTable(cmd.OutOrStdout(), table.Row{"ID", "Name", "Segments", "Builtin"}, rows)
				return nil
			})
		},
	})

	templateCmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a template and its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				tmpl, err := st.GetTemplate(cctx, args[0])
				if err != nil {
					return err
				}
				if tmpl == nil {
					return fmt.Errorf("no template with id %q", args[0])
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, tmpl)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n", tmpl.Name, tmpl.ID)
				if tmpl.Description != "" {
					fmt.Fprintf(out, "  %s\n", tmpl.Description)
				}
				for _, segment := range tmpl.Segments {
					fmt.Fprintf(out, "  %-24s %s\n", segment.ID, segment.Type)
				}
				return nil
			})
		},
	})

	templateCmd.AddCommand(newTemplateRemoveCommand(ctx))

	return templateCmd
}

func newTemplateRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a custom template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				removed, err := st.DeleteTemplate(cctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no template with id %q", args[0])
				}
				audit.NewRecorder(st, nil).Record(cctx, actor, audit.ActionTemplateDeleted, "", args[0])
				fmt.Fprintln(cmd.OutOrStdout(), "Template removed")
				return nil
			})
		},
	}
}
