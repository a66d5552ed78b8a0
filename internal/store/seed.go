package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"actas/internal/rbac"
	"actas/internal/template"
)

// Builtin role ids are stable so installations can reference them in
// provisioning scripts.
const (
	RoleIDAdministrator = "role-administrator"
	RoleIDEditor        = "role-editor"
	RoleIDApprover      = "role-approver"
	RoleIDReader        = "role-reader"
)

func builtinRoles() []rbac.Role {
	all := rbac.Capabilities(0)
	for _, perm := range rbac.AllPermissions() {
		all |= rbac.Capabilities(perm)
	}
	return []rbac.Role{
		{ID: RoleIDAdministrator, Name: "Administrator", Permissions: all},
		{ID: RoleIDEditor, Name: "Editor", Permissions: rbac.Capabilities(
			rbac.PermViewRepository | rbac.PermViewAllDocuments | rbac.PermCreateDocuments | rbac.PermEditDocuments)},
		{ID: RoleIDApprover, Name: "Approver", Permissions: rbac.Capabilities(
			rbac.PermViewRepository | rbac.PermViewAllDocuments | rbac.PermApproveDocuments)},
		{ID: RoleIDReader, Name: "Reader", Permissions: rbac.Capabilities(
			rbac.PermViewRepository | rbac.PermViewPublishedDocuments)},
	}
}

// seed inserts the builtin roles and templates when they are absent.
// Existing rows are left untouched so operator edits survive restarts.
func (s *Store) seed(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	for _, role := range builtinRoles() {
		permissions, err := json.Marshal(role.Permissions.Names())
		if err != nil {
			return fmt.Errorf("marshal builtin role permissions: %w", err)
		}
		_, err = s.db.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO roles (id, name, permissions_json, builtin, created_at, updated_at)
             VALUES (?, ?, ?, 1, ?, ?)`,
			role.ID,
			role.Name,
			string(permissions),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", role.ID, err)
		}
	}

	templates, err := template.Builtin()
	if err != nil {
		return err
	}
	for _, tmpl := range templates {
		segments, err := json.Marshal(tmpl.Segments)
		if err != nil {
			return fmt.Errorf("marshal builtin template segments: %w", err)
		}
		_, err = s.db.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO templates (id, name, description, segments_json, builtin, created_at, updated_at)
             VALUES (?, ?, ?, ?, 1, ?, ?)`,
			tmpl.ID,
			tmpl.Name,
			nullableString(tmpl.Description),
			string(segments),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("seed template %s: %w", tmpl.ID, err)
		}
	}
	return nil
}
