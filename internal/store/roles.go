package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"actas/internal/rbac"
	"actas/internal/services"
)

const roleColumns = "id, name, permissions_json, builtin"

// RoleRecord is a stored role plus its bookkeeping flags.
type RoleRecord struct {
	rbac.Role
	Builtin bool `json:"builtin"`
}

// CreateRole inserts a new role. A missing id is generated.
func (s *Store) CreateRole(ctx context.Context, role *rbac.Role) (*RoleRecord, error) {
	if role == nil {
		return nil, errors.New("role is nil")
	}
	if strings.TrimSpace(role.Name) == "" {
		return nil, errors.New("role name required")
	}
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	permissions, err := marshalStrings(role.Permissions.Names(), "permissions")
	if err != nil {
		return nil, err
	}
	if permissions == nil {
		permissions = "[]"
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO roles (id, name, permissions_json, builtin, created_at, updated_at)
         VALUES (?, ?, ?, 0, ?, ?)`,
		role.ID,
		role.Name,
		permissions,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert role: %w", err)
	}
	return s.GetRole(ctx, role.ID)
}

// GetRole fetches a role by id. Returns (nil, nil) when absent.
func (s *Store) GetRole(ctx context.Context, id string) (*RoleRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	role, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// ListRoles returns all roles ordered by name.
func (s *Store) ListRoles(ctx context.Context) ([]RoleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []RoleRecord
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

// Roles returns the plain rbac view of every stored role, for capability
// resolution.
func (s *Store) Roles(ctx context.Context) ([]rbac.Role, error) {
	records, err := s.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	roles := make([]rbac.Role, len(records))
	for i, record := range records {
		roles[i] = record.Role
	}
	return roles, nil
}

// UpdateRole persists changes to an existing role.
func (s *Store) UpdateRole(ctx context.Context, role *rbac.Role) error {
	if role == nil {
		return errors.New("role is nil")
	}
	permissions, err := marshalStrings(role.Permissions.Names(), "permissions")
	if err != nil {
		return err
	}
	if permissions == nil {
		permissions = "[]"
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE roles SET name = ?, permissions_json = ?, updated_at = ? WHERE id = ?`,
		role.Name,
		permissions,
		time.Now().UTC().Format(time.RFC3339Nano),
		role.ID,
	)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteRole removes a role by id. The delete is refused while any user
// still holds the role.
func (s *Store) DeleteRole(ctx context.Context, id string) (bool, error) {
	count, err := s.countUsersWithRole(ctx, id)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, services.Wrap(services.ErrConflict, "store", "delete role",
			fmt.Sprintf("role is assigned to %d user(s)", count), nil)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// countUsersWithRole walks user role lists in Go; role assignments are small
// JSON arrays and the user table is short-lived administrative data.
func (s *Store) countUsersWithRole(ctx context.Context, roleID string) (int, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range users {
		if users[i].HasRole(roleID) {
			count++
		}
	}
	return count, nil
}

func scanRole(scanner interface{ Scan(dest ...any) error }) (*RoleRecord, error) {
	var (
		id              string
		name            string
		permissionsJSON string
		builtin         int
	)
	if err := scanner.Scan(&id, &name, &permissionsJSON, &builtin); err != nil {
		return nil, err
	}
	record := &RoleRecord{
		Role:    rbac.Role{ID: id, Name: name},
		Builtin: builtin != 0,
	}
	var names []string
	if permissionsJSON != "" {
		if err := json.Unmarshal([]byte(permissionsJSON), &names); err != nil {
			return nil, fmt.Errorf("unmarshal permissions: %w", err)
		}
	}
	for _, permName := range names {
		perm, ok := rbac.ParsePermission(permName)
		if !ok {
			// Unknown names are dropped rather than failing the read;
			// they can appear after a downgrade.
			continue
		}
		record.Permissions |= rbac.Capabilities(perm)
	}
	return record, nil
}
