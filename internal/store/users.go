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
)

const userColumns = "id, name, email, role_ids_json, national_id, title, institution"

// CreateUser inserts a new user. A missing id is generated.
func (s *Store) CreateUser(ctx context.Context, user *rbac.User) (*rbac.User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	if strings.TrimSpace(user.Name) == "" {
		return nil, errors.New("user name required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return nil, errors.New("user email required")
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	roleIDs, err := marshalStrings(user.RoleIDs, "role ids")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO users (id, name, email, role_ids_json, national_id, title, institution, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		roleIDs,
		nullableString(user.NationalID),
		nullableString(user.Title),
		nullableString(user.Institution),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(ctx, user.ID)
}

// GetUser fetches a user by id. Returns (nil, nil) when absent.
func (s *Store) GetUser(ctx context.Context, id string) (*rbac.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail fetches a user by email. Returns (nil, nil) when absent.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*rbac.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email))
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]rbac.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []rbac.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateUser persists changes to an existing user.
func (s *Store) UpdateUser(ctx context.Context, user *rbac.User) error {
	if user == nil {
		return errors.New("user is nil")
	}
	roleIDs, err := marshalStrings(user.RoleIDs, "role ids")
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE users
         SET name = ?, email = ?, role_ids_json = ?, national_id = ?, title = ?, institution = ?, updated_at = ?
         WHERE id = ?`,
		user.Name,
		user.Email,
		roleIDs,
		nullableString(user.NationalID),
		nullableString(user.Title),
		nullableString(user.Institution),
		time.Now().UTC().Format(time.RFC3339Nano),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
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

// DeleteUser removes a user by id, reporting whether it existed.
func (s *Store) DeleteUser(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func marshalStrings(values []string, label string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", label, err)
	}
	return string(data), nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*rbac.User, error) {
	var (
		id          string
		name        string
		email       string
		roleIDsJSON sql.NullString
		nationalID  sql.NullString
		title       sql.NullString
		institution sql.NullString
	)
	if err := scanner.Scan(&id, &name, &email, &roleIDsJSON, &nationalID, &title, &institution); err != nil {
		return nil, err
	}
	user := &rbac.User{
		ID:          id,
		Name:        name,
		Email:       email,
		NationalID:  nationalID.String,
		Title:       title.String,
		Institution: institution.String,
	}
	if roleIDsJSON.Valid && roleIDsJSON.String != "" {
		if err := json.Unmarshal([]byte(roleIDsJSON.String), &user.RoleIDs); err != nil {
			return nil, fmt.Errorf("unmarshal role ids: %w", err)
		}
	}
	return user, nil
}
