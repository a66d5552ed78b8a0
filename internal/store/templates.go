package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"actas/internal/services"
	"actas/internal/template"
)

const templateColumns = "id, name, description, segments_json, builtin"

// CreateTemplate inserts a new template after validating it.
func (s *Store) CreateTemplate(ctx context.Context, tmpl *template.Template) (*template.Template, error) {
	if tmpl == nil {
		return nil, errors.New("template is nil")
	}
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if err := tmpl.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "create template", err.Error(), nil)
	}
	segments, err := json.Marshal(tmpl.Segments)
	if err != nil {
		return nil, fmt.Errorf("marshal segments: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO templates (id, name, description, segments_json, builtin, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tmpl.ID,
		tmpl.Name,
		nullableString(tmpl.Description),
		string(segments),
		boolToInt(tmpl.Builtin),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	return s.GetTemplate(ctx, tmpl.ID)
}

// GetTemplate fetches a template by id. Returns (nil, nil) when absent.
func (s *Store) GetTemplate(ctx context.Context, id string) (*template.Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	tmpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return tmpl, nil
}

// ListTemplates returns all templates ordered by name.
func (s *Store) ListTemplates(ctx context.Context) ([]template.Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []template.Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tmpl)
	}
	return templates, rows.Err()
}

// UpdateTemplate persists changes to an existing template.
func (s *Store) UpdateTemplate(ctx context.Context, tmpl *template.Template) error {
	if tmpl == nil {
		return errors.New("template is nil")
	}
	if err := tmpl.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "store", "update template", err.Error(), nil)
	}
	segments, err := json.Marshal(tmpl.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE templates SET name = ?, description = ?, segments_json = ?, updated_at = ? WHERE id = ?`,
		tmpl.Name,
		nullableString(tmpl.Description),
		string(segments),
		time.Now().UTC().Format(time.RFC3339Nano),
		tmpl.ID,
	)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
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

// DeleteTemplate removes a template by id. Builtin templates are refused.
func (s *Store) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	tmpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return false, err
	}
	if tmpl == nil {
		return false, nil
	}
	if tmpl.Builtin {
		return false, services.Wrap(services.ErrConflict, "store", "delete template", "builtin templates cannot be deleted", nil)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func scanTemplate(scanner interface{ Scan(dest ...any) error }) (*template.Template, error) {
	var (
		id           string
		name         string
		description  sql.NullString
		segmentsJSON string
		builtin      int
	)
	if err := scanner.Scan(&id, &name, &description, &segmentsJSON, &builtin); err != nil {
		return nil, err
	}
	tmpl := &template.Template{
		ID:          id,
		Name:        name,
		Description: description.String,
		Builtin:     builtin != 0,
	}
	if segmentsJSON != "" {
		if err := json.Unmarshal([]byte(segmentsJSON), &tmpl.Segments); err != nil {
			return nil, fmt.Errorf("unmarshal segments: %w", err)
		}
	}
	return tmpl, nil
}
