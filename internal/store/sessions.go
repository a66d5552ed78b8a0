package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveWizardSession stores the serialized wizard state for a document,
// replacing any previous snapshot under the same document id.
func (s *Store) SaveWizardSession(ctx context.Context, documentID, userID, stateJSON string) error {
	if documentID == "" {
		return errors.New("document id required")
	}
	if userID == "" {
		return errors.New("user id required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO wizard_sessions (document_id, user_id, state_json, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(document_id) DO UPDATE SET user_id = excluded.user_id,
             state_json = excluded.state_json, updated_at = excluded.updated_at`,
		documentID,
		userID,
		stateJSON,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save wizard session: %w", err)
	}
	return nil
}

// GetWizardSession returns the wizard state a user stored for a document,
// or ("", false, nil) when there is none.
func (s *Store) GetWizardSession(ctx context.Context, userID, documentID string) (string, bool, error) {
	var stateJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM wizard_sessions WHERE document_id = ? AND user_id = ?`,
		documentID, userID).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get wizard session: %w", err)
	}
	return stateJSON, true, nil
}

// ListWizardSessions returns every wizard state a user has stored, most
// recently saved first.
func (s *Store) ListWizardSessions(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state_json FROM wizard_sessions WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wizard sessions: %w", err)
	}
	defer rows.Close()

	var states []string
	for rows.Next() {
		var stateJSON string
		if err := rows.Scan(&stateJSON); err != nil {
			return nil, fmt.Errorf("scan wizard session: %w", err)
		}
		states = append(states, stateJSON)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wizard sessions: %w", err)
	}
	return states, nil
}

// DeleteWizardSession removes a user's stored wizard state for a document,
// reporting whether one existed.
func (s *Store) DeleteWizardSession(ctx context.Context, userID, documentID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM wizard_sessions WHERE document_id = ? AND user_id = ?`, documentID, userID)
	if err != nil {
		return false, fmt.Errorf("delete wizard session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
