package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"actas/internal/audit"
)

const auditColumns = "id, action, actor_id, actor_name, document_id, detail, created_at"

// AppendAuditEntry persists one audit record. Implements audit.Sink.
func (s *Store) AppendAuditEntry(ctx context.Context, entry audit.Entry) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO audit_log (id, action, actor_id, actor_name, document_id, detail, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Action,
		entry.ActorID,
		nullableString(entry.ActorName),
		nullableString(entry.DocumentID),
		nullableString(entry.Detail),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListAuditEntries returns audit records, most recent first. A limit of zero
// or less returns everything.
func (s *Store) ListAuditEntries(ctx context.Context, limit int) ([]audit.Entry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log ORDER BY created_at DESC, id DESC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

// ListAuditEntriesForDocument returns the audit trail of one document, most
// recent first.
func (s *Store) ListAuditEntriesForDocument(ctx context.Context, documentID string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+auditColumns+` FROM audit_log WHERE document_id = ? ORDER BY created_at DESC, id DESC`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list document audit entries: %w", err)
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

func collectAuditEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var (
			entry      audit.Entry
			actorName  sql.NullString
			documentID sql.NullString
			detail     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.ActorID, &actorName, &documentID, &detail, &createdRaw); err != nil {
			return nil, err
		}
		entry.ActorName = actorName.String
		entry.DocumentID = documentID.String
		entry.Detail = detail.String
		if created, err := parseTimeString(createdRaw); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
