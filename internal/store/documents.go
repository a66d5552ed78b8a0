package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"actas/internal/document"
)

const documentColumns = "id, title, meeting_date, session_type, template_id, status, version, sections_json, tags_json, created_by, created_at, updated_at, designated_approvers_json, approvals_json, rejection_reason, visibility, allowed_users_json, wizard_data"

// CreateDocument inserts a new document. A missing id is generated; version
// starts at 1 and status defaults to draft.
func (s *Store) CreateDocument(ctx context.Context, doc *document.Document) (*document.Document, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Status == "" {
		doc.Status = document.StatusDraft
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	sections, tags, approvers, approvals, allowed, err := encodeDocumentJSON(doc)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO documents (
            id, title, meeting_date, session_type, template_id, status, version,
            sections_json, tags_json, created_by, created_at, updated_at,
            designated_approvers_json, approvals_json, rejection_reason,
            visibility, allowed_users_json, wizard_data
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.Title,
		nullableString(doc.MeetingDate),
		nullableString(doc.SessionType),
		nullableString(doc.TemplateID),
		doc.Status,
		doc.Version,
		sections,
		tags,
		doc.CreatedBy,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		approvers,
		approvals,
		nullableString(doc.RejectionReason),
		nullableString(string(doc.Visibility)),
		allowed,
		nullableString(doc.WizardData),
	)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return s.GetDocument(ctx, doc.ID)
}

// GetDocument fetches a document by id. Returns (nil, nil) when absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// UpdateDocument persists changes to an existing document.
func (s *Store) UpdateDocument(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	doc.UpdatedAt = time.Now().UTC()

	sections, tags, approvers, approvals, allowed, err := encodeDocumentJSON(doc)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE documents
         SET title = ?, meeting_date = ?, session_type = ?, template_id = ?,
             status = ?, version = ?, sections_json = ?, tags_json = ?,
             updated_at = ?, designated_approvers_json = ?, approvals_json = ?,
             rejection_reason = ?, visibility = ?, allowed_users_json = ?,
             wizard_data = ?
         WHERE id = ?`,
		doc.Title,
		nullableString(doc.MeetingDate),
		nullableString(doc.SessionType),
		nullableString(doc.TemplateID),
		doc.Status,
		doc.Version,
		sections,
		tags,
		doc.UpdatedAt.Format(time.RFC3339Nano),
		approvers,
		approvals,
		nullableString(doc.RejectionReason),
		nullableString(string(doc.Visibility)),
		allowed,
		nullableString(doc.WizardData),
		doc.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
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

// ListDocuments returns documents filtered by status set (or all documents
// when no status is provided), newest first.
func (s *Store) ListDocuments(ctx context.Context, statuses ...document.Status) ([]document.Document, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + documentColumns + ` FROM documents`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// ListDocumentsPendingApprovalBy returns documents awaiting the given
// approver's sign-off, newest first.
func (s *Store) ListDocumentsPendingApprovalBy(ctx context.Context, userID string) ([]document.Document, error) {
	pending, err := s.ListDocuments(ctx, document.StatusPendingApproval)
	if err != nil {
		return nil, err
	}
	out := make([]document.Document, 0, len(pending))
	for _, doc := range pending {
		if !doc.IsDesignatedApprover(userID) {
			continue
		}
		if _, signed := doc.ApprovalBy(userID); signed {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

// DeleteDocument removes a document by id, reporting whether it existed.
func (s *Store) DeleteDocument(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DocumentStats returns a count of documents grouped by status.
func (s *Store) DocumentStats(ctx context.Context) (map[document.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("document stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[document.Status]int)
	for rows.Next() {
		var status document.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func encodeDocumentJSON(doc *document.Document) (sections, tags, approvers, approvals, allowed any, err error) {
	marshal := func(v any, label string) (any, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", label, err)
		}
		return string(data), nil
	}
	if len(doc.Sections) > 0 {
		if sections, err = marshal(doc.Sections, "sections"); err != nil {
			return nil, nil, nil, nil, nil, err
		}
	}
	if len(doc.Tags) > 0 {
		if tags, err = marshal(doc.Tags, "tags"); err != nil {
			return nil, nil, nil, nil, nil, err
		}
	}
	if len(doc.DesignatedApproverIDs) > 0 {
		if approvers, err = marshal(doc.DesignatedApproverIDs, "designated approvers"); err != nil {
			return nil, nil, nil, nil, nil, err
		}
	}
	if len(doc.Approvals) > 0 {
		if approvals, err = marshal(doc.Approvals, "approvals"); err != nil {
			return nil, nil, nil, nil, nil, err
		}
	}
	if len(doc.AllowedUserIDs) > 0 {
		if allowed, err = marshal(doc.AllowedUserIDs, "allowed users"); err != nil {
			return nil, nil, nil, nil, nil, err
		}
	}
	return sections, tags, approvers, approvals, allowed, nil
}

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*document.Document, error) {
	var (
		id              string
		title           string
		meetingDate     sql.NullString
		sessionType     sql.NullString
		templateID      sql.NullString
		statusStr       string
		version         int
		sectionsJSON    sql.NullString
		tagsJSON        sql.NullString
		createdBy       string
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		approversJSON   sql.NullString
		approvalsJSON   sql.NullString
		rejectionReason sql.NullString
		visibility      sql.NullString
		allowedJSON     sql.NullString
		wizardData      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&meetingDate,
		&sessionType,
		&templateID,
		&statusStr,
		&version,
		&sectionsJSON,
		&tagsJSON,
		&createdBy,
		&createdRaw,
		&updatedRaw,
		&approversJSON,
		&approvalsJSON,
		&rejectionReason,
		&visibility,
		&allowedJSON,
		&wizardData,
	); err != nil {
		return nil, err
	}

	doc := &document.Document{
		ID:              id,
		Title:           title,
		MeetingDate:     meetingDate.String,
		SessionType:     sessionType.String,
		TemplateID:      templateID.String,
		Status:          document.Status(statusStr),
		Version:         version,
		CreatedBy:       createdBy,
		RejectionReason: rejectionReason.String,
		Visibility:      document.Visibility(visibility.String),
		WizardData:      wizardData.String,
	}
	if sectionsJSON.Valid && sectionsJSON.String != "" {
		if err := json.Unmarshal([]byte(sectionsJSON.String), &doc.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections: %w", err)
		}
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &doc.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if approversJSON.Valid && approversJSON.String != "" {
		if err := json.Unmarshal([]byte(approversJSON.String), &doc.DesignatedApproverIDs); err != nil {
			return nil, fmt.Errorf("unmarshal designated approvers: %w", err)
		}
	}
	if approvalsJSON.Valid && approvalsJSON.String != "" {
		if err := json.Unmarshal([]byte(approvalsJSON.String), &doc.Approvals); err != nil {
			return nil, fmt.Errorf("unmarshal approvals: %w", err)
		}
	}
	if allowedJSON.Valid && allowedJSON.String != "" {
		if err := json.Unmarshal([]byte(allowedJSON.String), &doc.AllowedUserIDs); err != nil {
			return nil, fmt.Errorf("unmarshal allowed users: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		doc.UpdatedAt = updated
	}
	return doc, nil
}
