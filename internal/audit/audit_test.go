package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"actas/internal/audit"
	"actas/internal/rbac"
)

type memorySink struct {
	entries []audit.Entry
	err     error
}

func (s *memorySink) AppendAuditEntry(_ context.Context, entry audit.Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestRecorderRecordsActorActions(t *testing.T) {
	sink := &memorySink{}
	when := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	recorder := audit.NewRecorder(sink, nil).WithClock(func() time.Time { return when })

	actor := &rbac.User{ID: "u1", Name: "Ana Torres"}
	recorder.Record(context.Background(), actor, audit.ActionDocumentApproved, "doc-1", "version 2")

	if len(sink.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry.ID == "" {
		t.Fatal("entry id empty")
	}
	if entry.Action != audit.ActionDocumentApproved {
		t.Fatalf("action = %q", entry.Action)
	}
	if entry.ActorID != "u1" || entry.ActorName != "Ana Torres" {
		t.Fatalf("actor = %q/%q", entry.ActorID, entry.ActorName)
	}
	if entry.DocumentID != "doc-1" || entry.Detail != "version 2" {
		t.Fatalf("payload = %q/%q", entry.DocumentID, entry.Detail)
	}
	if !entry.CreatedAt.Equal(when) {
		t.Fatalf("created at = %v", entry.CreatedAt)
	}
}

func TestRecorderSkipsAnonymousActions(t *testing.T) {
	sink := &memorySink{}
	recorder := audit.NewRecorder(sink, nil)

	recorder.Record(context.Background(), nil, audit.ActionDocumentCreated, "doc-1", "")
	var missing *rbac.User
	recorder.Record(context.Background(), missing, audit.ActionDocumentCreated, "doc-1", "")
	recorder.Record(context.Background(), &rbac.User{Name: "No ID"}, audit.ActionDocumentCreated, "doc-1", "")

	if len(sink.entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(sink.entries))
	}
}

func TestRecorderSwallowsSinkErrors(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	recorder := audit.NewRecorder(sink, nil)
	// Must not panic or propagate.
	recorder.Record(context.Background(), &rbac.User{ID: "u1"}, audit.ActionUserCreated, "", "")
}
