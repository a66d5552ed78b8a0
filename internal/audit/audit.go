package audit

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"actas/internal/logging"
)

// Entry is one immutable audit record.
type Entry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	DocumentID string    `json:"document_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Actions recorded across the document lifecycle and administration.
const (
	ActionDocumentCreated   = "document_created"
	ActionDocumentUpdated   = "document_updated"
	ActionDocumentSubmitted = "document_submitted"
	ActionDocumentApproved  = "document_approved"
	ActionDocumentRejected  = "document_rejected"
	ActionDocumentPublished = "document_published"
	ActionDocumentDeleted   = "document_deleted"
	ActionUserCreated       = "user_created"
	ActionUserUpdated       = "user_updated"
	ActionUserDeleted       = "user_deleted"
	ActionRoleCreated       = "role_created"
	ActionRoleUpdated       = "role_updated"
	ActionRoleDeleted       = "role_deleted"
	ActionTemplateCreated   = "template_created"
	ActionTemplateUpdated   = "template_updated"
	ActionTemplateDeleted   = "template_deleted"
	ActionSessionResumed    = "session_resumed"
	ActionSessionDiscarded  = "session_discarded"
)

// Sink persists audit entries. The SQLite store implements it.
type Sink interface {
	AppendAuditEntry(ctx context.Context, entry Entry) error
}

// Actor identifies who performed an action. Satisfied by rbac.User.
type Actor interface {
	ActorID() string
	ActorName() string
}

// Recorder writes audit entries for actions performed by a known actor.
// Actions without an actor are silently skipped; the trail records people,
// not the system talking to itself.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder builds a recorder over the given sink. A nil logger disables
// failure logging.
func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{
		sink:   sink,
		logger: logging.WithComponent(logger, "audit"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the recorder's time source. Test hook.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	if now != nil {
		r.now = now
	}
	return r
}

// Record appends one entry. It is a no-op when actor is nil or has no id,
// and it never fails the caller's operation: sink errors are logged and
// swallowed.
func (r *Recorder) Record(ctx context.Context, actor Actor, action, documentID, detail string) {
	if r == nil || r.sink == nil || actor == nil {
		return
	}
	actorID := strings.TrimSpace(actor.ActorID())
	if actorID == "" {
		return
	}
	entry := Entry{
		ID:         uuid.NewString(),
		Action:     action,
		ActorID:    actorID,
		ActorName:  actor.ActorName(),
		DocumentID: documentID,
		Detail:     detail,
		CreatedAt:  r.now(),
	}
	if err := r.sink.AppendAuditEntry(ctx, entry); err != nil {
		r.logger.Warn("audit append failed",
			slog.String("action", action),
			slog.String("actor", actorID),
			slog.String("error", err.Error()))
	}
}
