package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"actas/internal/audit"
	"actas/internal/document"
	"actas/internal/logging"
	"actas/internal/rbac"
	"actas/internal/services"
	"actas/internal/store"
)

// Manager drives documents through draft, approval, rejection and
// publication. Every successful transition writes exactly one audit entry.
type Manager struct {
	store    *store.Store
	recorder *audit.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager wires the lifecycle over the store and audit recorder.
func NewManager(st *store.Store, recorder *audit.Recorder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		store:    st,
		recorder: recorder,
		logger:   logging.WithComponent(logger, "lifecycle"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the manager's time source. Test hook.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// ApproveResult reports what an approval call did.
type ApproveResult struct {
	Document *document.Document
	// AlreadyApproved is set when the actor had signed this version before;
	// nothing changed and no audit entry was written.
	AlreadyApproved bool
	// FullyApproved is set when this approval completed the designated set
	// and moved the document to approved.
	FullyApproved bool
}

// Submit moves a draft or rejected document into pending approval. The
// approver list replaces any previous designation and prior approvals are
// discarded. Resubmission after a rejection bumps the version.
func (m *Manager) Submit(ctx context.Context, actor *rbac.User, documentID string, approverIDs []string) (*document.Document, error) {
	doc, err := m.mustGet(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != document.StatusDraft && doc.Status != document.StatusRejected {
		return nil, m.conflict("submit", doc, document.StatusDraft, document.StatusRejected)
	}
	cleaned := dedupe(approverIDs)
	if len(cleaned) == 0 {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", "submit", "at least one approver required", nil)
	}

	resubmission := doc.Status == document.StatusRejected
	doc.Status = document.StatusPendingApproval
	doc.DesignatedApproverIDs = cleaned
	doc.Approvals = nil
	if resubmission {
		doc.Version++
		doc.RejectionReason = ""
	}
	if err := m.store.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("submit document: %w", err)
	}

	detail := fmt.Sprintf("version %d, %d approver(s)", doc.Version, len(cleaned))
	if resubmission {
		detail = "resubmitted, " + detail
	}
	m.recorder.Record(ctx, actor, audit.ActionDocumentSubmitted, doc.ID, detail)
	m.logger.Info("document submitted",
		slog.String("document_id", doc.ID),
		slog.Int("version", doc.Version),
		slog.Int("approvers", len(cleaned)))
	return doc, nil
}

// Approve records the actor's sign-off on a pending document. Re-approving
// the same version is a no-op. When the last designated approver signs, the
// document moves to approved and its version bumps.
func (m *Manager) Approve(ctx context.Context, actor *rbac.User, documentID string) (*ApproveResult, error) {
	if actor == nil || actor.ID == "" {
		return nil, services.Wrap(services.ErrForbidden, "lifecycle", "approve", "actor required", nil)
	}
	doc, err := m.mustGet(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != document.StatusPendingApproval {
		return nil, m.conflict("approve", doc, document.StatusPendingApproval)
	}
	if !doc.IsDesignatedApprover(actor.ID) {
		return nil, services.Wrap(services.ErrForbidden, "lifecycle", "approve", "actor is not a designated approver", nil)
	}
	if _, signed := doc.ApprovalBy(actor.ID); signed {
		return &ApproveResult{Document: doc, AlreadyApproved: true}, nil
	}

	doc.Approvals = append(doc.Approvals, document.Approval{
		UserID:     actor.ID,
		UserName:   actor.Name,
		ApprovedAt: m.now(),
	})
	result := &ApproveResult{Document: doc}
	detail := fmt.Sprintf("approval %d of %d", len(doc.Approvals), len(doc.DesignatedApproverIDs))
	if doc.FullyApproved() {
		doc.Status = document.StatusApproved
		doc.Version++
		result.FullyApproved = true
		detail = fmt.Sprintf("final approval, version %d", doc.Version)
	}
	if err := m.store.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("approve document: %w", err)
	}

	m.recorder.Record(ctx, actor, audit.ActionDocumentApproved, doc.ID, detail)
	m.logger.Info("document approved",
		slog.String("document_id", doc.ID),
		slog.String("approver", actor.ID),
		slog.Bool("fully_approved", result.FullyApproved))
	return result, nil
}

// Reject returns a pending document to its author with a reason. All
// approvals collected so far are discarded and the version bumps.
func (m *Manager) Reject(ctx context.Context, actor *rbac.User, documentID, reason string) (*document.Document, error) {
	if actor == nil || actor.ID == "" {
		return nil, services.Wrap(services.ErrForbidden, "lifecycle", "reject", "actor required", nil)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", "reject", "rejection reason required", nil)
	}
	doc, err := m.mustGet(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != document.StatusPendingApproval {
		return nil, m.conflict("reject", doc, document.StatusPendingApproval)
	}
	if !doc.IsDesignatedApprover(actor.ID) {
		return nil, services.Wrap(services.ErrForbidden, "lifecycle", "reject", "actor is not a designated approver", nil)
	}

	doc.Status = document.StatusRejected
	doc.Approvals = nil
	doc.RejectionReason = reason
	doc.Version++
	if err := m.store.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("reject document: %w", err)
	}

	m.recorder.Record(ctx, actor, audit.ActionDocumentRejected, doc.ID, reason)
	m.logger.Info("document rejected",
		slog.String("document_id", doc.ID),
		slog.String("approver", actor.ID))
	return doc, nil
}

// Publish makes an approved document available to readers under the chosen
// visibility. The allow list only applies to specific visibility.
func (m *Manager) Publish(ctx context.Context, actor *rbac.User, documentID string, visibility document.Visibility, allowedUserIDs []string) (*document.Document, error) {
	parsed, err := document.ParseVisibility(string(visibility))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", "publish", err.Error(), nil)
	}
	doc, err := m.mustGet(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != document.StatusApproved {
		return nil, m.conflict("publish", doc, document.StatusApproved)
	}

	doc.Status = document.StatusPublished
	doc.Visibility = parsed
	if parsed == document.VisibilitySpecific {
		doc.AllowedUserIDs = dedupe(allowedUserIDs)
		if len(doc.AllowedUserIDs) == 0 {
			return nil, services.Wrap(services.ErrValidation, "lifecycle", "publish", "specific visibility requires at least one user", nil)
		}
	} else {
		doc.AllowedUserIDs = nil
	}
	doc.Version++
	if err := m.store.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("publish document: %w", err)
	}

	m.recorder.Record(ctx, actor, audit.ActionDocumentPublished, doc.ID, fmt.Sprintf("visibility %s, version %d", parsed, doc.Version))
	m.logger.Info("document published",
		slog.String("document_id", doc.ID),
		slog.String("visibility", string(parsed)),
		slog.Int("version", doc.Version))
	return doc, nil
}

func (m *Manager) mustGet(ctx context.Context, documentID string) (*document.Document, error) {
	doc, err := m.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, services.Wrap(services.ErrNotFound, "lifecycle", "get document", documentID, nil)
	}
	return doc, nil
}

func (m *Manager) conflict(op string, doc *document.Document, wanted ...document.Status) error {
	allowed := make([]string, len(wanted))
	for i, status := range wanted {
		allowed[i] = string(status)
	}
	msg := fmt.Sprintf("document is %s, %s requires %s", doc.Status, op, strings.Join(allowed, " or "))
	return services.Wrap(services.ErrConflict, "lifecycle", op, msg, nil)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
