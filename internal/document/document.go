package document

import (
	"fmt"
	"strings"
	"time"
)

// Status tracks a document through its lifecycle.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusPublished       Status = "published"
	StatusRejected        Status = "rejected"
)

// ParseStatus validates a raw status value read from storage or the API.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.TrimSpace(value)) {
	case StatusDraft:
		return StatusDraft, nil
	case StatusPendingApproval:
		return StatusPendingApproval, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusPublished:
		return StatusPublished, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unknown document status %q", value)
	}
}

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusDraft, StatusPendingApproval, StatusApproved, StatusPublished, StatusRejected}
}

// Approval records one approver's sign-off on the current version.
type Approval struct {
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	ApprovedAt time.Time `json:"approved_at"`
}

// Section is one rendered part of the document body, in template order.
type Section struct {
	SegmentID string `json:"segment_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	// Generated marks sections produced by the generation service rather
	// than copied from static template content.
	Generated bool `json:"generated"`
}

// Document is a set of meeting minutes moving through draft, approval and
// publication. WizardData holds the authoring wizard's serialized state as
// opaque JSON; the audio recording itself is never part of the document.
type Document struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	MeetingDate string `json:"meeting_date,omitempty"`
	SessionType string `json:"session_type,omitempty"`
	TemplateID  string `json:"template_id,omitempty"`

	Status  Status `json:"status"`
	Version int    `json:"version"`

	Sections []Section `json:"sections,omitempty"`
	Tags     []string  `json:"tags,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DesignatedApproverIDs []string   `json:"designated_approver_ids,omitempty"`
	Approvals             []Approval `json:"approvals,omitempty"`
	RejectionReason       string     `json:"rejection_reason,omitempty"`

	Visibility     Visibility `json:"visibility,omitempty"`
	AllowedUserIDs []string   `json:"allowed_user_ids,omitempty"`

	WizardData string `json:"-"`
}

// ApprovalBy returns the approval recorded for the given user, if any.
func (d *Document) ApprovalBy(userID string) (Approval, bool) {
	for _, a := range d.Approvals {
		if a.UserID == userID {
			return a, true
		}
	}
	return Approval{}, false
}

// IsDesignatedApprover reports whether the user is on the approver list.
func (d *Document) IsDesignatedApprover(userID string) bool {
	for _, id := range d.DesignatedApproverIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// FullyApproved reports whether every designated approver has an approval
// entry for the current version. A document with no designated approvers is
// never fully approved; it must go through submission first.
func (d *Document) FullyApproved() bool {
	if len(d.DesignatedApproverIDs) == 0 {
		return false
	}
	for _, id := range d.DesignatedApproverIDs {
		if _, ok := d.ApprovalBy(id); !ok {
			return false
		}
	}
	return true
}

// Body renders the sections as a single Markdown document.
func (d *Document) Body() string {
	var b strings.Builder
	for i, section := range d.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if strings.TrimSpace(section.Title) != "" {
			fmt.Fprintf(&b, "## %s\n\n", section.Title)
		}
		b.WriteString(strings.TrimSpace(section.Content))
	}
	return b.String()
}
