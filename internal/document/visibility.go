package document

import (
	"fmt"
	"strings"

	"actas/internal/rbac"
)

// Visibility controls who can read a published document.
type Visibility string

const (
	// VisibilityPublic documents are readable by anyone who can see the
	// repository at all.
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate documents are readable only by privileged readers,
	// the creator and the designated approvers.
	VisibilityPrivate Visibility = "private"
	// VisibilitySpecific documents add an explicit allow list on top of the
	// private audience.
	VisibilitySpecific Visibility = "specific"
)

// ParseVisibility validates a raw visibility value. Empty input maps to
// private, matching the behavior before publication settings are chosen.
func ParseVisibility(value string) (Visibility, error) {
	switch Visibility(strings.TrimSpace(value)) {
	case "":
		return VisibilityPrivate, nil
	case VisibilityPublic:
		return VisibilityPublic, nil
	case VisibilityPrivate:
		return VisibilityPrivate, nil
	case VisibilitySpecific:
		return VisibilitySpecific, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", value)
	}
}

// VisibleTo reports whether the user may read the document given their
// resolved capabilities. A nil user sees only public published documents.
func (d *Document) VisibleTo(user *rbac.User, caps rbac.Capabilities) bool {
	if caps.Has(rbac.PermViewAllDocuments) {
		return true
	}
	if user != nil {
		if d.CreatedBy == user.ID || d.IsDesignatedApprover(user.ID) {
			return true
		}
	}
	if d.Status != StatusPublished {
		return false
	}
	if !caps.Has(rbac.PermViewPublishedDocuments) && !caps.Has(rbac.PermViewRepository) {
		return false
	}
	switch d.Visibility {
	case VisibilityPublic:
		return true
	case VisibilitySpecific:
		if user == nil {
			return false
		}
		for _, id := range d.AllowedUserIDs {
			if id == user.ID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// FilterVisible returns the subset of documents the user may read,
// preserving order.
func FilterVisible(docs []Document, user *rbac.User, caps rbac.Capabilities) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if doc.VisibleTo(user, caps) {
			out = append(out, doc)
		}
	}
	return out
}
