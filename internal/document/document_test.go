package document_test

import (
	"testing"
	"time"

	"actas/internal/document"
	"actas/internal/rbac"
)

func TestParseStatus(t *testing.T) {
	for _, status := range document.AllStatuses() {
		parsed, err := document.ParseStatus(string(status))
		if err != nil {
			t.Fatalf("ParseStatus(%q) error = %v", status, err)
		}
		if parsed != status {
			t.Fatalf("ParseStatus(%q) = %q", status, parsed)
		}
	}
	if _, err := document.ParseStatus("archived"); err == nil {
		t.Fatal("ParseStatus(archived) should fail")
	}
}

func TestFullyApproved(t *testing.T) {
	doc := document.Document{
		DesignatedApproverIDs: []string{"u1", "u2"},
		Approvals: []document.Approval{
			{UserID: "u1", UserName: "Ana", ApprovedAt: time.Now()},
		},
	}
	if doc.FullyApproved() {
		t.Fatal("one of two approvals should not be fully approved")
	}
	doc.Approvals = append(doc.Approvals, document.Approval{UserID: "u2", UserName: "Luis", ApprovedAt: time.Now()})
	if !doc.FullyApproved() {
		t.Fatal("all designated approvers signed, want fully approved")
	}

	// An extra approval from a non-designated user changes nothing.
	doc.Approvals = append(doc.Approvals, document.Approval{UserID: "u9"})
	if !doc.FullyApproved() {
		t.Fatal("extra approvals must not break the covers relation")
	}

	empty := document.Document{}
	if empty.FullyApproved() {
		t.Fatal("document without designated approvers is never fully approved")
	}
}

func TestVisibleTo(t *testing.T) {
	reader := &rbac.User{ID: "reader"}
	creator := &rbac.User{ID: "creator"}
	approver := &rbac.User{ID: "approver"}
	listed := &rbac.User{ID: "listed"}

	published := func(vis document.Visibility) document.Document {
		return document.Document{
			Status:                document.StatusPublished,
			Visibility:            vis,
			CreatedBy:             "creator",
			DesignatedApproverIDs: []string{"approver"},
			AllowedUserIDs:        []string{"listed"},
		}
	}

	readCaps := rbac.Capabilities(rbac.PermViewPublishedDocuments)

	cases := []struct {
		name string
		doc  document.Document
		user *rbac.User
		caps rbac.Capabilities
		want bool
	}{
		{"public published visible to reader", published(document.VisibilityPublic), reader, readCaps, true},
		{"public published visible anonymously", published(document.VisibilityPublic), nil, readCaps, true},
		{"private published hidden from reader", published(document.VisibilityPrivate), reader, readCaps, false},
		{"private published visible to creator", published(document.VisibilityPrivate), creator, readCaps, true},
		{"private published visible to approver", published(document.VisibilityPrivate), approver, readCaps, true},
		{"specific published visible to listed user", published(document.VisibilitySpecific), listed, readCaps, true},
		{"specific published hidden from reader", published(document.VisibilitySpecific), reader, readCaps, false},
		{"view-all sees everything", published(document.VisibilityPrivate), reader, rbac.Capabilities(rbac.PermViewAllDocuments), true},
		{"draft hidden from reader", document.Document{Status: document.StatusDraft, CreatedBy: "creator"}, reader, readCaps, false},
		{"draft visible to creator", document.Document{Status: document.StatusDraft, CreatedBy: "creator"}, creator, 0, true},
		{"published hidden without read capability", published(document.VisibilityPublic), reader, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.doc.VisibleTo(tc.user, tc.caps); got != tc.want {
				t.Fatalf("VisibleTo() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilterVisible(t *testing.T) {
	docs := []document.Document{
		{ID: "a", Status: document.StatusPublished, Visibility: document.VisibilityPublic},
		{ID: "b", Status: document.StatusDraft, CreatedBy: "other"},
		{ID: "c", Status: document.StatusPublished, Visibility: document.VisibilityPublic},
	}
	reader := &rbac.User{ID: "reader"}
	got := document.FilterVisible(docs, reader, rbac.Capabilities(rbac.PermViewPublishedDocuments))
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("FilterVisible() = %+v", got)
	}
}

func TestBody(t *testing.T) {
	doc := document.Document{Sections: []document.Section{
		{Title: "Agenda", Content: "1. Budget"},
		{Title: "Agreements", Content: "Approved."},
	}}
	body := doc.Body()
	want := "## Agenda\n\n1. Budget\n\n## Agreements\n\nApproved."
	if body != want {
		t.Fatalf("Body() = %q, want %q", body, want)
	}
}
