package testsupport

import (
	"context"
	"testing"

	"actas/internal/config"
	"actas/internal/document"
	"actas/internal/rbac"
	"actas/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewUser creates a user for tests using the provided store.
func NewUser(t testing.TB, st *store.Store, name, email string, roleIDs ...string) *rbac.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), &rbac.User{
		Name:    name,
		Email:   email,
		RoleIDs: roleIDs,
	})
	if err != nil {
		t.Fatalf("store.CreateUser: %v", err)
	}
	return user
}

// NewDraftDocument creates a draft document for tests.
func NewDraftDocument(t testing.TB, st *store.Store, createdBy, title string) *document.Document {
	t.Helper()

	doc, err := st.CreateDocument(context.Background(), &document.Document{
		Title:     title,
		CreatedBy: createdBy,
	})
	if err != nil {
		t.Fatalf("store.CreateDocument: %v", err)
	}
	return doc
}
