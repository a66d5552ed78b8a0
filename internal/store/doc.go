// Package store persists documents, users, roles, templates, wizard
// sessions and the audit log in a single SQLite database.
package store
