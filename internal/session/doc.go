// Package session persists in-progress wizard work per document and decides
// how a stored snapshot is resumed.
package session
