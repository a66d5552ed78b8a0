// Package lifecycle enforces the document state machine: draft, pending
// approval, approved, published and rejected, with version bumps and audit
// entries on every transition.
package lifecycle
