package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks caller mistakes that should surface inline, never
	// reach the audit trail, and never mutate state.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks operations against vanished documents, users, or roles.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks mutations refused to protect referential integrity,
	// such as deleting a role still assigned to a user.
	ErrConflict = errors.New("conflict")
	// ErrForbidden marks operations the acting user lacks a capability for.
	ErrForbidden = errors.New("forbidden")
	// ErrExternalService marks transcription or generation failures.
	ErrExternalService = errors.New("external service error")
	// ErrTransient marks failures worth retrying without operator action.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
