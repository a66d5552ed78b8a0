package logging

import "log/slog"

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldDocumentID is the standardized structured logging key for document identifiers.
	FieldDocumentID = "document_id"
	// FieldActor is the standardized structured logging key for the acting user id.
	FieldActor = "actor"
	// FieldStep is the standardized structured logging key for wizard step names.
	FieldStep = "step"
	// FieldRequestID is the standardized structured logging key for API request correlation.
	FieldRequestID = "request_id"
)

// WithComponent returns a child logger tagged with a component name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger.With(slog.String(FieldComponent, component))
}
