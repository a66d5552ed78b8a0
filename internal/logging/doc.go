// Package logging builds the application slog logger with console and JSON
// handlers and defines the shared structured field names.
package logging
