// Package services holds the error taxonomy and context helpers shared by the
// external service adapters and the components that call them.
package services
