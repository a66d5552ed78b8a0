// Package document defines the minutes document model, its lifecycle
// statuses, and publication visibility rules.
package document
