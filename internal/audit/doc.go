// Package audit records who did what to which document and when.
package audit
