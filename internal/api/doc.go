// Package api exposes the document repository, lifecycle actions,
// administration and audit log over a small REST API.
package api
