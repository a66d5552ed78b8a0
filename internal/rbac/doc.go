// Package rbac defines the closed permission set, roles, users, and the
// capability resolver that derives what a user may do from the roles they hold.
package rbac
