package rbac

import (
	"sort"
	"strings"
)

// Permission is a single capability flag. The vocabulary is closed; new
// permissions require a code change, not a data change.
type Permission uint16

const (
	PermViewRepository Permission = 1 << iota
	PermViewAllDocuments
	PermViewPublishedDocuments
	PermCreateDocuments
	PermEditDocuments
	PermApproveDocuments
	PermViewAdminPanel
	PermManageUsersAndRoles
	PermManageTemplates
	PermManageSystemConfig
	PermViewMetrics
	PermViewAuditLog
)

var permissionNames = map[Permission]string{
	PermViewRepository:         "view_repository",
	PermViewAllDocuments:       "view_all_documents",
	PermViewPublishedDocuments: "view_published_documents",
	PermCreateDocuments:        "create_documents",
	PermEditDocuments:          "edit_documents",
	PermApproveDocuments:       "approve_documents",
	PermViewAdminPanel:         "view_admin_panel",
	PermManageUsersAndRoles:    "manage_users_and_roles",
	PermManageTemplates:        "manage_templates",
	PermManageSystemConfig:     "manage_system_config",
	PermViewMetrics:            "view_metrics",
	PermViewAuditLog:           "view_audit_log",
}

var permissionsByName = func() map[string]Permission {
	byName := make(map[string]Permission, len(permissionNames))
	for perm, name := range permissionNames {
		byName[name] = perm
	}
	return byName
}()

// AllPermissions returns every known permission in declaration order.
func AllPermissions() []Permission {
	perms := make([]Permission, 0, len(permissionNames))
	for perm := range permissionNames {
		perms = append(perms, perm)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// String returns the stable storage name for a permission.
func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePermission converts a storage name into a Permission.
func ParsePermission(value string) (Permission, bool) {
	perm, ok := permissionsByName[strings.ToLower(strings.TrimSpace(value))]
	return perm, ok
}

// Capabilities is the resolved set of permissions for one user.
type Capabilities uint16

// Has reports whether every bit of perm is present in the set.
func (c Capabilities) Has(perm Permission) bool {
	return Capabilities(perm)&c == Capabilities(perm) && perm != 0
}

// IsEmpty reports whether no permission resolved at all.
func (c Capabilities) IsEmpty() bool {
	return c == 0
}

// Names returns the storage names of every permission in the set, sorted by
// declaration order. Useful for logging and API payloads.
func (c Capabilities) Names() []string {
	var names []string
	for _, perm := range AllPermissions() {
		if c.Has(perm) {
			names = append(names, perm.String())
		}
	}
	return names
}
