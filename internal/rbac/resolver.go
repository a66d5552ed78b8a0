package rbac

// Resolve derives the effective capability set for a user: the union of
// permissions across every role the user holds. A nil user or a user whose
// role ids all point at vanished roles resolves to the empty set, never an
// error. The result is recomputed from scratch on every call so role edits
// take effect immediately.
func Resolve(user *User, roles []Role) Capabilities {
	var caps Capabilities
	if user == nil {
		return caps
	}
	byID := make(map[string]Capabilities, len(roles))
	for _, role := range roles {
		byID[role.ID] = role.Permissions
	}
	for _, roleID := range user.RoleIDs {
		if perms, ok := byID[roleID]; ok {
			caps |= perms
		}
	}
	return caps
}
