package rbac

// Role bundles a named set of permissions under a stable identifier.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Permissions Capabilities `json:"permissions"`
}

// User is a system identity. RoleIDs may reference roles that no longer
// exist; stale ids contribute nothing when capabilities are resolved.
type User struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	RoleIDs     []string `json:"role_ids,omitempty"`
	NationalID  string   `json:"national_id,omitempty"`
	Title       string   `json:"title,omitempty"`
	Institution string   `json:"institution,omitempty"`
}

// ActorID identifies the user in audit entries.
func (u *User) ActorID() string {
	if u == nil {
		return ""
	}
	return u.ID
}

// ActorName is the display name recorded alongside audit entries.
func (u *User) ActorName() string {
	if u == nil {
		return ""
	}
	return u.Name
}

// HasRole reports whether the user holds the given role id.
func (u *User) HasRole(roleID string) bool {
	if u == nil {
		return false
	}
	for _, id := range u.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}
