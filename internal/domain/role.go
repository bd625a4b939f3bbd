package domain

// Role names carried in tokens and used for role rooms.
const (
	RoleArtist  = "artist"
	RoleCurator = "curator"
	RoleAdmin   = "admin"
	RoleVisitor = "visitor"
	// RoleService is held by machine callers that submit domain events.
	RoleService = "service"
)

// PrivilegedRoles receive broadcast-style review events such as new uploads.
var PrivilegedRoles = []string{RoleCurator, RoleAdmin}

// ValidRole reports whether r is a known role name.
func ValidRole(r string) bool {
	switch r {
	case RoleArtist, RoleCurator, RoleAdmin, RoleVisitor, RoleService:
		return true
	}
	return false
}
