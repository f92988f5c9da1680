package auth

// hostCapableRoles is the complete mapping from external role claims to the
// host capability. Roles not listed here are standard callers: they can join
// active meetings but cannot start them, record them, or receive moderator
// tokens.
var hostCapableRoles = map[string]bool{
	"Assessor": true,
	"Admin":    true,
}

// IsHostCapable reports whether the given role claim designates host privilege.
func IsHostCapable(role string) bool {
	return hostCapableRoles[role]
}
