package rbac

// Role names. Keep these stable; they are part of issued tokens.
const (
	RoleAdmin   = "admin"
	RoleAgent   = "agent"   // sends messages and places calls
	RoleAnalyst = "analyst" // read-only
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// IsKnown reports whether role is one the gateway issues tokens for.
func IsKnown(role string) bool {
	switch role {
	case RoleAdmin, RoleAgent, RoleAnalyst:
		return true
	}
	return false
}
