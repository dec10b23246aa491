package user

import "strings"

// Role is the internal two-value role enumeration. All external role
// vocabulary goes through ParseRole exactly once, at the edge; policy
// code compares Role values, never raw strings.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps an external role string onto the internal enumeration.
// "organizer" is a legacy alias for admin kept for old clients; anything
// unrecognized degrades to the unprivileged role.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin", "organizer":
		return RoleAdmin
	default:
		return RoleUser
	}
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}
