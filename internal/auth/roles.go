package auth

import "fmt"

// Role is a permission level a user can hold. A user may hold several at once.
type Role string

const (
	RoleUser    Role = "USER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// AllRoles lists the known roles from lowest to highest.
var AllRoles = []Role{RoleUser, RoleManager, RoleAdmin}

// Level returns the hierarchy level of r, 0 for unknown roles.
func (r Role) Level() int {
	switch r {
	case RoleUser:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return r.Level() > 0
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// HasRole reports whether userRoles contains at least one of required.
func HasRole(userRoles []string, required ...Role) bool {
	for _, want := range required {
		for _, have := range userRoles {
			if have == string(want) {
				return true
			}
		}
	}
	return false
}

// HasRoleOrHigher reports whether the highest role in userRoles is at least minRole.
// No roles, or only unknown ones, is level 0 and never passes.
func HasRoleOrHigher(userRoles []string, minRole Role) bool {
	required := minRole.Level()
	if required == 0 {
		return false
	}
	highest := 0
	for _, have := range userRoles {
		if l := Role(have).Level(); l > highest {
			highest = l
		}
	}
	return highest >= required
}
