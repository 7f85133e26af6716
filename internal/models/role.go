package models

// Role is the closed set of access levels a user can hold. Route allow-lists
// are expressed as RoleSets over this enum so an unknown integer level can
// never slip into an authorization decision.
type Role int

const (
	RoleUser  Role = 1
	RoleAdmin Role = 2
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// RoleSet is a membership set of roles allowed on a route.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}
