package authorization

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}

func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// ParseUserRole falls back to RoleUser for anything unrecognized.
func ParseUserRole(s string) UserRole {
	role := UserRole(s)
	if role.IsValid() {
		return role
	}
	return RoleUser
}

// CanAccessOwned reports whether subject may read a resource owned by owner.
func CanAccessOwned(subject string, role UserRole, owner string) bool {
	if role.IsAdmin() {
		return true
	}
	return subject != "" && subject == owner
}
