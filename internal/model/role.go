package model

import "fmt"

// Role is the closed set of identity categories the platform knows about.
// Unknown role values are rejected when a User is constructed, never at
// decision time.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ErrUnknownRole is returned when a role value outside the closed set is
// parsed.
var ErrUnknownRole = fmt.Errorf("unknown role")

// ParseRole validates a raw role value against the closed enumeration.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether the role is one of the closed enumeration values.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string {
	return string(r)
}

// Roles lists every valid role. The slice is a fresh copy on each call.
func Roles() []Role {
	return []Role{RolePatient, RoleDoctor, RoleAdmin}
}
