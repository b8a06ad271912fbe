// Package rbac holds the role registry and the permission evaluator: the
// coarse-grained capability axis of the authorization core. Everything here
// is pure and safe to call concurrently.
package rbac

import "github.com/Tate5000/Thera-stack/internal/model"

// EffectivePermissions returns the union of the user's stored permission
// grants and the defaults of their role. The union is additive-only and
// idempotent: role defaults act as a permission floor, and nothing this
// evaluator does can remove one. Revoking a default requires a role change
// upstream.
func EffectivePermissions(user *model.User) model.PermissionSet {
	return model.NewPermissionSet(user.Permissions...).Union(DefaultPermissions(user.Role))
}

// HasPermission reports whether the user's effective permission set contains
// the given permission.
func HasPermission(user *model.User, permission model.Permission) bool {
	if user == nil {
		return false
	}
	return EffectivePermissions(user).Has(permission)
}
