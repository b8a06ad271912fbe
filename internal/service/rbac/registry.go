package rbac

import "github.com/Tate5000/Thera-stack/internal/model"

// roleDefaults is the static registry mapping each role to its default
// permission set. Roles outside the closed enum never reach this table:
// model.ParseRole rejects them at construction.
var roleDefaults = map[model.Role]model.PermissionSet{
	model.RolePatient: model.NewPermissionSet(
		model.PermissionViewOwnProfile,
		model.PermissionViewOwnAppointments,
		model.PermissionViewOwnBilling,
		model.PermissionMessageCareTeam,
	),
	model.RoleDoctor: model.NewPermissionSet(
		model.PermissionViewOwnProfile,
		model.PermissionViewOwnAppointments,
		model.PermissionViewAssignedPatients,
		model.PermissionUploadPatientDocs,
		model.PermissionManageAppointments,
		model.PermissionGenerateAISummaries,
		model.PermissionMessageCareTeam,
	),
	model.RoleAdmin: model.NewPermissionSet(
		model.PermissionViewOwnProfile,
		model.PermissionManageUsers,
		model.PermissionManageAssignments,
		model.PermissionManageBilling,
		model.PermissionViewAuditLogs,
	),
}

// RoleInfo describes one role for registry listing endpoints.
type RoleInfo struct {
	Role        model.Role         `json:"role"`
	Description string             `json:"description"`
	Defaults    []model.Permission `json:"default_permissions"`
}

var roleDescriptions = map[model.Role]string{
	model.RolePatient: "Receives care; sees only their own records",
	model.RoleDoctor:  "Provides care; sees assigned patients only",
	model.RoleAdmin:   "Operates the platform; full patient-data access",
}

// DefaultPermissions returns the default permission set for a role. It is a
// total function over the closed role enum; the returned set is a copy and
// safe to mutate.
func DefaultPermissions(role model.Role) model.PermissionSet {
	defaults := roleDefaults[role]
	out := make(model.PermissionSet, len(defaults))
	for p := range defaults {
		out[p] = struct{}{}
	}
	return out
}

// ListRoles returns registry metadata for every role.
func ListRoles() []RoleInfo {
	roles := model.Roles()
	out := make([]RoleInfo, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleInfo{
			Role:        r,
			Description: roleDescriptions[r],
			Defaults:    DefaultPermissions(r).List(),
		})
	}
	return out
}
