package model

import (
	"fmt"
	"sort"
)

// Permission is an atomic capability. The vocabulary is closed: permissions
// are never composed from request strings at runtime.
type Permission string

const (
	PermissionViewOwnProfile       Permission = "view_own_profile"
	PermissionViewOwnAppointments  Permission = "view_own_appointments"
	PermissionViewOwnBilling       Permission = "view_own_billing"
	PermissionMessageCareTeam      Permission = "message_care_team"
	PermissionViewAssignedPatients Permission = "view_assigned_patients"
	PermissionUploadPatientDocs    Permission = "upload_patient_documents"
	PermissionManageAppointments   Permission = "manage_appointments"
	PermissionGenerateAISummaries  Permission = "generate_ai_summaries"
	PermissionManageBilling        Permission = "manage_billing"
	PermissionManageUsers          Permission = "manage_users"
	PermissionManageAssignments    Permission = "manage_assignments"
	PermissionViewAuditLogs        Permission = "view_audit_logs"
)

// ErrUnknownPermission is returned when a permission value outside the
// closed vocabulary is parsed.
var ErrUnknownPermission = fmt.Errorf("unknown permission")

var allPermissions = []Permission{
	PermissionViewOwnProfile,
	PermissionViewOwnAppointments,
	PermissionViewOwnBilling,
	PermissionMessageCareTeam,
	PermissionViewAssignedPatients,
	PermissionUploadPatientDocs,
	PermissionManageAppointments,
	PermissionGenerateAISummaries,
	PermissionManageBilling,
	PermissionManageUsers,
	PermissionManageAssignments,
	PermissionViewAuditLogs,
}

// ParsePermission validates a raw permission value against the closed
// vocabulary.
func ParsePermission(s string) (Permission, error) {
	for _, p := range allPermissions {
		if Permission(s) == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
}

func (p Permission) String() string {
	return string(p)
}

// Permissions lists the full vocabulary. The slice is a fresh copy on each
// call.
func Permissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// PermissionSet is a set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports set membership.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Union returns a new set containing every permission from both sets.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	out := make(PermissionSet, len(s)+len(other))
	for p := range s {
		out[p] = struct{}{}
	}
	for p := range other {
		out[p] = struct{}{}
	}
	return out
}

// ContainsAll reports whether every permission in other is present in s.
func (s PermissionSet) ContainsAll(other PermissionSet) bool {
	for p := range other {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold exactly the same permissions.
func (s PermissionSet) Equal(other PermissionSet) bool {
	return len(s) == len(other) && s.ContainsAll(other)
}

// List returns the set's permissions sorted by name, for stable responses
// and logs.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
