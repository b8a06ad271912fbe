package model

import (
	"time"

	"github.com/google/uuid"
)

// Assignment is one active therapist↔patient pairing. Assignments are
// written by the scheduling/assignment collaborator; the authorization core
// only ever reads them.
type Assignment struct {
	TherapistID uuid.UUID `json:"therapist_id" db:"therapist_id"`
	PatientID   uuid.UUID `json:"patient_id" db:"patient_id"`
	AssignedBy  uuid.UUID `json:"assigned_by" db:"assigned_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AssignRequest pairs a therapist with a patient.
type AssignRequest struct {
	TherapistID uuid.UUID `json:"therapist_id" binding:"required"`
	PatientID   uuid.UUID `json:"patient_id" binding:"required"`
}

// RelationshipSnapshot is a point-in-time read of all active assignments.
// TakenAt is used to enforce the freshness bound during active calls.
type RelationshipSnapshot struct {
	Assignments []Assignment `json:"assignments"`
	TakenAt     time.Time    `json:"taken_at"`
}

// Age returns how old the snapshot is.
func (s *RelationshipSnapshot) Age() time.Duration {
	return time.Since(s.TakenAt)
}
