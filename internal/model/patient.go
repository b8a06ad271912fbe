package model

import "time"

// Patient status constants
const (
	PatientStatusActive     = "active"
	PatientStatusInactive   = "inactive"
	PatientStatusDischarged = "discharged"
)

// Patient is the clinical record attached to a user with the patient role.
// The record's ID equals the owning user's ID.
type Patient struct {
	Base
	Name             string     `json:"name" db:"name"`
	Email            string     `json:"email" db:"email"`
	Phone            *string    `json:"phone" db:"phone"`
	DateOfBirth      *time.Time `json:"date_of_birth" db:"date_of_birth"`
	Status           string     `json:"status" db:"status"`
	PrimaryDiagnosis *string    `json:"primary_diagnosis" db:"primary_diagnosis"`
	Notes            *string    `json:"notes" db:"notes"`
	Metadata         JSONMap    `json:"metadata" db:"metadata"`
}

// PatientFilter represents patient search parameters
type PatientFilter struct {
	BaseFilter
}

// UpdatePatientRequest represents patient update parameters
type UpdatePatientRequest struct {
	Name             *string `json:"name"`
	Phone            *string `json:"phone"`
	PrimaryDiagnosis *string `json:"primary_diagnosis"`
	Notes            *string `json:"notes"`
	Status           *string `json:"status" binding:"omitempty,oneof=active inactive discharged"`
}
