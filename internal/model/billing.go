package model

import (
	"time"

	"github.com/google/uuid"
)

// Superbill status constants
const (
	SuperbillStatusPending   = "pending"
	SuperbillStatusSubmitted = "submitted"
	SuperbillStatusPaid      = "paid"
	SuperbillStatusDenied    = "denied"
)

// CPTCode is a billable procedure code with its default rate.
type CPTCode struct {
	Code        string   `json:"code" db:"code"`
	Description string   `json:"description" db:"description"`
	DefaultRate *float64 `json:"default_rate,omitempty" db:"default_rate"`
}

// DiagnosisCode is an ICD-10 diagnosis code.
type DiagnosisCode struct {
	Code        string `json:"code" db:"code"`
	Description string `json:"description" db:"description"`
}

// Superbill is an insurance claim document for one or more sessions.
type Superbill struct {
	Base
	PatientID         uuid.UUID  `json:"patient_id" db:"patient_id"`
	TherapistID       uuid.UUID  `json:"therapist_id" db:"therapist_id"`
	SessionDate       time.Time  `json:"session_date" db:"session_date"`
	CPTCodes          []string   `json:"cpt_codes" db:"-"`
	DiagnosisCodes    []string   `json:"diagnosis_codes" db:"-"`
	Amount            float64    `json:"amount" db:"amount"`
	InsuranceProvider string     `json:"insurance_provider" db:"insurance_provider"`
	Status            string     `json:"status" db:"status"`
	SubmittedDate     *time.Time `json:"submitted_date,omitempty" db:"submitted_date"`
	ClaimNumber       *string    `json:"claim_number,omitempty" db:"claim_number"`
	PaidDate          *time.Time `json:"paid_date,omitempty" db:"paid_date"`
	PaidAmount        *float64   `json:"paid_amount,omitempty" db:"paid_amount"`
	DeniedReason      *string    `json:"denied_reason,omitempty" db:"denied_reason"`
	Notes             *string    `json:"notes,omitempty" db:"notes"`
}

// CreateSuperbillRequest represents superbill creation parameters
type CreateSuperbillRequest struct {
	PatientID         uuid.UUID `json:"patient_id" binding:"required"`
	TherapistID       uuid.UUID `json:"therapist_id" binding:"required"`
	SessionDate       time.Time `json:"session_date" binding:"required"`
	CPTCodes          []string  `json:"cpt_codes" binding:"required,min=1"`
	DiagnosisCodes    []string  `json:"diagnosis_codes" binding:"required,min=1"`
	Amount            float64   `json:"amount" binding:"required,gt=0"`
	InsuranceProvider string    `json:"insurance_provider" binding:"required"`
	Notes             *string   `json:"notes"`
}
