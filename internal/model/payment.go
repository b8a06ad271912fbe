package model

import (
	"time"

	"github.com/google/uuid"
)

// Payment status constants
const (
	PaymentStatusUpcoming = "upcoming"
	PaymentStatusPaid     = "paid"
	PaymentStatusOverdue  = "overdue"
)

// Payment type constants
const (
	PaymentTypeSession = "session"
	PaymentTypePackage = "package"
	PaymentTypeCopay   = "copay"
	PaymentTypeOther   = "other"
)

// Payment is an amount a patient owes (or has paid) for care.
type Payment struct {
	Base
	PatientID         uuid.UUID  `json:"patient_id" db:"patient_id"`
	TherapistID       uuid.UUID  `json:"therapist_id" db:"therapist_id"`
	Amount            float64    `json:"amount" db:"amount"`
	DueDate           time.Time  `json:"due_date" db:"due_date"`
	PaidDate          *time.Time `json:"paid_date,omitempty" db:"paid_date"`
	Status            string     `json:"status" db:"status"`
	Type              string     `json:"type" db:"type"`
	Description       string     `json:"description" db:"description"`
	InsuranceCoverage *float64   `json:"insurance_coverage,omitempty" db:"insurance_coverage"`
	PaymentMethodID   *uuid.UUID `json:"payment_method_id,omitempty" db:"payment_method_id"`
	TransactionID     *string    `json:"transaction_id,omitempty" db:"transaction_id"`
	Notes             *string    `json:"notes,omitempty" db:"notes"`
}

// PaymentMethod is a stored way to pay (card, bank account).
type PaymentMethod struct {
	Base
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Type      string    `json:"type" db:"type"`
	Name      string    `json:"name" db:"name"`
	Last4     *string   `json:"last4,omitempty" db:"last4"`
	ExpMonth  *int      `json:"exp_month,omitempty" db:"exp_month"`
	ExpYear   *int      `json:"exp_year,omitempty" db:"exp_year"`
	IsDefault bool      `json:"is_default" db:"is_default"`
}

// CreatePaymentRequest represents payment creation parameters
type CreatePaymentRequest struct {
	PatientID         uuid.UUID `json:"patient_id" binding:"required"`
	TherapistID       uuid.UUID `json:"therapist_id" binding:"required"`
	Amount            float64   `json:"amount" binding:"required,gt=0"`
	DueDate           time.Time `json:"due_date" binding:"required"`
	Type              string    `json:"type" binding:"required,oneof=session package copay other"`
	Description       string    `json:"description" binding:"required"`
	InsuranceCoverage *float64  `json:"insurance_coverage"`
	Notes             *string   `json:"notes"`
}

// ProcessPaymentRequest marks a payment as paid through a stored method.
type ProcessPaymentRequest struct {
	PaymentID       uuid.UUID `json:"payment_id" binding:"required"`
	PaymentMethodID uuid.UUID `json:"payment_method_id" binding:"required"`
}
