package model

import (
	"time"

	"github.com/google/uuid"
)

// Appointment status constants
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
	AppointmentStatusNoShow    = "no_show"
)

// Appointment type constants
const (
	AppointmentTypeInitial   = "initial"
	AppointmentTypeFollowup  = "followup"
	AppointmentTypeStandard  = "standard"
	AppointmentTypeEmergency = "emergency"
)

// Appointment is a scheduled therapy session.
type Appointment struct {
	Base
	PatientID   uuid.UUID `json:"patient_id" db:"patient_id"`
	TherapistID uuid.UUID `json:"therapist_id" db:"therapist_id"`
	StartTime   time.Time `json:"start_time" db:"start_time"`
	EndTime     time.Time `json:"end_time" db:"end_time"`
	Title       string    `json:"title" db:"title"`
	Notes       *string   `json:"notes" db:"notes"`
	Status      string    `json:"status" db:"status"`
	Type        string    `json:"type" db:"type"`
}

// CreateAppointmentRequest represents appointment creation parameters
type CreateAppointmentRequest struct {
	PatientID   uuid.UUID `json:"patient_id" binding:"required"`
	TherapistID uuid.UUID `json:"therapist_id" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	Title       string    `json:"title" binding:"required"`
	Notes       *string   `json:"notes"`
	Type        string    `json:"type" binding:"required,oneof=initial followup standard emergency"`
}

// AppointmentFilter represents appointment search parameters
type AppointmentFilter struct {
	BaseFilter
	PatientID   uuid.UUID `json:"patient_id" form:"patient_id"`
	TherapistID uuid.UUID `json:"therapist_id" form:"therapist_id"`
}
