package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/model"
)

// ErrNotFound is returned when a referenced record does not exist. Callers
// in the authorization core treat it as denial, never as a reason to guess.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateAssignment is returned when an identical active assignment
// already exists.
var ErrDuplicateAssignment = errors.New("assignment already exists")

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	List(ctx context.Context, filter *model.UserFilter) ([]*model.User, error)
	GrantPermission(ctx context.Context, userID uuid.UUID, permission model.Permission) error
}

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	Update(ctx context.Context, patient *model.Patient) error
	List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Patient, error)
}

// AssignmentRepository is the read side of the relationship index plus the
// writes performed by the assignment-management collaborator.
type AssignmentRepository interface {
	ListActive(ctx context.Context) ([]model.Assignment, error)
	Assign(ctx context.Context, assignment *model.Assignment) error
	Unassign(ctx context.Context, therapistID, patientID uuid.UUID) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type SuperbillRepository interface {
	Create(ctx context.Context, superbill *model.Superbill) error
	Get(ctx context.Context, id uuid.UUID) (*model.Superbill, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Superbill, error)
	ListByTherapist(ctx context.Context, therapistID uuid.UUID) ([]*model.Superbill, error)
	Update(ctx context.Context, superbill *model.Superbill) error
	ListCPTCodes(ctx context.Context) ([]model.CPTCode, error)
	ListDiagnosisCodes(ctx context.Context) ([]model.DiagnosisCode, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Payment, error)
	Update(ctx context.Context, payment *model.Payment) error
	MarkOverdue(ctx context.Context, before time.Time) (int64, error)
	CreateMethod(ctx context.Context, method *model.PaymentMethod) error
	ListMethods(ctx context.Context, userID uuid.UUID) ([]*model.PaymentMethod, error)
	GetMethod(ctx context.Context, id uuid.UUID) (*model.PaymentMethod, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CallSessionRepository archives terminal call sessions so revocation
// reasons survive the in-memory gate.
type CallSessionRepository interface {
	Archive(ctx context.Context, session *model.CallSession) error
	Get(ctx context.Context, id uuid.UUID) (*model.CallSession, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.CallSession, error)
}

type TokenRepository interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, token string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeUserTokens(ctx context.Context, userID uuid.UUID) error
}
