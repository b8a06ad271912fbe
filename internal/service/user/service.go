package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
	"github.com/Tate5000/Thera-stack/internal/service/audit"
	authService "github.com/Tate5000/Thera-stack/internal/service/auth"
	"github.com/Tate5000/Thera-stack/internal/service/callgate"
)

var (
	ErrNotATherapist = errors.New("user is not a therapist")
	ErrNotAPatient   = errors.New("user is not a patient")
)

// SnapshotInvalidator drops the cached relationship index after an
// assignment write so decisions see the change immediately.
type SnapshotInvalidator interface {
	Invalidate()
}

// Service manages users and therapist↔patient assignments. It is the only
// writer of the relationship data the authorization core reads; every write
// invalidates the snapshot cache and re-checks live call sessions for the
// affected patient.
type Service struct {
	users       repository.UserRepository
	patients    repository.PatientRepository
	assignments repository.AssignmentRepository
	snapshots   SnapshotInvalidator
	gate        *callgate.Gate
	auditor     *audit.Logger
}

func NewService(
	users repository.UserRepository,
	patients repository.PatientRepository,
	assignments repository.AssignmentRepository,
	snapshots SnapshotInvalidator,
	gate *callgate.Gate,
	auditor *audit.Logger,
) *Service {
	return &Service{
		users:       users,
		patients:    patients,
		assignments: assignments,
		snapshots:   snapshots,
		gate:        gate,
		auditor:     auditor,
	}
}

func (s *Service) CreateUser(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	user, err := model.NewUser(uuid.New(), req.Email, req.Name, req.Role, req.Perms)
	if err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}
	hash, err := authService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Patients get a clinical record keyed by their user id.
	if user.Role == model.RolePatient {
		now := time.Now()
		patient := &model.Patient{
			Base:   model.Base{ID: user.ID, CreatedAt: now, UpdatedAt: now},
			Name:   user.Name,
			Email:  user.Email,
			Status: model.PatientStatusActive,
		}
		if err := s.patients.Create(ctx, patient); err != nil {
			return nil, fmt.Errorf("failed to create patient record: %w", err)
		}
	}

	s.auditor.Log(ctx, user.ID, "create", "user", user.ID, nil)
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.users.Get(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, filter *model.UserFilter) ([]*model.User, error) {
	return s.users.List(ctx, filter)
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	user.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.auditor.Log(ctx, id, "update", "user", id, &audit.LogOptions{Changes: req})
	return user, nil
}

// GrantPermission adds a per-user grant on top of the role defaults. Grants
// are additive: role defaults can never be removed this way.
func (s *Service) GrantPermission(ctx context.Context, userID uuid.UUID, permission string) error {
	p, err := model.ParsePermission(permission)
	if err != nil {
		return err
	}
	if err := s.users.GrantPermission(ctx, userID, p); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	s.auditor.Log(ctx, userID, "grant_permission", "user", userID, &audit.LogOptions{
		Metadata: map[string]interface{}{"permission": p.String()},
	})
	return nil
}

// AssignTherapist records an active therapist↔patient pairing. Both sides
// of the index derive from this one row, so the mutual-consistency
// invariant holds by construction.
func (s *Service) AssignTherapist(ctx context.Context, actorID, therapistID, patientID uuid.UUID) error {
	therapist, err := s.users.Get(ctx, therapistID)
	if err != nil {
		return fmt.Errorf("therapist lookup failed: %w", err)
	}
	if therapist.Role != model.RoleDoctor {
		return ErrNotATherapist
	}
	patient, err := s.users.Get(ctx, patientID)
	if err != nil {
		return fmt.Errorf("patient lookup failed: %w", err)
	}
	if patient.Role != model.RolePatient {
		return ErrNotAPatient
	}

	if err := s.assignments.Assign(ctx, &model.Assignment{
		TherapistID: therapistID,
		PatientID:   patientID,
		AssignedBy:  actorID,
		CreatedAt:   time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to assign therapist: %w", err)
	}

	s.afterAssignmentChange(ctx, patientID)
	s.auditor.Log(ctx, actorID, "assign_therapist", "patient", patientID, &audit.LogOptions{
		Metadata: map[string]interface{}{"therapist_id": therapistID.String()},
	})
	return nil
}

func (s *Service) UnassignTherapist(ctx context.Context, actorID, therapistID, patientID uuid.UUID) error {
	if err := s.assignments.Unassign(ctx, therapistID, patientID); err != nil {
		return fmt.Errorf("failed to unassign therapist: %w", err)
	}

	s.afterAssignmentChange(ctx, patientID)
	s.auditor.Log(ctx, actorID, "unassign_therapist", "patient", patientID, &audit.LogOptions{
		Metadata: map[string]interface{}{"therapist_id": therapistID.String()},
	})
	return nil
}

// afterAssignmentChange makes sure the next decision sees the new state and
// that live call sessions for the patient are re-verified immediately, not
// on the next tick.
func (s *Service) afterAssignmentChange(ctx context.Context, patientID uuid.UUID) {
	if s.snapshots != nil {
		s.snapshots.Invalidate()
	}
	if s.gate != nil {
		s.gate.RecheckPatient(ctx, patientID)
	}
}
