package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
	"github.com/Tate5000/Thera-stack/internal/service/access"
	"github.com/Tate5000/Thera-stack/internal/service/audit"
)

// ErrAccessDenied is returned when the requesting user may not see the
// patient's data. It is a normal outcome, mapped to 403 by the handler.
var ErrAccessDenied = errors.New("access to patient data denied")

// Service serves patient records. Every read and write goes through the
// access decision engine; there is no ungated path to a patient record.
type Service struct {
	repo    repository.PatientRepository
	access  *access.Service
	auditor *audit.Logger
}

func NewService(repo repository.PatientRepository, accessSvc *access.Service, auditor *audit.Logger) *Service {
	return &Service{repo: repo, access: accessSvc, auditor: auditor}
}

func (s *Service) GetPatient(ctx context.Context, actor *model.User, patientID uuid.UUID) (*model.Patient, error) {
	if !s.access.CanAccessPatientData(ctx, actor, patientID) {
		return nil, ErrAccessDenied
	}
	patient, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	s.auditor.Log(ctx, actor.ID, "read", "patient", patientID, nil)
	return patient, nil
}

func (s *Service) UpdatePatient(ctx context.Context, actor *model.User, patientID uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	if !s.access.CanAccessPatientData(ctx, actor, patientID) {
		return nil, ErrAccessDenied
	}
	patient, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Phone != nil {
		patient.Phone = req.Phone
	}
	if req.PrimaryDiagnosis != nil {
		patient.PrimaryDiagnosis = req.PrimaryDiagnosis
	}
	if req.Notes != nil {
		patient.Notes = req.Notes
	}
	if req.Status != nil {
		patient.Status = *req.Status
	}
	patient.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	s.auditor.Log(ctx, actor.ID, "update", "patient", patientID, &audit.LogOptions{Changes: req})
	return patient, nil
}

// ListPatients returns the patients the actor may see: admins get all,
// doctors their assigned set, patients their own record. The fail-closed
// default applies to any other role.
func (s *Service) ListPatients(ctx context.Context, actor *model.User, filter *model.PatientFilter) ([]*model.Patient, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return s.repo.List(ctx, filter)
	case model.RoleDoctor:
		ix, err := s.access.CurrentIndex(ctx)
		if err != nil {
			return nil, fmt.Errorf("relationship snapshot unavailable: %w", err)
		}
		ids := ix.AssignedPatients(actor.ID)
		if len(ids) == 0 {
			return []*model.Patient{}, nil
		}
		return s.repo.ListByIDs(ctx, ids)
	case model.RolePatient:
		own, err := s.repo.Get(ctx, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get patient: %w", err)
		}
		return []*model.Patient{own}, nil
	default:
		return nil, ErrAccessDenied
	}
}
