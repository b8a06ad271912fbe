package billing

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

var (
	ErrAccessDenied      = errors.New("access to billing records denied")
	ErrInvalidTransition = errors.New("invalid superbill status transition")
)

type Service struct {
	repo    repository.SuperbillRepository
	access  *access.Service
	auditor *audit.Logger
}

func NewService(repo repository.SuperbillRepository, accessSvc *access.Service, auditor *audit.Logger) *Service {
	return &Service{repo: repo, access: accessSvc, auditor: auditor}
}

func (s *Service) CreateSuperbill(ctx context.Context, actor *model.User, req *model.CreateSuperbillRequest) (*model.Superbill, error) {
	if !s.access.CanAccessPatientData(ctx, actor, req.PatientID) {
		return nil, ErrAccessDenied
	}

	now := time.Now()
	superbill := &model.Superbill{
		Base:              model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		PatientID:         req.PatientID,
		TherapistID:       req.TherapistID,
		SessionDate:       req.SessionDate,
		CPTCodes:          req.CPTCodes,
		DiagnosisCodes:    req.DiagnosisCodes,
		Amount:            req.Amount,
		InsuranceProvider: req.InsuranceProvider,
		Status:            model.SuperbillStatusPending,
		Notes:             req.Notes,
	}
	if err := s.repo.Create(ctx, superbill); err != nil {
		return nil, fmt.Errorf("failed to create superbill: %w", err)
	}
	s.auditor.Log(ctx, actor.ID, "create", "superbill", superbill.ID, nil)
	return superbill, nil
}

func (s *Service) GetSuperbill(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Superbill, error) {
	superbill, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get superbill: %w", err)
	}
	if !s.access.CanAccessPatientData(ctx, actor, superbill.PatientID) {
		return nil, ErrAccessDenied
	}
	return superbill, nil
}

func (s *Service) ListByPatient(ctx context.Context, actor *model.User, patientID uuid.UUID) ([]*model.Superbill, error) {
	if !s.access.CanAccessPatientData(ctx, actor, patientID) {
		return nil, ErrAccessDenied
	}
	return s.repo.ListByPatient(ctx, patientID)
}

// Submit moves a pending superbill to submitted with its claim number.
func (s *Service) Submit(ctx context.Context, actor *model.User, id uuid.UUID, claimNumber string) (*model.Superbill, error) {
	superbill, err := s.GetSuperbill(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if superbill.Status != model.SuperbillStatusPending {
		return nil, fmt.Errorf("%w: cannot submit from %s", ErrInvalidTransition, superbill.Status)
	}
	now := time.Now()
	superbill.Status = model.SuperbillStatusSubmitted
	superbill.SubmittedDate = &now
	superbill.ClaimNumber = &claimNumber
	superbill.UpdatedAt = now
	if err := s.repo.Update(ctx, superbill); err != nil {
		return nil, fmt.Errorf("failed to update superbill: %w", err)
	}
	s.auditor.Log(ctx, actor.ID, "submit", "superbill", id, nil)
	return superbill, nil
}

func (s *Service) MarkPaid(ctx context.Context, actor *model.User, id uuid.UUID, amount float64) (*model.Superbill, error) {
	superbill, err := s.GetSuperbill(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if superbill.Status != model.SuperbillStatusSubmitted {
		return nil, fmt.Errorf("%w: cannot mark paid from %s", ErrInvalidTransition, superbill.Status)
	}
	now := time.Now()
	superbill.Status = model.SuperbillStatusPaid
	superbill.PaidDate = &now
	superbill.PaidAmount = &amount
	superbill.UpdatedAt = now
	if err := s.repo.Update(ctx, superbill); err != nil {
		return nil, fmt.Errorf("failed to update superbill: %w", err)
	}
	s.auditor.Log(ctx, actor.ID, "mark_paid", "superbill", id, nil)
	return superbill, nil
}

func (s *Service) Deny(ctx context.Context, actor *model.User, id uuid.UUID, reason string) (*model.Superbill, error) {
	superbill, err := s.GetSuperbill(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if superbill.Status != model.SuperbillStatusSubmitted {
		return nil, fmt.Errorf("%w: cannot deny from %s", ErrInvalidTransition, superbill.Status)
	}
	superbill.Status = model.SuperbillStatusDenied
	superbill.DeniedReason = &reason
	superbill.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, superbill); err != nil {
		return nil, fmt.Errorf("failed to update superbill: %w", err)
	}
	s.auditor.Log(ctx, actor.ID, "deny", "superbill", id, &audit.LogOptions{
		Metadata: map[string]interface{}{"reason": reason},
	})
	return superbill, nil
}

func (s *Service) ListCPTCodes(ctx context.Context) ([]model.CPTCode, error) {
	return s.repo.ListCPTCodes(ctx)
}

func (s *Service) ListDiagnosisCodes(ctx context.Context) ([]model.DiagnosisCode, error) {
	return s.repo.ListDiagnosisCodes(ctx)
}
