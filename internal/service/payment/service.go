package payment

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
	ErrAccessDenied  = errors.New("access to payment records denied")
	ErrAlreadyPaid   = errors.New("payment already settled")
	ErrMethodUnknown = errors.New("payment method not found")
)

type Service struct {
	repo    repository.PaymentRepository
	access  *access.Service
	auditor *audit.Logger
}

func NewService(repo repository.PaymentRepository, accessSvc *access.Service, auditor *audit.Logger) *Service {
	return &Service{repo: repo, access: accessSvc, auditor: auditor}
}

func (s *Service) CreatePayment(ctx context.Context, actor *model.User, req *model.CreatePaymentRequest) (*model.Payment, error) {
	if !s.access.CanAccessPatientData(ctx, actor, req.PatientID) {
		return nil, ErrAccessDenied
	}
	now := time.Now()
	payment := &model.Payment{
		Base:              model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		PatientID:         req.PatientID,
		TherapistID:       req.TherapistID,
		Amount:            req.Amount,
		DueDate:           req.DueDate,
		Status:            model.PaymentStatusUpcoming,
		Type:              req.Type,
		Description:       req.Description,
		InsuranceCoverage: req.InsuranceCoverage,
		Notes:             req.Notes,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	s.auditor.Log(ctx, actor.ID, "create", "payment", payment.ID, nil)
	return payment, nil
}

func (s *Service) ListByPatient(ctx context.Context, actor *model.User, patientID uuid.UUID) ([]*model.Payment, error) {
	if !s.access.CanAccessPatientData(ctx, actor, patientID) {
		return nil, ErrAccessDenied
	}
	return s.repo.ListByPatient(ctx, patientID)
}

// ProcessPayment settles a payment with a stored method. The method must
// belong to the paying patient.
func (s *Service) ProcessPayment(ctx context.Context, actor *model.User, req *model.ProcessPaymentRequest) (*model.Payment, error) {
	payment, err := s.repo.Get(ctx, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if !s.access.CanAccessPatientData(ctx, actor, payment.PatientID) {
		return nil, ErrAccessDenied
	}
	if payment.Status == model.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}

	method, err := s.repo.GetMethod(ctx, req.PaymentMethodID)
	if err != nil {
		return nil, ErrMethodUnknown
	}
	if method.UserID != payment.PatientID {
		return nil, ErrAccessDenied
	}

	now := time.Now()
	txn := fmt.Sprintf("txn-%s", uuid.New().String()[:8])
	payment.Status = model.PaymentStatusPaid
	payment.PaidDate = &now
	payment.PaymentMethodID = &method.ID
	payment.TransactionID = &txn
	payment.UpdatedAt = now
	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	s.auditor.Log(ctx, actor.ID, "process", "payment", payment.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{"transaction_id": txn},
	})
	return payment, nil
}

func (s *Service) AddPaymentMethod(ctx context.Context, actor *model.User, method *model.PaymentMethod) error {
	if actor.Role != model.RoleAdmin && actor.ID != method.UserID {
		return ErrAccessDenied
	}
	now := time.Now()
	method.ID = uuid.New()
	method.CreatedAt = now
	method.UpdatedAt = now
	if err := s.repo.CreateMethod(ctx, method); err != nil {
		return fmt.Errorf("failed to store payment method: %w", err)
	}
	return nil
}

func (s *Service) ListPaymentMethods(ctx context.Context, actor *model.User, userID uuid.UUID) ([]*model.PaymentMethod, error) {
	if actor.Role != model.RoleAdmin && actor.ID != userID {
		return nil, ErrAccessDenied
	}
	return s.repo.ListMethods(ctx, userID)
}

// SweepOverdue marks unpaid payments past their due date as overdue.
// Called by the worker.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	return s.repo.MarkOverdue(ctx, time.Now())
}
