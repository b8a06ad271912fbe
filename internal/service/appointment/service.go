package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Tate5000/Thera-stack/internal/email"
	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
	"github.com/Tate5000/Thera-stack/internal/service/access"
	"github.com/Tate5000/Thera-stack/internal/service/audit"
)

var ErrAccessDenied = errors.New("access to appointments denied")

type Service struct {
	repo     repository.AppointmentRepository
	patients repository.PatientRepository
	access   *access.Service
	auditor  *audit.Logger
	mailer   email.Service
}

func NewService(repo repository.AppointmentRepository, patients repository.PatientRepository,
	accessSvc *access.Service, auditor *audit.Logger, mailer email.Service) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		access:   accessSvc,
		auditor:  auditor,
		mailer:   mailer,
	}
}

func (s *Service) CreateAppointment(ctx context.Context, actor *model.User, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	// Whoever books must be allowed to see the patient's data.
	if !s.access.CanAccessPatientData(ctx, actor, req.PatientID) {
		return nil, ErrAccessDenied
	}

	now := time.Now()
	appointment := &model.Appointment{
		Base:        model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		PatientID:   req.PatientID,
		TherapistID: req.TherapistID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Title:       req.Title,
		Notes:       req.Notes,
		Status:      model.AppointmentStatusScheduled,
		Type:        req.Type,
	}
	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	s.auditor.Log(ctx, actor.ID, "create", "appointment", appointment.ID, &audit.LogOptions{Changes: req})
	go s.notifyPatient(appointment)
	return appointment, nil
}

func (s *Service) notifyPatient(appointment *model.Appointment) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record, err := s.patients.Get(ctx, appointment.PatientID)
	if err != nil {
		log.Warn().Err(err).Str("patient_id", appointment.PatientID.String()).
			Msg("skipping appointment notice, patient lookup failed")
		return
	}
	if err := s.mailer.SendAppointmentNotice(record.Email, appointment); err != nil {
		log.Warn().Err(err).Str("appointment_id", appointment.ID.String()).
			Msg("failed to send appointment notice")
	}
}

func (s *Service) GetAppointment(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if !s.access.CanAccessPatientData(ctx, actor, appointment.PatientID) {
		return nil, ErrAccessDenied
	}
	return appointment, nil
}

// ListAppointments scopes results by role: patients see their own calendar,
// doctors their own schedule, admins anything the filter selects.
func (s *Service) ListAppointments(ctx context.Context, actor *model.User, filter *model.AppointmentFilter) ([]*model.Appointment, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return s.repo.List(ctx, filter)
	case model.RoleDoctor:
		filter.TherapistID = actor.ID
		return s.repo.List(ctx, filter)
	case model.RolePatient:
		filter.PatientID = actor.ID
		return s.repo.List(ctx, filter)
	default:
		return nil, ErrAccessDenied
	}
}

func (s *Service) UpdateStatus(ctx context.Context, actor *model.User, id uuid.UUID, status string) error {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get appointment: %w", err)
	}
	if !s.access.CanAccessPatientData(ctx, actor, appointment.PatientID) {
		return ErrAccessDenied
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	s.auditor.Log(ctx, actor.ID, "update_status", "appointment", id, &audit.LogOptions{
		Metadata: map[string]interface{}{"status": status},
	})
	return nil
}
