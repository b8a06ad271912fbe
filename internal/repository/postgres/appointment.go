package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
)

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (id, patient_id, therapist_id, start_time, end_time,
		                          title, notes, status, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.TherapistID,
		appointment.StartTime,
		appointment.EndTime,
		appointment.Title,
		appointment.Notes,
		appointment.Status,
		appointment.Type,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, therapist_id, start_time, end_time,
		       title, notes, status, type, created_at, updated_at
		FROM appointments
		WHERE id = $1 AND deleted_at IS NULL
	`
	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, therapist_id, start_time, end_time,
		       title, notes, status, type, created_at, updated_at
		FROM appointments
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}
	if filter != nil {
		if filter.PatientID != uuid.Nil {
			args = append(args, filter.PatientID)
			query += fmt.Sprintf(` AND patient_id = $%d`, len(args))
		}
		if filter.TherapistID != uuid.Nil {
			args = append(args, filter.TherapistID)
			query += fmt.Sprintf(` AND therapist_id = $%d`, len(args))
		}
		if filter.Status != "" {
			args = append(args, filter.Status)
			query += fmt.Sprintf(` AND status = $%d`, len(args))
		}
		if !filter.StartDate.IsZero() {
			args = append(args, filter.StartDate)
			query += fmt.Sprintf(` AND start_time >= $%d`, len(args))
		}
		if !filter.EndDate.IsZero() {
			args = append(args, filter.EndDate)
			query += fmt.Sprintf(` AND start_time < $%d`, len(args))
		}
	}
	query += ` ORDER BY start_time ASC`

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
