package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
)

func (r *assignmentRepository) ListActive(ctx context.Context) ([]model.Assignment, error) {
	query := `
		SELECT therapist_id, patient_id, assigned_by, created_at
		FROM assignments
		WHERE revoked_at IS NULL
		ORDER BY created_at ASC
	`
	var assignments []model.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query); err != nil {
		return nil, fmt.Errorf("failed to list active assignments: %w", err)
	}
	return assignments, nil
}

func (r *assignmentRepository) Assign(ctx context.Context, assignment *model.Assignment) error {
	query := `
		INSERT INTO assignments (therapist_id, patient_id, assigned_by, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (therapist_id, patient_id) WHERE revoked_at IS NULL DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		assignment.TherapistID,
		assignment.PatientID,
		assignment.AssignedBy,
		assignment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrDuplicateAssignment
	}
	return nil
}

func (r *assignmentRepository) Unassign(ctx context.Context, therapistID, patientID uuid.UUID) error {
	query := `
		UPDATE assignments
		SET revoked_at = NOW()
		WHERE therapist_id = $1 AND patient_id = $2 AND revoked_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, therapistID, patientID)
	if err != nil {
		return fmt.Errorf("failed to revoke assignment: %w", err)
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
