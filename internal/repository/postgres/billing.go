package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
)

const superbillColumns = `id, patient_id, therapist_id, session_date, cpt_codes, diagnosis_codes,
	amount, insurance_provider, status, submitted_date, claim_number,
	paid_date, paid_amount, denied_reason, notes, created_at, updated_at`

type superbillRow struct {
	model.Superbill
	CPTCodesArr       pq.StringArray `db:"cpt_codes"`
	DiagnosisCodesArr pq.StringArray `db:"diagnosis_codes"`
}

func (row *superbillRow) toModel() *model.Superbill {
	sb := row.Superbill
	sb.CPTCodes = []string(row.CPTCodesArr)
	sb.DiagnosisCodes = []string(row.DiagnosisCodesArr)
	return &sb
}

func (r *superbillRepository) Create(ctx context.Context, superbill *model.Superbill) error {
	query := `
		INSERT INTO superbills (id, patient_id, therapist_id, session_date, cpt_codes,
		                        diagnosis_codes, amount, insurance_provider, status,
		                        notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		superbill.ID,
		superbill.PatientID,
		superbill.TherapistID,
		superbill.SessionDate,
		pq.Array(superbill.CPTCodes),
		pq.Array(superbill.DiagnosisCodes),
		superbill.Amount,
		superbill.InsuranceProvider,
		superbill.Status,
		superbill.Notes,
		superbill.CreatedAt,
		superbill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create superbill: %w", err)
	}
	return nil
}

func (r *superbillRepository) Get(ctx context.Context, id uuid.UUID) (*model.Superbill, error) {
	query := `SELECT ` + superbillColumns + ` FROM superbills WHERE id = $1 AND deleted_at IS NULL`
	var row superbillRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get superbill: %w", err)
	}
	return row.toModel(), nil
}

func (r *superbillRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Superbill, error) {
	query := `
		SELECT ` + superbillColumns + `
		FROM superbills
		WHERE patient_id = $1 AND deleted_at IS NULL
		ORDER BY session_date DESC
	`
	var rows []superbillRow
	if err := r.db.SelectContext(ctx, &rows, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list superbills by patient: %w", err)
	}
	return superbillsFromRows(rows), nil
}

func (r *superbillRepository) ListByTherapist(ctx context.Context, therapistID uuid.UUID) ([]*model.Superbill, error) {
	query := `
		SELECT ` + superbillColumns + `
		FROM superbills
		WHERE therapist_id = $1 AND deleted_at IS NULL
		ORDER BY session_date DESC
	`
	var rows []superbillRow
	if err := r.db.SelectContext(ctx, &rows, query, therapistID); err != nil {
		return nil, fmt.Errorf("failed to list superbills by therapist: %w", err)
	}
	return superbillsFromRows(rows), nil
}

func (r *superbillRepository) Update(ctx context.Context, superbill *model.Superbill) error {
	query := `
		UPDATE superbills
		SET status = $1, submitted_date = $2, claim_number = $3, paid_date = $4,
		    paid_amount = $5, denied_reason = $6, notes = $7, updated_at = $8
		WHERE id = $9 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		superbill.Status,
		superbill.SubmittedDate,
		superbill.ClaimNumber,
		superbill.PaidDate,
		superbill.PaidAmount,
		superbill.DeniedReason,
		superbill.Notes,
		superbill.UpdatedAt,
		superbill.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update superbill: %w", err)
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

func (r *superbillRepository) ListCPTCodes(ctx context.Context) ([]model.CPTCode, error) {
	query := `SELECT code, description, default_rate FROM cpt_codes ORDER BY code ASC`
	var codes []model.CPTCode
	if err := r.db.SelectContext(ctx, &codes, query); err != nil {
		return nil, fmt.Errorf("failed to list cpt codes: %w", err)
	}
	return codes, nil
}

func (r *superbillRepository) ListDiagnosisCodes(ctx context.Context) ([]model.DiagnosisCode, error) {
	query := `SELECT code, description FROM diagnosis_codes ORDER BY code ASC`
	var codes []model.DiagnosisCode
	if err := r.db.SelectContext(ctx, &codes, query); err != nil {
		return nil, fmt.Errorf("failed to list diagnosis codes: %w", err)
	}
	return codes, nil
}

func superbillsFromRows(rows []superbillRow) []*model.Superbill {
	superbills := make([]*model.Superbill, 0, len(rows))
	for i := range rows {
		superbills = append(superbills, rows[i].toModel())
	}
	return superbills
}
