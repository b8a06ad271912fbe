package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
)

const paymentColumns = `id, patient_id, therapist_id, amount, due_date, paid_date, status,
	type, description, insurance_coverage, payment_method_id, transaction_id,
	notes, created_at, updated_at`

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (id, patient_id, therapist_id, amount, due_date, status,
		                      type, description, insurance_coverage, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.PatientID,
		payment.TherapistID,
		payment.Amount,
		payment.DueDate,
		payment.Status,
		payment.Type,
		payment.Description,
		payment.InsuranceCoverage,
		payment.Notes,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND deleted_at IS NULL`
	var payment model.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE patient_id = $1 AND deleted_at IS NULL
		ORDER BY due_date DESC
	`
	var payments []*model.Payment
	if err := r.db.SelectContext(ctx, &payments, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list payments by patient: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	query := `
		UPDATE payments
		SET amount = $1, due_date = $2, paid_date = $3, status = $4,
		    payment_method_id = $5, transaction_id = $6, notes = $7, updated_at = $8
		WHERE id = $9 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		payment.Amount,
		payment.DueDate,
		payment.PaidDate,
		payment.Status,
		payment.PaymentMethodID,
		payment.TransactionID,
		payment.Notes,
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
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

func (r *paymentRepository) MarkOverdue(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND due_date < $3 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, model.PaymentStatusOverdue, model.PaymentStatusUpcoming, before)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue payments: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *paymentRepository) CreateMethod(ctx context.Context, method *model.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (id, user_id, type, name, last4, exp_month,
		                             exp_year, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		method.ID,
		method.UserID,
		method.Type,
		method.Name,
		method.Last4,
		method.ExpMonth,
		method.ExpYear,
		method.IsDefault,
		method.CreatedAt,
		method.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment method: %w", err)
	}
	return nil
}

func (r *paymentRepository) ListMethods(ctx context.Context, userID uuid.UUID) ([]*model.PaymentMethod, error) {
	query := `
		SELECT id, user_id, type, name, last4, exp_month, exp_year, is_default, created_at, updated_at
		FROM payment_methods
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY is_default DESC, created_at DESC
	`
	var methods []*model.PaymentMethod
	if err := r.db.SelectContext(ctx, &methods, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}

func (r *paymentRepository) GetMethod(ctx context.Context, id uuid.UUID) (*model.PaymentMethod, error) {
	query := `
		SELECT id, user_id, type, name, last4, exp_month, exp_year, is_default, created_at, updated_at
		FROM payment_methods
		WHERE id = $1 AND deleted_at IS NULL
	`
	var method model.PaymentMethod
	if err := r.db.GetContext(ctx, &method, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	return &method, nil
}
