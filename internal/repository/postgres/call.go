package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
)

type callSessionRow struct {
	model.CallSession
	RawParticipants []byte `db:"participants"`
}

func (row *callSessionRow) toModel() (*model.CallSession, error) {
	session := row.CallSession
	if len(row.RawParticipants) > 0 {
		if err := json.Unmarshal(row.RawParticipants, &session.Participants); err != nil {
			return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
		}
	}
	return &session, nil
}

func (r *callSessionRepository) Archive(ctx context.Context, session *model.CallSession) error {
	participants, err := json.Marshal(session.Participants)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}
	query := `
		INSERT INTO call_sessions (id, patient_id, participants, state, ai_consent,
		                           revoke_reason, transitions, created_at, last_verified_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state,
		    revoke_reason = EXCLUDED.revoke_reason,
		    transitions = EXCLUDED.transitions,
		    last_verified_at = EXCLUDED.last_verified_at,
		    ended_at = EXCLUDED.ended_at
	`
	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.PatientID,
		participants,
		session.State,
		session.AIConsent,
		session.RevokeReason,
		session.Transitions,
		session.CreatedAt,
		session.LastVerifiedAt,
		session.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive call session: %w", err)
	}
	return nil
}

func (r *callSessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.CallSession, error) {
	query := `
		SELECT id, patient_id, participants, state, ai_consent,
		       revoke_reason, transitions, created_at, last_verified_at, ended_at
		FROM call_sessions
		WHERE id = $1
	`
	var row callSessionRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get call session: %w", err)
	}
	return row.toModel()
}

func (r *callSessionRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.CallSession, error) {
	query := `
		SELECT id, patient_id, participants, state, ai_consent,
		       revoke_reason, transitions, created_at, last_verified_at, ended_at
		FROM call_sessions
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	var rows []callSessionRow
	if err := r.db.SelectContext(ctx, &rows, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list call sessions: %w", err)
	}
	sessions := make([]*model.CallSession, 0, len(rows))
	for i := range rows {
		session, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
