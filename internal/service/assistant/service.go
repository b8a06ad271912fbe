package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
	"github.com/Tate5000/Thera-stack/internal/service/callgate"
	"github.com/Tate5000/Thera-stack/internal/service/rbac"
)

var (
	ErrAccessDenied  = errors.New("ai assistance denied")
	ErrCallNotActive = errors.New("call session is not active")
	ErrAccessRevoked = errors.New("ai access to this call was revoked")
)

// CallSummary is an AI-generated recap of a live call.
type CallSummary struct {
	SessionID   uuid.UUID `json:"session_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Text        string    `json:"text"`
}

// Service is the AI-assistance consumer. It never touches patient data
// without the call gate saying Allow for an Active session, and it honors
// revocation signals the moment they arrive rather than waiting for the
// next gate query.
type Service struct {
	gate         *callgate.Gate
	appointments repository.AppointmentRepository

	mu     sync.Mutex
	halted map[uuid.UUID]model.DenyReason
}

func NewService(gate *callgate.Gate, appointments repository.AppointmentRepository) *Service {
	return &Service{
		gate:         gate,
		appointments: appointments,
		halted:       make(map[uuid.UUID]model.DenyReason),
	}
}

// Run consumes the revocation channel until the context ends.
func (s *Service) Run(ctx context.Context, revocations <-chan model.CallRevocation) {
	for {
		select {
		case <-ctx.Done():
			return
		case revocation, ok := <-revocations:
			if !ok {
				return
			}
			s.mu.Lock()
			s.halted[revocation.SessionID] = revocation.Reason
			s.mu.Unlock()
			log.Warn().
				Str("session_id", revocation.SessionID.String()).
				Str("reason", string(revocation.Reason)).
				Msg("ai assistance halted for revoked call")
		}
	}
}

// GenerateSummary produces a call recap. The actor needs the AI-summary
// permission, the session must be Active, the gate must answer Allow right
// now, and no revocation signal may be pending for the session.
func (s *Service) GenerateSummary(ctx context.Context, actor *model.User, sessionID uuid.UUID) (*CallSummary, error) {
	if !rbac.HasPermission(actor, model.PermissionGenerateAISummaries) {
		return nil, ErrAccessDenied
	}

	s.mu.Lock()
	_, revoked := s.halted[sessionID]
	s.mu.Unlock()
	if revoked {
		return nil, ErrAccessRevoked
	}

	session, err := s.gate.Session(ctx, sessionID)
	if err != nil {
		return nil, ErrAccessDenied
	}
	if session.State != model.GateStateActive {
		return nil, ErrCallNotActive
	}
	if decision := s.gate.CheckCallAccess(ctx, sessionID); !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrAccessDenied, decision.Reason)
	}

	history, err := s.appointments.List(ctx, &model.AppointmentFilter{PatientID: session.PatientID})
	if err != nil {
		return nil, fmt.Errorf("failed to load appointment history: %w", err)
	}

	return &CallSummary{
		SessionID:   sessionID,
		PatientID:   session.PatientID,
		GeneratedAt: time.Now(),
		Text: fmt.Sprintf("Session recap for patient %s: %d prior appointments on record; call verified at %s.",
			session.PatientID, len(history), session.LastVerifiedAt.Format(time.RFC3339)),
	}, nil
}
