// Package access holds the relationship index and the access decision
// engine: the resource-level axis of the authorization core. Decisions are
// pure functions over a point-in-time snapshot; nothing here mutates shared
// state, so every function is safe to call on every request.
package access

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Tate5000/Thera-stack/internal/model"
)

// Decide is the access decision engine over an explicit index. Admins are
// the single deliberate bypass of the relationship check; patients see only
// themselves; doctors see assigned patients. There is no implicit allow
// branch: anything else is denied.
func Decide(user *model.User, patientID uuid.UUID, ix *RelationshipIndex) bool {
	if user == nil {
		return false
	}
	switch user.Role {
	case model.RoleAdmin:
		return true
	case model.RolePatient:
		return user.ID == patientID
	case model.RoleDoctor:
		return ix != nil && ix.IsAssigned(user.ID, patientID)
	default:
		return false
	}
}

// Service wraps Decide with the snapshot provider so callers don't carry
// indexes around.
type Service struct {
	snapshots SnapshotProvider
}

func NewService(snapshots SnapshotProvider) *Service {
	return &Service{snapshots: snapshots}
}

// CanAccessPatientData decides whether the user may see the patient's data.
// A snapshot load failure is a denial, never an implicit allow; only doctor
// decisions need the index at all, so admin and self-access never block on
// it.
func (s *Service) CanAccessPatientData(ctx context.Context, user *model.User, patientID uuid.UUID) bool {
	if user == nil {
		return false
	}
	switch user.Role {
	case model.RoleAdmin:
		return true
	case model.RolePatient:
		return user.ID == patientID
	case model.RoleDoctor:
		ix, err := s.snapshots.Current(ctx)
		if err != nil {
			log.Warn().Err(err).
				Str("user_id", user.ID.String()).
				Str("patient_id", patientID.String()).
				Msg("relationship snapshot unavailable, denying access")
			return false
		}
		return ix.IsAssigned(user.ID, patientID)
	default:
		return false
	}
}

// RefreshIndex forces a fresh snapshot; the call gate uses it on its
// re-check interval so an expired snapshot forces re-verification instead of
// being trusted.
func (s *Service) RefreshIndex(ctx context.Context) (*RelationshipIndex, error) {
	return s.snapshots.Refresh(ctx)
}

// CurrentIndex returns the current (possibly cached) index.
func (s *Service) CurrentIndex(ctx context.Context) (*RelationshipIndex, error) {
	return s.snapshots.Current(ctx)
}
