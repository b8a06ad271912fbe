package model

import (
	"time"

	"github.com/google/uuid"
)

// GateState is the call verification gate's per-session state.
// Requested → Verified → Active → {Revoked, Ended}; Revoked and Ended are
// absorbing.
type GateState string

const (
	GateStateRequested GateState = "requested"
	GateStateVerified  GateState = "verified"
	GateStateActive    GateState = "active"
	GateStateRevoked   GateState = "revoked"
	GateStateEnded     GateState = "ended"
)

// Terminal reports whether no further transitions are possible.
func (s GateState) Terminal() bool {
	return s == GateStateRevoked || s == GateStateEnded
}

// ParticipantKind distinguishes human participants, whose access is decided
// by role and relationship, from the AI agent, which is only ever admitted
// through an explicit consent grant.
type ParticipantKind string

const (
	ParticipantHuman ParticipantKind = "human"
	ParticipantAI    ParticipantKind = "ai"
)

// Participant is one member of a call session.
type Participant struct {
	UserID uuid.UUID       `json:"user_id" db:"user_id"`
	Kind   ParticipantKind `json:"kind" db:"kind"`
}

// DenyReason explains why the gate refused or revoked access.
type DenyReason string

const (
	DenyReasonNone            DenyReason = ""
	DenyReasonUnknownSession  DenyReason = "unknown_session"
	DenyReasonNotVerified     DenyReason = "not_verified"
	DenyReasonSessionEnded    DenyReason = "session_ended"
	DenyReasonRevokedAccess   DenyReason = "revoked_access"
	DenyReasonAccessLost      DenyReason = "access_lost"
	DenyReasonConsentMissing  DenyReason = "consent_missing"
	DenyReasonStaleSnapshot   DenyReason = "stale_snapshot"
	DenyReasonParticipantGone DenyReason = "participant_not_found"
	DenyReasonSessionInactive DenyReason = "session_inactive"
)

// CallSession is the persisted record of a call session, archived when the
// session reaches a terminal state so the reporting collaborator can read
// revocation reasons after the fact.
type CallSession struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	PatientID      uuid.UUID     `json:"patient_id" db:"patient_id"`
	Participants   []Participant `json:"participants" db:"-"`
	State          GateState     `json:"state" db:"state"`
	AIConsent      bool          `json:"ai_consent" db:"ai_consent"`
	RevokeReason   DenyReason    `json:"revoke_reason,omitempty" db:"revoke_reason"`
	Transitions    uint64        `json:"transitions" db:"transitions"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	LastVerifiedAt time.Time     `json:"last_verified_at" db:"last_verified_at"`
	EndedAt        *time.Time    `json:"ended_at,omitempty" db:"ended_at"`
}

// CallRevocation is the signal published when a live session loses access,
// consumed by the AI-assistance collaborator so it stops using patient data
// immediately.
type CallRevocation struct {
	SessionID uuid.UUID  `json:"session_id"`
	PatientID uuid.UUID  `json:"patient_id"`
	Reason    DenyReason `json:"reason"`
	RevokedAt time.Time  `json:"revoked_at"`
}

// CallVerificationRequest asks the gate to admit a new call session.
type CallVerificationRequest struct {
	PatientID    uuid.UUID     `json:"patient_id" binding:"required"`
	Participants []Participant `json:"participants" binding:"required,min=1"`
	// AIConsent records the patient's explicit grant for AI exposure of
	// their data during this call. Never inferred from roles.
	AIConsent bool `json:"ai_consent"`
}
