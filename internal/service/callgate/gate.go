// Package callgate enforces continuous authorization of patient-data access
// during live AI-assisted calls. Each session runs a small state machine,
// Requested → Verified → Active → {Revoked, Ended}; while a session is
// Active the gate keeps re-running the access decision and revokes the
// moment a check fails. Revoked and Ended are absorbing.
package callgate

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
	"github.com/Tate5000/Thera-stack/internal/service/access"
	"github.com/Tate5000/Thera-stack/internal/service/audit"
	"github.com/Tate5000/Thera-stack/pkg/metrics"
)

var (
	ErrSessionNotFound   = errors.New("call session not found")
	ErrInvalidTransition = errors.New("invalid gate state transition")
)

// VerificationError carries the reason a Requested session could not be
// verified. The session stays Requested; the caller may retry once the
// blocking condition (missing consent, lost assignment) is resolved.
type VerificationError struct {
	Reason model.DenyReason
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("call verification failed: %s", e.Reason)
}

// Decision is the gate's answer to a call-access query. Denial is a normal
// return value, never an error.
type Decision struct {
	Allowed bool             `json:"allowed"`
	Reason  model.DenyReason `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason model.DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// RevocationPublisher signals dependent collaborators (the AI-assistance
// consumer) that a session lost access.
type RevocationPublisher interface {
	PublishRevocation(ctx context.Context, revocation model.CallRevocation) error
}

type session struct {
	mu sync.Mutex

	id             uuid.UUID
	patientID      uuid.UUID
	participants   []model.Participant
	aiConsent      bool
	state          model.GateState
	revokeReason   model.DenyReason
	transitions    uint64
	createdAt      time.Time
	lastVerifiedAt time.Time
	endedAt        *time.Time

	cancelRecheck context.CancelFunc
}

func (s *session) snapshot() *model.CallSession {
	participants := make([]model.Participant, len(s.participants))
	copy(participants, s.participants)
	return &model.CallSession{
		ID:             s.id,
		PatientID:      s.patientID,
		Participants:   participants,
		State:          s.state,
		AIConsent:      s.aiConsent,
		RevokeReason:   s.revokeReason,
		Transitions:    s.transitions,
		CreatedAt:      s.createdAt,
		LastVerifiedAt: s.lastVerifiedAt,
		EndedAt:        s.endedAt,
	}
}

// Config holds the gate's tunables.
type Config struct {
	// RecheckInterval is how often an Active session is re-verified even
	// without an explicit query or relationship change.
	RecheckInterval time.Duration
	// RequestedTTL is how long a session may sit in Requested before it is
	// treated as abandoned and swept from the gate.
	RequestedTTL time.Duration
}

// Gate owns every live call session. It is the only stateful component of
// the authorization core; transitions are serialized per session.
type Gate struct {
	access    *access.Service
	users     repository.UserRepository
	archive   repository.CallSessionRepository
	publisher RevocationPublisher
	auditor   *audit.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	reqTTL    time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
}

func NewGate(
	accessSvc *access.Service,
	users repository.UserRepository,
	archive repository.CallSessionRepository,
	publisher RevocationPublisher,
	auditor *audit.Logger,
	m *metrics.Metrics,
	cfg Config,
) *Gate {
	interval := cfg.RecheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	reqTTL := cfg.RequestedTTL
	if reqTTL <= 0 {
		reqTTL = 15 * time.Minute
	}
	return &Gate{
		access:    accessSvc,
		users:     users,
		archive:   archive,
		publisher: publisher,
		auditor:   auditor,
		metrics:   m,
		interval:  interval,
		reqTTL:    reqTTL,
		sessions:  make(map[uuid.UUID]*session),
	}
}

// RequestVerification creates a session for the call and attempts the
// Requested → Verified transition. Verification requires every human
// participant to pass the access decision for the session's patient, and an
// explicit consent grant for any AI participant; the AI is never admitted on
// role alone. On failure the session stays Requested and the blocking reason
// is returned.
func (g *Gate) RequestVerification(ctx context.Context, req *model.CallVerificationRequest) (uuid.UUID, model.GateState, error) {
	sess := &session{
		id:           uuid.New(),
		patientID:    req.PatientID,
		participants: append([]model.Participant(nil), req.Participants...),
		aiConsent:    req.AIConsent,
		state:        model.GateStateRequested,
		createdAt:    time.Now(),
	}

	g.sweepStaleRequested()

	g.mu.Lock()
	g.sessions[sess.id] = sess
	g.mu.Unlock()

	state, err := g.Verify(ctx, sess.id)
	return sess.id, state, err
}

// Verify retries the Requested → Verified transition for an existing
// session.
func (g *Gate) Verify(ctx context.Context, sessionID uuid.UUID) (model.GateState, error) {
	sess, ok := g.lookup(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}

	ix, err := g.access.CurrentIndex(ctx)
	if err != nil {
		g.countVerification("error")
		return model.GateStateRequested, &VerificationError{Reason: model.DenyReasonStaleSnapshot}
	}
	reason := g.checkParticipants(ctx, sess, ix)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != model.GateStateRequested {
		return sess.state, fmt.Errorf("%w: cannot verify a %s session", ErrInvalidTransition, sess.state)
	}
	if reason != model.DenyReasonNone {
		g.countVerification("denied")
		return sess.state, &VerificationError{Reason: reason}
	}

	sess.state = model.GateStateVerified
	sess.lastVerifiedAt = time.Now()
	sess.transitions++
	g.countVerification("verified")
	g.audit(ctx, sess, "call_verified", map[string]interface{}{"transition": sess.transitions})
	return sess.state, nil
}

// Start moves a Verified session to Active and begins the periodic re-check
// loop. From this point the session holds a live access grant.
func (g *Gate) Start(ctx context.Context, sessionID uuid.UUID) error {
	sess, ok := g.lookup(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	if sess.state != model.GateStateVerified {
		state := sess.state
		sess.mu.Unlock()
		return fmt.Errorf("%w: cannot start a %s session", ErrInvalidTransition, state)
	}
	sess.state = model.GateStateActive
	sess.transitions++
	seq := sess.transitions

	recheckCtx, cancel := context.WithCancel(context.Background())
	sess.cancelRecheck = cancel
	sess.mu.Unlock()

	if g.metrics != nil {
		g.metrics.GateSessionsActive.Inc()
	}
	g.audit(ctx, sess, "call_started", map[string]interface{}{"transition": seq})

	go g.runRechecks(recheckCtx, sess)
	return nil
}

// End is the normal Active → Ended termination. Ended is absorbing; the
// re-check loop is cancelled immediately, the session is archived, and the
// archived copy replaces the in-memory one. Later queries for the session
// are answered from the archive.
func (g *Gate) End(ctx context.Context, sessionID uuid.UUID) error {
	sess, ok := g.lookup(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	if sess.state != model.GateStateActive {
		state := sess.state
		sess.mu.Unlock()
		return fmt.Errorf("%w: cannot end a %s session", ErrInvalidTransition, state)
	}
	sess.state = model.GateStateEnded
	now := time.Now()
	sess.endedAt = &now
	sess.transitions++
	if sess.cancelRecheck != nil {
		sess.cancelRecheck()
		sess.cancelRecheck = nil
	}
	record := sess.snapshot()
	sess.mu.Unlock()

	if g.metrics != nil {
		g.metrics.GateSessionsActive.Dec()
	}
	g.audit(ctx, sess, "call_ended", map[string]interface{}{"transition": record.Transitions})
	if g.archiveSession(ctx, record) == nil {
		g.drop(record.ID)
	}
	return nil
}

// CheckCallAccess answers whether patient data may be used for the session
// right now. Only Verified and Active sessions can be allowed, and even then
// the verification is re-run on the spot, so a stale ticker can never extend
// access. Every terminal or undefined state denies.
func (g *Gate) CheckCallAccess(ctx context.Context, sessionID uuid.UUID) Decision {
	sess, ok := g.lookup(sessionID)
	if !ok {
		// Terminal sessions live in the archive, which keeps their reason.
		if archived, err := g.archive.Get(ctx, sessionID); err == nil {
			return denyForState(archived.State, archived.RevokeReason)
		}
		return deny(model.DenyReasonUnknownSession)
	}

	sess.mu.Lock()
	state := sess.state
	revokeReason := sess.revokeReason
	sess.mu.Unlock()

	switch state {
	case model.GateStateVerified, model.GateStateActive:
		if reason := g.recheck(ctx, sess, false); reason != model.DenyReasonNone {
			return deny(reason)
		}
		return allow()
	default:
		return denyForState(state, revokeReason)
	}
}

func denyForState(state model.GateState, revokeReason model.DenyReason) Decision {
	switch state {
	case model.GateStateRequested:
		return deny(model.DenyReasonNotVerified)
	case model.GateStateEnded:
		return deny(model.DenyReasonSessionEnded)
	case model.GateStateRevoked:
		if revokeReason == model.DenyReasonNone {
			revokeReason = model.DenyReasonRevokedAccess
		}
		return deny(revokeReason)
	default:
		return deny(model.DenyReasonSessionInactive)
	}
}

// Revoke forces a session into the Revoked state with the given reason and
// synchronously signals the AI-assistance consumer. Revoked is absorbing.
func (g *Gate) Revoke(ctx context.Context, sessionID uuid.UUID, reason model.DenyReason) error {
	sess, ok := g.lookup(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	return g.revoke(ctx, sess, reason)
}

func (g *Gate) revoke(ctx context.Context, sess *session, reason model.DenyReason) error {
	sess.mu.Lock()
	if sess.state.Terminal() {
		sess.mu.Unlock()
		return nil
	}
	wasActive := sess.state == model.GateStateActive
	sess.state = model.GateStateRevoked
	sess.revokeReason = reason
	now := time.Now()
	sess.endedAt = &now
	sess.transitions++
	if sess.cancelRecheck != nil {
		sess.cancelRecheck()
		sess.cancelRecheck = nil
	}
	record := sess.snapshot()
	sess.mu.Unlock()

	if g.metrics != nil {
		if wasActive {
			g.metrics.GateSessionsActive.Dec()
		}
		g.metrics.GateRevocations.WithLabelValues(string(reason)).Inc()
	}

	log.Warn().
		Str("session_id", sess.id.String()).
		Str("patient_id", sess.patientID.String()).
		Str("reason", string(reason)).
		Msg("call session revoked")

	// The consumer must stop using patient data before we return.
	if g.publisher != nil {
		if err := g.publisher.PublishRevocation(ctx, model.CallRevocation{
			SessionID: sess.id,
			PatientID: sess.patientID,
			Reason:    reason,
			RevokedAt: now,
		}); err != nil {
			log.Error().Err(err).
				Str("session_id", sess.id.String()).
				Msg("failed to publish call revocation")
		}
	}

	g.audit(ctx, sess, "call_revoked", map[string]interface{}{
		"reason":     string(reason),
		"transition": record.Transitions,
	})
	if g.archiveSession(ctx, record) == nil {
		g.drop(record.ID)
	}
	return nil
}

// RecheckPatient re-verifies every live session for the patient. The
// assignment writer calls this after any relationship change so revocation
// does not wait for the next tick.
func (g *Gate) RecheckPatient(ctx context.Context, patientID uuid.UUID) {
	g.mu.RLock()
	var affected []*session
	for _, sess := range g.sessions {
		if sess.patientID == patientID {
			affected = append(affected, sess)
		}
	}
	g.mu.RUnlock()

	for _, sess := range affected {
		g.recheck(ctx, sess, true)
	}
}

// Session returns the current state of a session, preferring the in-memory
// gate and falling back to the archive.
func (g *Gate) Session(ctx context.Context, sessionID uuid.UUID) (*model.CallSession, error) {
	if sess, ok := g.lookup(sessionID); ok {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return sess.snapshot(), nil
	}
	archived, err := g.archive.Get(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return archived, nil
}

func (g *Gate) lookup(sessionID uuid.UUID) (*session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	sess, ok := g.sessions[sessionID]
	return sess, ok
}

func (g *Gate) drop(sessionID uuid.UUID) {
	g.mu.Lock()
	delete(g.sessions, sessionID)
	g.mu.Unlock()
}

// sweepStaleRequested drops sessions that never left Requested. A failed
// verification may be retried, but an abandoned request must not occupy the
// gate for the life of the process.
func (g *Gate) sweepStaleRequested() {
	cutoff := time.Now().Add(-g.reqTTL)
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, sess := range g.sessions {
		sess.mu.Lock()
		stale := sess.state == model.GateStateRequested && sess.createdAt.Before(cutoff)
		sess.mu.Unlock()
		if stale {
			delete(g.sessions, id)
		}
	}
}

func (g *Gate) countVerification(result string) {
	if g.metrics != nil {
		g.metrics.GateVerifications.WithLabelValues(result).Inc()
	}
}

func (g *Gate) audit(ctx context.Context, sess *session, action string, metadata map[string]interface{}) {
	if g.auditor == nil {
		return
	}
	g.auditor.Log(ctx, sess.patientID, action, "call_session", sess.id, &audit.LogOptions{
		Metadata: metadata,
	})
}

func (g *Gate) archiveSession(ctx context.Context, record *model.CallSession) error {
	if err := g.archive.Archive(ctx, record); err != nil {
		// The caller keeps the session in memory so the terminal state
		// and reason stay queryable despite the failed write.
		log.Error().Err(err).
			Str("session_id", record.ID.String()).
			Msg("failed to archive call session")
		return err
	}
	return nil
}
