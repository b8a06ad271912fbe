package callgate

import (
	"context"
	"time"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/service/access"
)

// runRechecks is the per-session verification loop. It stops the instant
// the session's recheck context is cancelled; cancellation happens inside
// the terminal transitions, so no re-check is ever scheduled for a Revoked
// or Ended session.
func (g *Gate) runRechecks(ctx context.Context, sess *session) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.recheck(context.Background(), sess, true)
		}
	}
}

// recheck re-runs the full verification for a live session. refresh forces
// a fresh relationship snapshot: the periodic loop never trusts a copy
// older than the freshness bound, while query-path checks accept a cached
// one inside it. A failed check transitions the session to Revoked and the
// returned reason is the one retained for audit.
func (g *Gate) recheck(ctx context.Context, sess *session, refresh bool) model.DenyReason {
	start := time.Now()
	if g.metrics != nil {
		g.metrics.GateRechecks.Inc()
		defer func() {
			g.metrics.GateRecheckLatency.Observe(time.Since(start).Seconds())
		}()
	}

	sess.mu.Lock()
	state := sess.state
	revokeReason := sess.revokeReason
	sess.mu.Unlock()
	if state != model.GateStateVerified && state != model.GateStateActive {
		return denyForState(state, revokeReason).Reason
	}

	var (
		ix  *access.RelationshipIndex
		err error
	)
	if refresh {
		ix, err = g.access.RefreshIndex(ctx)
	} else {
		ix, err = g.access.CurrentIndex(ctx)
	}
	if err != nil {
		// The snapshot could not be re-verified inside the freshness bound;
		// blind trust is not an option.
		g.revoke(ctx, sess, model.DenyReasonStaleSnapshot)
		return model.DenyReasonStaleSnapshot
	}

	if reason := g.checkParticipants(ctx, sess, ix); reason != model.DenyReasonNone {
		g.revoke(ctx, sess, reason)
		return reason
	}

	sess.mu.Lock()
	if sess.state == model.GateStateVerified || sess.state == model.GateStateActive {
		sess.lastVerifiedAt = time.Now()
	}
	state = sess.state
	revokeReason = sess.revokeReason
	sess.mu.Unlock()

	// A concurrent transition may have finished while we were verifying;
	// its outcome wins.
	if state != model.GateStateVerified && state != model.GateStateActive {
		return denyForState(state, revokeReason).Reason
	}
	return model.DenyReasonNone
}

// checkParticipants applies the session's admission rules against an index:
// every human must pass the access decision for the patient, and an AI
// participant requires the explicit consent grant recorded on the session.
func (g *Gate) checkParticipants(ctx context.Context, sess *session, ix *access.RelationshipIndex) model.DenyReason {
	humans := 0
	for _, p := range sess.participants {
		switch p.Kind {
		case model.ParticipantAI:
			if !sess.aiConsent {
				return model.DenyReasonConsentMissing
			}
		default:
			humans++
			user, err := g.users.Get(ctx, p.UserID)
			if err != nil {
				return model.DenyReasonParticipantGone
			}
			if !access.Decide(user, sess.patientID, ix) {
				return model.DenyReasonAccessLost
			}
		}
	}
	if humans == 0 {
		// The AI agent cannot hold a session on its own; its grant is
		// layered on a supervising human's access.
		return model.DenyReasonNotVerified
	}
	return model.DenyReasonNone
}
