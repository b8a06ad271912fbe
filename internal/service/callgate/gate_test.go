package callgate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
	"github.com/Tate5000/Thera-stack/internal/service/access"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error { return nil }

func (r *fakeUserRepo) List(ctx context.Context, filter *model.UserFilter) ([]*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) GrantPermission(ctx context.Context, userID uuid.UUID, permission model.Permission) error {
	return nil
}

type fakeArchive struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.CallSession
}

func (a *fakeArchive) Archive(ctx context.Context, sess *model.CallSession) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[sess.ID] = sess
	return nil
}

func (a *fakeArchive) Get(ctx context.Context, id uuid.UUID) (*model.CallSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sess, ok := a.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return sess, nil
}

func (a *fakeArchive) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.CallSession, error) {
	return nil, nil
}

type fakePublisher struct {
	mu          sync.Mutex
	revocations []model.CallRevocation
}

func (p *fakePublisher) PublishRevocation(ctx context.Context, revocation model.CallRevocation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revocations = append(p.revocations, revocation)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.revocations)
}

// mutableProvider lets tests swap the relationship index mid-call, standing
// in for the scheduling collaborator updating assignments.
type mutableProvider struct {
	mu  sync.Mutex
	ix  *access.RelationshipIndex
	err error
}

func (p *mutableProvider) Current(ctx context.Context) (*access.RelationshipIndex, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ix, p.err
}

func (p *mutableProvider) Refresh(ctx context.Context) (*access.RelationshipIndex, error) {
	return p.Current(ctx)
}

func (p *mutableProvider) set(ix *access.RelationshipIndex, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ix = ix
	p.err = err
}

type fixture struct {
	gate      *Gate
	users     *fakeUserRepo
	archive   *fakeArchive
	publisher *fakePublisher
	provider  *mutableProvider

	doctor  *model.User
	patient *model.User
}

func indexWith(t *testing.T, assignments ...model.Assignment) *access.RelationshipIndex {
	t.Helper()
	ix, err := access.NewRelationshipIndex(&model.RelationshipSnapshot{
		Assignments: assignments,
		TakenAt:     time.Now(),
	})
	require.NoError(t, err)
	return ix
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	doctor, err := model.NewUser(uuid.New(), "doctor1@example.com", "Doctor One", "doctor", nil)
	require.NoError(t, err)
	patient, err := model.NewUser(uuid.New(), "patient1@example.com", "Patient One", "patient", nil)
	require.NoError(t, err)

	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{
		doctor.ID:  doctor,
		patient.ID: patient,
	}}
	provider := &mutableProvider{ix: indexWith(t, model.Assignment{
		TherapistID: doctor.ID,
		PatientID:   patient.ID,
	})}
	archive := &fakeArchive{sessions: make(map[uuid.UUID]*model.CallSession)}
	publisher := &fakePublisher{}

	gate := NewGate(
		access.NewService(provider),
		users,
		archive,
		publisher,
		nil,
		nil,
		Config{RecheckInterval: time.Hour},
	)

	return &fixture{
		gate:      gate,
		users:     users,
		archive:   archive,
		publisher: publisher,
		provider:  provider,
		doctor:    doctor,
		patient:   patient,
	}
}

func (f *fixture) request(t *testing.T, aiConsent bool) uuid.UUID {
	t.Helper()
	id, state, err := f.gate.RequestVerification(context.Background(), &model.CallVerificationRequest{
		PatientID: f.patient.ID,
		Participants: []model.Participant{
			{UserID: f.doctor.ID, Kind: model.ParticipantHuman},
			{UserID: f.patient.ID, Kind: model.ParticipantHuman},
			{Kind: model.ParticipantAI},
		},
		AIConsent: aiConsent,
	})
	require.NoError(t, err)
	require.Equal(t, model.GateStateVerified, state)
	return id
}

func TestGateLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.request(t, true)

	require.NoError(t, f.gate.Start(ctx, id))
	decision := f.gate.CheckCallAccess(ctx, id)
	assert.True(t, decision.Allowed)

	require.NoError(t, f.gate.End(ctx, id))
	decision = f.gate.CheckCallAccess(ctx, id)
	assert.False(t, decision.Allowed)
	assert.Equal(t, model.DenyReasonSessionEnded, decision.Reason)

	// The terminal session lives in the archive, not the gate.
	_, resident := f.gate.lookup(id)
	assert.False(t, resident)
	assert.ErrorIs(t, f.gate.Start(ctx, id), ErrSessionNotFound)
	_, err := f.gate.Verify(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	archived, err := f.archive.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.GateStateEnded, archived.State)
	assert.Equal(t, uint64(3), archived.Transitions)

	// Session queries are answered from the archive.
	sess, err := f.gate.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.GateStateEnded, sess.State)
}

func TestGateDeniesWhileRequested(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Missing consent keeps the session in Requested.
	id, state, err := f.gate.RequestVerification(ctx, &model.CallVerificationRequest{
		PatientID: f.patient.ID,
		Participants: []model.Participant{
			{UserID: f.doctor.ID, Kind: model.ParticipantHuman},
			{Kind: model.ParticipantAI},
		},
		AIConsent: false,
	})
	require.Error(t, err)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.DenyReasonConsentMissing, verr.Reason)
	assert.Equal(t, model.GateStateRequested, state)

	decision := f.gate.CheckCallAccess(ctx, id)
	assert.False(t, decision.Allowed)
	assert.Equal(t, model.DenyReasonNotVerified, decision.Reason)

	// A Requested session cannot start.
	assert.ErrorIs(t, f.gate.Start(ctx, id), ErrInvalidTransition)

	// Once consent is granted, verification can be retried.
	sess, ok := f.gate.lookup(id)
	require.True(t, ok)
	sess.mu.Lock()
	sess.aiConsent = true
	sess.mu.Unlock()

	state, err = f.gate.Verify(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.GateStateVerified, state)
}

func TestGateRejectsUnassignedTherapist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stranger, err := model.NewUser(uuid.New(), "doctor2@example.com", "Doctor Two", "doctor", nil)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, stranger))

	_, state, err := f.gate.RequestVerification(ctx, &model.CallVerificationRequest{
		PatientID: f.patient.ID,
		Participants: []model.Participant{
			{UserID: stranger.ID, Kind: model.ParticipantHuman},
		},
	})
	require.Error(t, err)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.DenyReasonAccessLost, verr.Reason)
	assert.Equal(t, model.GateStateRequested, state)
}

func TestGateRequiresHumanParticipant(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.gate.RequestVerification(context.Background(), &model.CallVerificationRequest{
		PatientID:    f.patient.ID,
		Participants: []model.Participant{{Kind: model.ParticipantAI}},
		AIConsent:    true,
	})
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.DenyReasonNotVerified, verr.Reason)
}

func TestGateRevokesWhenAssignmentRemoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.request(t, true)
	require.NoError(t, f.gate.Start(ctx, id))
	require.True(t, f.gate.CheckCallAccess(ctx, id).Allowed)

	// The scheduling collaborator unassigns the doctor mid-call.
	f.provider.set(indexWith(t), nil)
	f.gate.RecheckPatient(ctx, f.patient.ID)

	decision := f.gate.CheckCallAccess(ctx, id)
	assert.False(t, decision.Allowed)
	assert.Equal(t, model.DenyReasonAccessLost, decision.Reason)

	// The revocation was signalled synchronously.
	assert.Equal(t, 1, f.publisher.count())

	// Revoked is absorbing: re-assigning does not resurrect the session.
	f.provider.set(indexWith(t, model.Assignment{
		TherapistID: f.doctor.ID,
		PatientID:   f.patient.ID,
	}), nil)
	decision = f.gate.CheckCallAccess(ctx, id)
	assert.False(t, decision.Allowed)
	assert.Equal(t, model.DenyReasonAccessLost, decision.Reason)
	assert.ErrorIs(t, f.gate.Start(ctx, id), ErrSessionNotFound)

	archived, err := f.archive.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.GateStateRevoked, archived.State)
	assert.Equal(t, model.DenyReasonAccessLost, archived.RevokeReason)
}

func TestGateCheckRevokesOnTheSpot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.request(t, true)
	require.NoError(t, f.gate.Start(ctx, id))

	// No explicit recheck: the next query itself must catch the change.
	f.provider.set(indexWith(t), nil)
	decision := f.gate.CheckCallAccess(ctx, id)
	assert.False(t, decision.Allowed)
	assert.Equal(t, model.DenyReasonAccessLost, decision.Reason)
	assert.Equal(t, 1, f.publisher.count())
}

func TestGateRevokesOnSnapshotFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.request(t, true)
	require.NoError(t, f.gate.Start(ctx, id))

	f.provider.set(nil, errors.New("assignment store unreachable"))
	f.gate.RecheckPatient(ctx, f.patient.ID)

	decision := f.gate.CheckCallAccess(ctx, id)
	assert.False(t, decision.Allowed)
	assert.Equal(t, model.DenyReasonStaleSnapshot, decision.Reason)
}

func TestGateLostParticipantRevokes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.request(t, true)
	require.NoError(t, f.gate.Start(ctx, id))

	f.users.mu.Lock()
	delete(f.users.users, f.doctor.ID)
	f.users.mu.Unlock()

	f.gate.RecheckPatient(ctx, f.patient.ID)
	decision := f.gate.CheckCallAccess(ctx, id)
	assert.False(t, decision.Allowed)
	assert.Equal(t, model.DenyReasonParticipantGone, decision.Reason)
}

func TestGateUnknownSessionDenies(t *testing.T) {
	f := newFixture(t)

	decision := f.gate.CheckCallAccess(context.Background(), uuid.New())
	assert.False(t, decision.Allowed)
	assert.Equal(t, model.DenyReasonUnknownSession, decision.Reason)
}

func TestGatePeriodicRecheckRevokes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Short interval so the ticker fires during the test.
	f.gate.interval = 10 * time.Millisecond

	id := f.request(t, true)
	require.NoError(t, f.gate.Start(ctx, id))

	f.provider.set(indexWith(t), nil)

	require.Eventually(t, func() bool {
		archived, err := f.archive.Get(ctx, id)
		return err == nil && archived.State == model.GateStateRevoked
	}, time.Second, 5*time.Millisecond, "periodic recheck should revoke once the assignment disappears")

	assert.Equal(t, model.DenyReasonAccessLost, f.gate.CheckCallAccess(ctx, id).Reason)
}

func TestGateConcurrentTransitionsStayTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.request(t, true)
	require.NoError(t, f.gate.Start(ctx, id))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = f.gate.End(ctx, id)
			} else {
				_ = f.gate.Revoke(ctx, id, model.DenyReasonRevokedAccess)
			}
		}(i)
	}
	wg.Wait()

	archived, err := f.archive.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, archived.State.Terminal())

	// Whichever transition won, the session never reports Allow again.
	for i := 0; i < 10; i++ {
		assert.False(t, f.gate.CheckCallAccess(ctx, id).Allowed)
	}
}

func TestGateDropsTerminalSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		id := f.request(t, true)
		require.NoError(t, f.gate.Start(ctx, id))
		require.NoError(t, f.gate.End(ctx, id))

		archived, err := f.archive.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.GateStateEnded, archived.State)
	}

	f.gate.mu.RLock()
	resident := len(f.gate.sessions)
	f.gate.mu.RUnlock()
	assert.Zero(t, resident, "terminal sessions must not accumulate in the gate")
}

func TestGateSweepsAbandonedRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	abandoned, state, err := f.gate.RequestVerification(ctx, &model.CallVerificationRequest{
		PatientID: f.patient.ID,
		Participants: []model.Participant{
			{UserID: f.doctor.ID, Kind: model.ParticipantHuman},
			{Kind: model.ParticipantAI},
		},
		AIConsent: false,
	})
	require.Error(t, err)
	require.Equal(t, model.GateStateRequested, state)

	sess, ok := f.gate.lookup(abandoned)
	require.True(t, ok)
	sess.mu.Lock()
	sess.createdAt = time.Now().Add(-time.Hour)
	sess.mu.Unlock()

	// The next request sweeps anything stuck in Requested past the TTL.
	f.request(t, true)

	_, ok = f.gate.lookup(abandoned)
	assert.False(t, ok)
	decision := f.gate.CheckCallAccess(ctx, abandoned)
	assert.False(t, decision.Allowed)
	assert.Equal(t, model.DenyReasonUnknownSession, decision.Reason)
}
