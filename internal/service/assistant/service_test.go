package assistant

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
	"github.com/Tate5000/Thera-stack/internal/service/callgate"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

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

type fakeAppointments struct {
	appointments []*model.Appointment
}

func (r *fakeAppointments) Create(ctx context.Context, appointment *model.Appointment) error {
	return nil
}

func (r *fakeAppointments) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeAppointments) List(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, error) {
	return r.appointments, nil
}

func (r *fakeAppointments) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return nil
}

type staticProvider struct {
	ix *access.RelationshipIndex
}

func (p *staticProvider) Current(ctx context.Context) (*access.RelationshipIndex, error) {
	return p.ix, nil
}

func (p *staticProvider) Refresh(ctx context.Context) (*access.RelationshipIndex, error) {
	return p.ix, nil
}

type fixture struct {
	svc     *Service
	gate    *callgate.Gate
	doctor  *model.User
	patient *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	doctor, err := model.NewUser(uuid.New(), "doctor1@example.com", "Doctor One", "doctor", nil)
	require.NoError(t, err)
	patient, err := model.NewUser(uuid.New(), "patient1@example.com", "Patient One", "patient", nil)
	require.NoError(t, err)

	ix, err := access.NewRelationshipIndex(&model.RelationshipSnapshot{
		Assignments: []model.Assignment{{TherapistID: doctor.ID, PatientID: patient.ID}},
		TakenAt:     time.Now(),
	})
	require.NoError(t, err)

	gate := callgate.NewGate(
		access.NewService(&staticProvider{ix: ix}),
		&fakeUserRepo{users: map[uuid.UUID]*model.User{
			doctor.ID:  doctor,
			patient.ID: patient,
		}},
		&fakeArchive{sessions: make(map[uuid.UUID]*model.CallSession)},
		nil,
		nil,
		nil,
		callgate.Config{RecheckInterval: time.Hour},
	)

	appointments := &fakeAppointments{appointments: []*model.Appointment{{}, {}}}

	return &fixture{
		svc:     NewService(gate, appointments),
		gate:    gate,
		doctor:  doctor,
		patient: patient,
	}
}

func (f *fixture) activeCall(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id, state, err := f.gate.RequestVerification(ctx, &model.CallVerificationRequest{
		PatientID: f.patient.ID,
		Participants: []model.Participant{
			{UserID: f.doctor.ID, Kind: model.ParticipantHuman},
			{UserID: f.patient.ID, Kind: model.ParticipantHuman},
			{Kind: model.ParticipantAI},
		},
		AIConsent: true,
	})
	require.NoError(t, err)
	require.Equal(t, model.GateStateVerified, state)
	require.NoError(t, f.gate.Start(ctx, id))
	return id
}

func TestGenerateSummaryActiveCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.activeCall(t)
	summary, err := f.svc.GenerateSummary(ctx, f.doctor, id)
	require.NoError(t, err)
	assert.Equal(t, id, summary.SessionID)
	assert.Equal(t, f.patient.ID, summary.PatientID)
	assert.Contains(t, summary.Text, "2 prior appointments")
}

func TestGenerateSummaryRequiresPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.activeCall(t)
	_, err := f.svc.GenerateSummary(ctx, f.patient, id)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestGenerateSummaryRefusesEndedCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.activeCall(t)
	require.NoError(t, f.gate.End(ctx, id))

	_, err := f.svc.GenerateSummary(ctx, f.doctor, id)
	assert.ErrorIs(t, err, ErrCallNotActive)
}

func TestRunHaltsOnRevocationSignal(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id := f.activeCall(t)

	revocations := make(chan model.CallRevocation)
	go f.svc.Run(ctx, revocations)

	revocations <- model.CallRevocation{
		SessionID: id,
		PatientID: f.patient.ID,
		Reason:    model.DenyReasonRevokedAccess,
		RevokedAt: time.Now(),
	}

	// The halt must not wait for the next gate query; the gate still says
	// Active here because the revocation arrived out of band.
	require.Eventually(t, func() bool {
		_, err := f.svc.GenerateSummary(ctx, f.doctor, id)
		return errors.Is(err, ErrAccessRevoked)
	}, time.Second, 5*time.Millisecond)
}
