package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
	"github.com/Tate5000/Thera-stack/internal/service/access"
	"github.com/Tate5000/Thera-stack/internal/service/audit"
)

type fakeSuperbillRepo struct {
	mu         sync.Mutex
	superbills map[uuid.UUID]*model.Superbill
}

func newFakeSuperbillRepo() *fakeSuperbillRepo {
	return &fakeSuperbillRepo{superbills: make(map[uuid.UUID]*model.Superbill)}
}

func (r *fakeSuperbillRepo) Create(ctx context.Context, sb *model.Superbill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *sb
	r.superbills[sb.ID] = &copied
	return nil
}

func (r *fakeSuperbillRepo) Get(ctx context.Context, id uuid.UUID) (*model.Superbill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sb, ok := r.superbills[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *sb
	return &copied, nil
}

func (r *fakeSuperbillRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Superbill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Superbill
	for _, sb := range r.superbills {
		if sb.PatientID == patientID {
			copied := *sb
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeSuperbillRepo) ListByTherapist(ctx context.Context, therapistID uuid.UUID) ([]*model.Superbill, error) {
	return nil, nil
}

func (r *fakeSuperbillRepo) Update(ctx context.Context, sb *model.Superbill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.superbills[sb.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *sb
	r.superbills[sb.ID] = &copied
	return nil
}

func (r *fakeSuperbillRepo) ListCPTCodes(ctx context.Context) ([]model.CPTCode, error) {
	return []model.CPTCode{{Code: "90834", Description: "Psychotherapy, 45 minutes"}}, nil
}

func (r *fakeSuperbillRepo) ListDiagnosisCodes(ctx context.Context) ([]model.DiagnosisCode, error) {
	return []model.DiagnosisCode{{Code: "F41.1", Description: "Generalized anxiety disorder"}}, nil
}

type fakeAuditRepo struct{}

func (fakeAuditRepo) Create(ctx context.Context, log *model.AuditLog) error { return nil }
func (fakeAuditRepo) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	return nil, nil
}
func (fakeAuditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
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
	svc       *Service
	repo      *fakeSuperbillRepo
	admin     *model.User
	doctor    *model.User
	patient   *model.User
	patientID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	doctorID := uuid.New()
	patientID := uuid.New()
	ix, err := access.NewRelationshipIndex(&model.RelationshipSnapshot{
		Assignments: []model.Assignment{{TherapistID: doctorID, PatientID: patientID}},
		TakenAt:     time.Now(),
	})
	require.NoError(t, err)

	admin, err := model.NewUser(uuid.New(), "admin@example.com", "Admin", "admin", nil)
	require.NoError(t, err)
	doctor, err := model.NewUser(doctorID, "doc@example.com", "Doc", "doctor", nil)
	require.NoError(t, err)
	patient, err := model.NewUser(patientID, "pat@example.com", "Pat", "patient", nil)
	require.NoError(t, err)

	repo := newFakeSuperbillRepo()
	svc := NewService(repo, access.NewService(&staticProvider{ix: ix}),
		audit.NewLogger(audit.NewService(fakeAuditRepo{})))

	return &fixture{
		svc:       svc,
		repo:      repo,
		admin:     admin,
		doctor:    doctor,
		patient:   patient,
		patientID: patientID,
	}
}

func (f *fixture) create(t *testing.T, actor *model.User) *model.Superbill {
	t.Helper()
	sb, err := f.svc.CreateSuperbill(context.Background(), actor, &model.CreateSuperbillRequest{
		PatientID:         f.patientID,
		TherapistID:       f.doctor.ID,
		SessionDate:       time.Now(),
		CPTCodes:          []string{"90834"},
		DiagnosisCodes:    []string{"F41.1"},
		Amount:            150,
		InsuranceProvider: "Blue Shield",
	})
	require.NoError(t, err)
	return sb
}

func TestSuperbillLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sb := f.create(t, f.doctor)
	assert.Equal(t, model.SuperbillStatusPending, sb.Status)

	submitted, err := f.svc.Submit(ctx, f.admin, sb.ID, "CLM-1001")
	require.NoError(t, err)
	assert.Equal(t, model.SuperbillStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.ClaimNumber)
	assert.Equal(t, "CLM-1001", *submitted.ClaimNumber)

	paid, err := f.svc.MarkPaid(ctx, f.admin, sb.ID, 120)
	require.NoError(t, err)
	assert.Equal(t, model.SuperbillStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAmount)
	assert.Equal(t, float64(120), *paid.PaidAmount)
}

func TestSuperbillInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sb := f.create(t, f.doctor)

	// Pending bills cannot be paid or denied before submission.
	_, err := f.svc.MarkPaid(ctx, f.admin, sb.ID, 120)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Deny(ctx, f.admin, sb.ID, "missing codes")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.Submit(ctx, f.admin, sb.ID, "CLM-1")
	require.NoError(t, err)

	// Submitting twice is rejected.
	_, err = f.svc.Submit(ctx, f.admin, sb.ID, "CLM-2")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSuperbillDeny(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sb := f.create(t, f.doctor)
	_, err := f.svc.Submit(ctx, f.admin, sb.ID, "CLM-1")
	require.NoError(t, err)

	denied, err := f.svc.Deny(ctx, f.admin, sb.ID, "not covered")
	require.NoError(t, err)
	assert.Equal(t, model.SuperbillStatusDenied, denied.Status)
	require.NotNil(t, denied.DeniedReason)
	assert.Equal(t, "not covered", *denied.DeniedReason)
}

func TestSuperbillAccessScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sb := f.create(t, f.doctor)

	// The patient sees their own bills; a stranger patient does not.
	_, err := f.svc.GetSuperbill(ctx, f.patient, sb.ID)
	assert.NoError(t, err)

	stranger, err := model.NewUser(uuid.New(), "other@example.com", "Other", "patient", nil)
	require.NoError(t, err)
	_, err = f.svc.GetSuperbill(ctx, stranger, sb.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.svc.ListByPatient(ctx, stranger, f.patientID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	// An unassigned doctor is denied creation outright.
	otherDoc, err := model.NewUser(uuid.New(), "doc2@example.com", "Doc2", "doctor", nil)
	require.NoError(t, err)
	_, err = f.svc.CreateSuperbill(ctx, otherDoc, &model.CreateSuperbillRequest{
		PatientID:         f.patientID,
		TherapistID:       otherDoc.ID,
		SessionDate:       time.Now(),
		CPTCodes:          []string{"90834"},
		DiagnosisCodes:    []string{"F41.1"},
		Amount:            150,
		InsuranceProvider: "Blue Shield",
	})
	assert.ErrorIs(t, err, ErrAccessDenied)
}
