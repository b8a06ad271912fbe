package user

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
	"github.com/Tate5000/Thera-stack/internal/service/audit"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
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
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, filter *model.UserFilter) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		if filter != nil && filter.Role != "" && u.Role != filter.Role {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) GrantPermission(ctx context.Context, userID uuid.UUID, permission model.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Permissions = append(u.Permissions, permission)
	return nil
}

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*model.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
}

func (r *fakePatientRepo) Create(ctx context.Context, p *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
	return nil
}

func (r *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error { return nil }

func (r *fakePatientRepo) List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error) {
	return nil, nil
}

func (r *fakePatientRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Patient, error) {
	return nil, nil
}

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	assignments []model.Assignment
}

func (r *fakeAssignmentRepo) ListActive(ctx context.Context) ([]model.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Assignment, len(r.assignments))
	copy(out, r.assignments)
	return out, nil
}

func (r *fakeAssignmentRepo) Assign(ctx context.Context, a *model.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.assignments {
		if existing.TherapistID == a.TherapistID && existing.PatientID == a.PatientID {
			return repository.ErrDuplicateAssignment
		}
	}
	r.assignments = append(r.assignments, *a)
	return nil
}

func (r *fakeAssignmentRepo) Unassign(ctx context.Context, therapistID, patientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.assignments {
		if a.TherapistID == therapistID && a.PatientID == patientID {
			r.assignments = append(r.assignments[:i], r.assignments[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeAuditRepo struct{}

func (fakeAuditRepo) Create(ctx context.Context, log *model.AuditLog) error { return nil }
func (fakeAuditRepo) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	return nil, nil
}
func (fakeAuditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type countingInvalidator struct {
	mu    sync.Mutex
	count int
}

func (c *countingInvalidator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func (c *countingInvalidator) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func newTestService() (*Service, *fakeUserRepo, *fakePatientRepo, *fakeAssignmentRepo, *countingInvalidator) {
	users := newFakeUserRepo()
	patients := newFakePatientRepo()
	assignments := &fakeAssignmentRepo{}
	invalidator := &countingInvalidator{}
	auditor := audit.NewLogger(audit.NewService(fakeAuditRepo{}))
	svc := NewService(users, patients, assignments, invalidator, nil, auditor)
	return svc, users, patients, assignments, invalidator
}

func TestCreateUserPatientGetsClinicalRecord(t *testing.T) {
	svc, users, patients, _, _ := newTestService()

	created, err := svc.CreateUser(context.Background(), &model.CreateUserRequest{
		Email:    "anna@example.com",
		Name:     "Anna",
		Password: "s3cret-password",
		Role:     "patient",
	})
	require.NoError(t, err)

	stored, err := users.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, stored.Role)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "s3cret-password", stored.PasswordHash)

	record, err := patients.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", record.Email)
}

func TestCreateUserDoctorHasNoClinicalRecord(t *testing.T) {
	svc, _, patients, _, _ := newTestService()

	created, err := svc.CreateUser(context.Background(), &model.CreateUserRequest{
		Email:    "doc@example.com",
		Name:     "Doc",
		Password: "s3cret-password",
		Role:     "doctor",
	})
	require.NoError(t, err)

	_, err = patients.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.CreateUser(context.Background(), &model.CreateUserRequest{
		Email:    "x@example.com",
		Name:     "X",
		Password: "s3cret-password",
		Role:     "superuser",
	})
	assert.ErrorIs(t, err, model.ErrUnknownRole)
}

func TestAssignTherapistValidatesRoles(t *testing.T) {
	svc, _, _, assignments, invalidator := newTestService()
	ctx := context.Background()

	doctor, err := svc.CreateUser(ctx, &model.CreateUserRequest{
		Email: "doc@example.com", Name: "Doc", Password: "s3cret-password", Role: "doctor",
	})
	require.NoError(t, err)
	patient, err := svc.CreateUser(ctx, &model.CreateUserRequest{
		Email: "pat@example.com", Name: "Pat", Password: "s3cret-password", Role: "patient",
	})
	require.NoError(t, err)
	admin, err := svc.CreateUser(ctx, &model.CreateUserRequest{
		Email: "adm@example.com", Name: "Adm", Password: "s3cret-password", Role: "admin",
	})
	require.NoError(t, err)

	// Only doctor -> patient pairs are assignable.
	err = svc.AssignTherapist(ctx, admin.ID, patient.ID, patient.ID)
	assert.ErrorIs(t, err, ErrNotATherapist)
	err = svc.AssignTherapist(ctx, admin.ID, doctor.ID, admin.ID)
	assert.ErrorIs(t, err, ErrNotAPatient)

	require.NoError(t, svc.AssignTherapist(ctx, admin.ID, doctor.ID, patient.ID))

	active, err := assignments.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, doctor.ID, active[0].TherapistID)
	assert.Equal(t, patient.ID, active[0].PatientID)
	assert.Equal(t, admin.ID, active[0].AssignedBy)

	// The snapshot cache is dropped so the next decision sees the change.
	assert.Equal(t, 1, invalidator.calls())
}

func TestUnassignTherapistInvalidatesSnapshot(t *testing.T) {
	svc, _, _, _, invalidator := newTestService()
	ctx := context.Background()

	doctor, err := svc.CreateUser(ctx, &model.CreateUserRequest{
		Email: "doc@example.com", Name: "Doc", Password: "s3cret-password", Role: "doctor",
	})
	require.NoError(t, err)
	patient, err := svc.CreateUser(ctx, &model.CreateUserRequest{
		Email: "pat@example.com", Name: "Pat", Password: "s3cret-password", Role: "patient",
	})
	require.NoError(t, err)

	require.NoError(t, svc.AssignTherapist(ctx, uuid.New(), doctor.ID, patient.ID))
	require.NoError(t, svc.UnassignTherapist(ctx, uuid.New(), doctor.ID, patient.ID))

	assert.Equal(t, 2, invalidator.calls())

	err = svc.UnassignTherapist(ctx, uuid.New(), doctor.ID, patient.ID)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestGrantPermissionRejectsUnknownValue(t *testing.T) {
	svc, users, _, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, &model.CreateUserRequest{
		Email: "doc@example.com", Name: "Doc", Password: "s3cret-password", Role: "doctor",
	})
	require.NoError(t, err)

	err = svc.GrantPermission(ctx, created.ID, "launch_missiles")
	assert.ErrorIs(t, err, model.ErrUnknownPermission)

	require.NoError(t, svc.GrantPermission(ctx, created.ID, "manage_billing"))
	stored, err := users.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Permissions, model.PermissionManageBilling)
}
