package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tate5000/Thera-stack/internal/model"
)

type staticSnapshotProvider struct {
	ix  *RelationshipIndex
	err error
}

func (p *staticSnapshotProvider) Current(ctx context.Context) (*RelationshipIndex, error) {
	return p.ix, p.err
}

func (p *staticSnapshotProvider) Refresh(ctx context.Context) (*RelationshipIndex, error) {
	return p.ix, p.err
}

func mustUser(t *testing.T, id uuid.UUID, role string) *model.User {
	t.Helper()
	u, err := model.NewUser(id, role+"@example.com", role, role, nil)
	require.NoError(t, err)
	return u
}

func TestCanAccessPatientDataAdmin(t *testing.T) {
	svc := NewService(&staticSnapshotProvider{ix: mustIndex(t)})
	admin := mustUser(t, uuid.New(), "admin")

	// Admins bypass the relationship check for any patient id.
	for i := 0; i < 5; i++ {
		assert.True(t, svc.CanAccessPatientData(context.Background(), admin, uuid.New()))
	}
}

func TestCanAccessPatientDataPatientSelfOnly(t *testing.T) {
	svc := NewService(&staticSnapshotProvider{ix: mustIndex(t)})
	patientID := uuid.New()
	patient := mustUser(t, patientID, "patient")

	assert.True(t, svc.CanAccessPatientData(context.Background(), patient, patientID))
	assert.False(t, svc.CanAccessPatientData(context.Background(), patient, uuid.New()))
}

func TestCanAccessPatientDataDoctorAssignedOnly(t *testing.T) {
	doctorID := uuid.New()
	patient1 := uuid.New()
	patient2 := uuid.New()
	patient3 := uuid.New()

	ix, err := NewRelationshipIndex(snapshotOf(
		model.Assignment{TherapistID: doctorID, PatientID: patient1},
		model.Assignment{TherapistID: doctorID, PatientID: patient3},
	))
	require.NoError(t, err)

	svc := NewService(&staticSnapshotProvider{ix: ix})
	doctor := mustUser(t, doctorID, "doctor")

	assert.True(t, svc.CanAccessPatientData(context.Background(), doctor, patient1))
	assert.False(t, svc.CanAccessPatientData(context.Background(), doctor, patient2))
	assert.True(t, svc.CanAccessPatientData(context.Background(), doctor, patient3))
}

func TestCanAccessPatientDataMatchesIndex(t *testing.T) {
	doctorID := uuid.New()
	assigned := uuid.New()
	ix, err := NewRelationshipIndex(snapshotOf(
		model.Assignment{TherapistID: doctorID, PatientID: assigned},
	))
	require.NoError(t, err)

	svc := NewService(&staticSnapshotProvider{ix: ix})
	doctor := mustUser(t, doctorID, "doctor")

	for _, pid := range []uuid.UUID{assigned, uuid.New(), uuid.New()} {
		assert.Equal(t, ix.IsAssigned(doctorID, pid),
			svc.CanAccessPatientData(context.Background(), doctor, pid))
	}
}

func TestCanAccessPatientDataFailsClosed(t *testing.T) {
	svc := NewService(&staticSnapshotProvider{err: errors.New("db down")})

	doctor := mustUser(t, uuid.New(), "doctor")
	assert.False(t, svc.CanAccessPatientData(context.Background(), doctor, uuid.New()),
		"snapshot failure must deny, not allow")

	// Admin and self access do not depend on the snapshot.
	admin := mustUser(t, uuid.New(), "admin")
	assert.True(t, svc.CanAccessPatientData(context.Background(), admin, uuid.New()))

	patientID := uuid.New()
	patient := mustUser(t, patientID, "patient")
	assert.True(t, svc.CanAccessPatientData(context.Background(), patient, patientID))
}

func TestCanAccessPatientDataNilAndInvalidUsers(t *testing.T) {
	svc := NewService(&staticSnapshotProvider{ix: mustIndex(t)})

	assert.False(t, svc.CanAccessPatientData(context.Background(), nil, uuid.New()))

	// A role outside the closed set cannot normally be constructed; if one
	// slips through, the decision has no implicit allow branch.
	rogue := &model.User{Base: model.Base{ID: uuid.New()}, Role: model.Role("superuser")}
	assert.False(t, svc.CanAccessPatientData(context.Background(), rogue, uuid.New()))
	assert.False(t, Decide(rogue, uuid.New(), mustIndex(t)))
}

func TestDecidePureAndDeterministic(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()
	ix, err := NewRelationshipIndex(snapshotOf(
		model.Assignment{TherapistID: doctorID, PatientID: patientID},
	))
	require.NoError(t, err)
	doctor := mustUser(t, doctorID, "doctor")

	first := Decide(doctor, patientID, ix)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Decide(doctor, patientID, ix))
	}
}

func mustIndex(t *testing.T) *RelationshipIndex {
	t.Helper()
	ix, err := NewRelationshipIndex(&model.RelationshipSnapshot{TakenAt: time.Now()})
	require.NoError(t, err)
	return ix
}
