package access

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tate5000/Thera-stack/internal/model"
)

func snapshotOf(assignments ...model.Assignment) *model.RelationshipSnapshot {
	return &model.RelationshipSnapshot{Assignments: assignments, TakenAt: time.Now()}
}

func TestRelationshipIndexBidirectional(t *testing.T) {
	doctor := uuid.New()
	patient1 := uuid.New()
	patient3 := uuid.New()

	ix, err := NewRelationshipIndex(snapshotOf(
		model.Assignment{TherapistID: doctor, PatientID: patient1},
		model.Assignment{TherapistID: doctor, PatientID: patient3},
	))
	require.NoError(t, err)

	assert.True(t, ix.IsAssigned(doctor, patient1))
	assert.True(t, ix.IsAssigned(doctor, patient3))

	// The two directions must agree for every assignment.
	for _, pid := range ix.AssignedPatients(doctor) {
		tid, ok := ix.AssignedTherapist(pid)
		require.True(t, ok)
		assert.Equal(t, doctor, tid)
		assert.True(t, ix.IsAssigned(tid, pid))
	}

	tid, ok := ix.AssignedTherapist(patient1)
	require.True(t, ok)
	assert.Equal(t, doctor, tid)
}

func TestRelationshipIndexUnknownIDs(t *testing.T) {
	ix, err := NewRelationshipIndex(snapshotOf())
	require.NoError(t, err)

	// Fail-closed: absence is an empty result, not an error.
	assert.False(t, ix.IsAssigned(uuid.New(), uuid.New()))
	assert.Empty(t, ix.AssignedPatients(uuid.New()))

	_, ok := ix.AssignedTherapist(uuid.New())
	assert.False(t, ok)
}

func TestRelationshipIndexRejectsConflictingAssignments(t *testing.T) {
	patient := uuid.New()

	_, err := NewRelationshipIndex(snapshotOf(
		model.Assignment{TherapistID: uuid.New(), PatientID: patient},
		model.Assignment{TherapistID: uuid.New(), PatientID: patient},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingAssignment)
}

func TestRelationshipIndexDuplicateRowIsNotAConflict(t *testing.T) {
	doctor := uuid.New()
	patient := uuid.New()

	ix, err := NewRelationshipIndex(snapshotOf(
		model.Assignment{TherapistID: doctor, PatientID: patient},
		model.Assignment{TherapistID: doctor, PatientID: patient},
	))
	require.NoError(t, err)
	assert.True(t, ix.IsAssigned(doctor, patient))
	assert.Len(t, ix.AssignedPatients(doctor), 1)
}
