package access

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tate5000/Thera-stack/internal/model"
)

type fakeAssignmentRepo struct {
	assignments []model.Assignment
	loads       int
}

func (r *fakeAssignmentRepo) ListActive(ctx context.Context) ([]model.Assignment, error) {
	r.loads++
	out := make([]model.Assignment, len(r.assignments))
	copy(out, r.assignments)
	return out, nil
}

func (r *fakeAssignmentRepo) Assign(ctx context.Context, a *model.Assignment) error {
	r.assignments = append(r.assignments, *a)
	return nil
}

func (r *fakeAssignmentRepo) Unassign(ctx context.Context, therapistID, patientID uuid.UUID) error {
	kept := r.assignments[:0]
	for _, a := range r.assignments {
		if a.TherapistID != therapistID || a.PatientID != patientID {
			kept = append(kept, a)
		}
	}
	r.assignments = kept
	return nil
}

func TestCachedSnapshotProviderServesCachedCopy(t *testing.T) {
	repo := &fakeAssignmentRepo{}
	provider := NewCachedSnapshotProvider(repo, time.Minute)

	_, err := provider.Current(context.Background())
	require.NoError(t, err)
	_, err = provider.Current(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, repo.loads, "second read inside the freshness bound must hit the cache")
}

func TestCachedSnapshotProviderInvalidate(t *testing.T) {
	doctor := uuid.New()
	patient := uuid.New()
	repo := &fakeAssignmentRepo{}
	provider := NewCachedSnapshotProvider(repo, time.Minute)

	ix, err := provider.Current(context.Background())
	require.NoError(t, err)
	assert.False(t, ix.IsAssigned(doctor, patient))

	require.NoError(t, repo.Assign(context.Background(), &model.Assignment{
		TherapistID: doctor, PatientID: patient,
	}))
	provider.Invalidate()

	ix, err = provider.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, ix.IsAssigned(doctor, patient))
	assert.Equal(t, 2, repo.loads)
}
