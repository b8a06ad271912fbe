package access

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/model"
)

// ErrConflictingAssignment is returned when a snapshot assigns two active
// therapists to the same patient. The index refuses to build rather than
// pick one: callers fail closed on the error.
var ErrConflictingAssignment = fmt.Errorf("patient has more than one active therapist")

// RelationshipIndex is a bidirectional therapist↔patient lookup built from
// one relationship snapshot. Both directions are populated from the same
// assignment rows, so they cannot disagree. The index is immutable after
// construction and safe for concurrent reads.
type RelationshipIndex struct {
	byTherapist map[uuid.UUID]map[uuid.UUID]struct{}
	byPatient   map[uuid.UUID]uuid.UUID
	takenAt     time.Time
}

// NewRelationshipIndex builds the index from a snapshot.
func NewRelationshipIndex(snapshot *model.RelationshipSnapshot) (*RelationshipIndex, error) {
	ix := &RelationshipIndex{
		byTherapist: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		byPatient:   make(map[uuid.UUID]uuid.UUID),
		takenAt:     snapshot.TakenAt,
	}
	for _, a := range snapshot.Assignments {
		if existing, ok := ix.byPatient[a.PatientID]; ok && existing != a.TherapistID {
			return nil, fmt.Errorf("%w: patient %s", ErrConflictingAssignment, a.PatientID)
		}
		ix.byPatient[a.PatientID] = a.TherapistID
		patients, ok := ix.byTherapist[a.TherapistID]
		if !ok {
			patients = make(map[uuid.UUID]struct{})
			ix.byTherapist[a.TherapistID] = patients
		}
		patients[a.PatientID] = struct{}{}
	}
	return ix, nil
}

// IsAssigned reports whether the therapist is actively assigned to the
// patient. Unknown ids simply return false.
func (ix *RelationshipIndex) IsAssigned(therapistID, patientID uuid.UUID) bool {
	patients, ok := ix.byTherapist[therapistID]
	if !ok {
		return false
	}
	_, ok = patients[patientID]
	return ok
}

// AssignedPatients returns the patients assigned to a therapist, sorted for
// stable output. Unknown therapists get an empty slice, not an error.
func (ix *RelationshipIndex) AssignedPatients(therapistID uuid.UUID) []uuid.UUID {
	patients := ix.byTherapist[therapistID]
	out := make([]uuid.UUID, 0, len(patients))
	for id := range patients {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// AssignedTherapist returns the patient's active therapist, if any.
func (ix *RelationshipIndex) AssignedTherapist(patientID uuid.UUID) (uuid.UUID, bool) {
	id, ok := ix.byPatient[patientID]
	return id, ok
}

// TakenAt returns when the underlying snapshot was read.
func (ix *RelationshipIndex) TakenAt() time.Time {
	return ix.takenAt
}

// Age returns how old the underlying snapshot is.
func (ix *RelationshipIndex) Age() time.Duration {
	return time.Since(ix.takenAt)
}
