package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meditriage/triage-api/internal/model"
)

var (
	ErrNotFound   = errors.New("patient not found")
	ErrDischarged = errors.New("patient already discharged")
	ErrExists     = errors.New("patient already registered")
)

// Registry exclusively owns all PatientRecords, active and discharged,
// indexed by id. The capacity tracker and priority queue hold references
// (ids), never copies; every derived view is recomputed from this set so
// counts can never drift. Records handed out are clones.
type Registry struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*model.PatientRecord
	version uint64
}

func New() *Registry {
	return &Registry{records: make(map[uuid.UUID]*model.PatientRecord)}
}

// Insert registers a newly admitted record.
func (r *Registry) Insert(rec *model.PatientRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; ok {
		return ErrExists
	}
	r.records[rec.ID] = rec.Clone()
	r.version++
	return nil
}

// Remove deletes a record outright. Only used to roll back an admit whose
// durable write failed; discharge is the normal removal path.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; ok {
		delete(r.records, id)
		r.version++
	}
}

// Get returns a copy of the record, discharged or not.
func (r *Registry) Get(id uuid.UUID) (*model.PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Update applies fn to the stored record under the write lock, so partial
// writes are never observable. Discharged records are immutable: discharge
// is terminal and wins any race with a concurrent edit or transfer.
func (r *Registry) Update(id uuid.UUID, fn func(*model.PatientRecord) error) (*model.PatientRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Status == model.PatientStatusDischarged {
		return nil, ErrDischarged
	}

	// Mutate a clone first; a failing fn must leave the record untouched.
	next := rec.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	r.records[id] = next
	r.version++
	return next.Clone(), nil
}

// Discharge removes the patient from the active set permanently. No re-entry;
// a new visit requires a new record.
func (r *Registry) Discharge(id uuid.UUID, at time.Time) (*model.PatientRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Status == model.PatientStatusDischarged {
		return nil, ErrDischarged
	}

	rec.Status = model.PatientStatusDischarged
	rec.DischargedAt = &at
	rec.UpdatedAt = at
	r.version++
	return rec.Clone(), nil
}

// Active returns copies of all non-discharged records, ordered by creation.
func (r *Registry) Active() []*model.PatientRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.PatientRecord, 0, len(r.records))
	for _, rec := range r.records {
		if rec.Active() {
			out = append(out, rec.Clone())
		}
	}
	sortByCreation(out)
	return out
}

// All returns copies of every record, for audit views.
func (r *Registry) All() []*model.PatientRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.PatientRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	sortByCreation(out)
	return out
}

// ActiveCount returns the number of non-discharged records.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.records {
		if rec.Active() {
			n++
		}
	}
	return n
}

// Version increments on every mutation; readers can detect staleness.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func sortByCreation(recs []*model.PatientRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID.String() < recs[j].ID.String()
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
}
