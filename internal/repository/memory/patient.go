// Package memory provides in-process repository implementations, used for
// DB-less demo runs and as test doubles.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/repository"
)

type patientRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*model.PatientRecord
}

func NewPatientRepository() repository.PatientRepository {
	return &patientRepository{records: make(map[uuid.UUID]*model.PatientRecord)}
}

func (r *patientRepository) Save(_ context.Context, rec *model.PatientRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec.Clone()
	return nil
}

func (r *patientRepository) Get(_ context.Context, id uuid.UUID) (*model.PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("patient %s not found", id)
	}
	return rec.Clone(), nil
}

func (r *patientRepository) ListActive(_ context.Context) ([]*model.PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.PatientRecord
	for _, rec := range r.records {
		if rec.Active() {
			out = append(out, rec.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func (r *patientRepository) ListAll(_ context.Context) ([]*model.PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.PatientRecord
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(recs []*model.PatientRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
}
