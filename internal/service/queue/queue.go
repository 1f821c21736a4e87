package queue

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/registry"
)

// Queue maintains the live ordering of all active patients and estimates
// waits. The ordering is recomputed from the registry on every read, so it
// can never go stale relative to the record set: an insert, discharge or
// score change is reflected the moment the registry commits it.
type Queue struct {
	reg      *registry.Registry
	rates    map[string]float64
	baseWait float64
}

func New(reg *registry.Registry, departments []config.DepartmentConfig, baseWaitMinutes float64) *Queue {
	q := &Queue{
		reg:      reg,
		rates:    make(map[string]float64, len(departments)),
		baseWait: baseWaitMinutes,
	}
	for _, d := range departments {
		q.rates[d.Name] = d.MinutesPerPatient
	}
	return q
}

// Snapshot returns all active patients ordered by priority score descending,
// creation time ascending (FIFO fairness among equal scores), record id as
// the final deterministic tie-break.
func (q *Queue) Snapshot() []*model.PatientRecord {
	recs := q.reg.Active()
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].PriorityScore != recs[j].PriorityScore {
			return recs[i].PriorityScore > recs[j].PriorityScore
		}
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID.String() < recs[j].ID.String()
	})
	return recs
}

// Position returns the 1-based rank of the patient in the current ordering.
// Discharged or unknown patients report registry.ErrNotFound.
func (q *Queue) Position(id uuid.UUID) (int, error) {
	for i, rec := range q.Snapshot() {
		if rec.ID == id {
			return i + 1, nil
		}
	}
	return 0, registry.ErrNotFound
}

// Placement returns the patient's queue position and estimated wait.
func (q *Queue) Placement(id uuid.UUID) (model.QueuePlacement, error) {
	for i, rec := range q.Snapshot() {
		if rec.ID == id {
			return model.QueuePlacement{
				Position:             i + 1,
				EstimatedWaitMinutes: q.wait(rec, i+1),
			}, nil
		}
	}
	return model.QueuePlacement{}, registry.ErrNotFound
}

// Placements computes position and wait for every active patient from one
// consistent snapshot.
func (q *Queue) Placements() map[uuid.UUID]model.QueuePlacement {
	out := make(map[uuid.UUID]model.QueuePlacement)
	for i, rec := range q.Snapshot() {
		out[rec.ID] = model.QueuePlacement{
			Position:             i + 1,
			EstimatedWaitMinutes: q.wait(rec, i+1),
		}
	}
	return out
}

// wait scales the per-department throughput by queue position and discounts
// by priority: wait grows with position and shrinks as the score rises.
func (q *Queue) wait(rec *model.PatientRecord, position int) int {
	rate, ok := q.rates[rec.EffectiveDepartment()]
	if !ok || rate <= 0 {
		rate = q.baseWait
	}
	factor := math.Max(1, rec.PriorityScore/50)
	minutes := rate * float64(position) / factor
	if minutes < 0 {
		minutes = 0
	}
	return int(minutes)
}
