package capacity

import (
	"math"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/registry"
)

const defaultCapacity = 20

// Tracker answers per-department load queries. Counts are always derived by
// filtering the registry's active set, never kept as separate counters, so
// they cannot drift from the patient records: a transfer or discharge is
// visible to the tracker the instant the registry commits it.
type Tracker struct {
	reg       *registry.Registry
	order     []string
	capacity  map[string]int
	threshold float64
}

func NewTracker(reg *registry.Registry, departments []config.DepartmentConfig, overloadThreshold float64) *Tracker {
	t := &Tracker{
		reg:       reg,
		capacity:  make(map[string]int, len(departments)),
		threshold: overloadThreshold,
	}
	for _, d := range departments {
		t.order = append(t.order, d.Name)
		t.capacity[d.Name] = d.MaxCapacity
	}
	return t
}

// Known reports whether the department is configured.
func (t *Tracker) Known(dept string) bool {
	_, ok := t.capacity[dept]
	return ok
}

// Departments returns the configured department names in display order.
func (t *Tracker) Departments() []string {
	return append([]string(nil), t.order...)
}

// Load returns the department's current occupancy snapshot.
func (t *Tracker) Load(dept string) model.DepartmentLoad {
	counts := t.counts()
	return t.load(dept, counts[dept])
}

// Status returns the occupancy snapshot for every department, computed from
// a single consistent read of the registry.
func (t *Tracker) Status() []model.DepartmentStatus {
	counts := t.counts()
	out := make([]model.DepartmentStatus, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.load(name, counts[name]))
	}
	return out
}

func (t *Tracker) load(dept string, current int) model.DepartmentLoad {
	capn, ok := t.capacity[dept]
	if !ok {
		capn = defaultCapacity
	}
	pct := 0.0
	if capn > 0 {
		pct = math.Round(100*float64(current)/float64(capn)*10) / 10
	}
	return model.DepartmentLoad{
		Department:      dept,
		MaxCapacity:     capn,
		CurrentPatients: current,
		LoadPercentage:  pct,
		Overloaded:      pct > t.threshold,
	}
}

func (t *Tracker) counts() map[string]int {
	counts := make(map[string]int, len(t.order))
	for _, rec := range t.reg.Active() {
		counts[rec.EffectiveDepartment()]++
	}
	return counts
}
