package simulation

import (
	"math/rand"
	"sync"

	"github.com/meditriage/triage-api/internal/model"
)

var genders = []model.Gender{model.GenderMale, model.GenderFemale, model.GenderOther}

var highRiskSymptoms = []string{
	"chest_pain", "shortness_of_breath", "unconscious",
	"bleeding", "trauma", "stroke_symptoms",
}

// Generator produces synthetic admission payloads for load demos. Not
// seeded deterministically on purpose: repeated spikes should differ. One
// generator is shared by all requests; the mutex serializes draws from the
// underlying source, which is not concurrency-safe.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// RandomPatient builds one admission request. With forceHighRisk the
// vitals and symptoms are biased toward the high-acuity ranges so a spike
// lands mostly in the emergency path.
func (g *Generator) RandomPatient(forceHighRisk bool) *model.CreatePatientRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	req := &model.CreatePatientRequest{
		Gender:                genders[g.rng.Intn(len(genders))],
		PreExistingConditions: []string{},
	}

	if forceHighRisk {
		req.Age = g.between(40, 85)
		req.HeartRate = g.between(100, 150)
		req.SystolicBP = g.between(140, 190)
		req.DiastolicBP = g.between(85, 120)
		req.Temperature = round1(37.5 + g.rng.Float64()*2.0)
		req.SpO2 = g.between(85, 94)
		req.Symptoms = g.sample(highRiskSymptoms, g.between(2, 4))
		req.RespiratoryRate = g.between(22, 40)
		req.PainScore = g.between(7, 10)
		req.SymptomDurationHours = float64(g.between(1, 6))
		req.ChronicDiseaseCount = g.between(1, 4)
	} else {
		req.Age = g.between(5, 90)
		req.HeartRate = g.between(55, 110)
		req.SystolicBP = g.between(95, 145)
		req.DiastolicBP = g.between(60, 95)
		req.Temperature = round1(36.2 + g.rng.Float64()*1.6)
		req.SpO2 = g.between(92, 100)
		req.Symptoms = g.sample(model.SymptomOptions, g.between(1, 4))
		req.RespiratoryRate = g.between(12, 20)
		req.PainScore = g.between(0, 5)
		req.SymptomDurationHours = float64(g.between(12, 72))
		req.ChronicDiseaseCount = g.between(0, 2)
	}

	// Keep the pair physiologically plausible.
	if req.DiastolicBP > req.SystolicBP-10 {
		req.DiastolicBP = req.SystolicBP - 10
	}
	return req
}

func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) sample(pool []string, k int) []string {
	if k > len(pool) {
		k = len(pool)
	}
	idx := g.rng.Perm(len(pool))[:k]
	out := make([]string, 0, k)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
