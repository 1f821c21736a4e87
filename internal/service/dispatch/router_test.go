package dispatch

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/registry"
	"github.com/meditriage/triage-api/internal/service/capacity"
)

func newTestRouter(t *testing.T) (*Router, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	cfg := config.DefaultRoutingConfig()
	tracker := capacity.NewTracker(reg, config.DefaultDepartments(), cfg.OverloadThresholdPercent)
	return NewRouter(cfg, tracker), reg
}

func fillDepartment(t *testing.T, reg *registry.Registry, dept string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		rec := &model.PatientRecord{
			ID:                    uuid.New(),
			CreatedAt:             time.Now(),
			Status:                model.PatientStatusAdmitted,
			RecommendedDepartment: dept,
		}
		require.NoError(t, reg.Insert(rec))
	}
}

func TestRecommendSymptomRules(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		symptoms []string
		tier     model.RiskLevel
		want     string
	}{
		{[]string{"trauma"}, model.RiskHigh, "Emergency"},
		{[]string{"bleeding", "dizziness"}, model.RiskMedium, "Emergency"},
		{[]string{"unconscious"}, model.RiskHigh, "Emergency"},
		{[]string{"stroke_symptoms"}, model.RiskMedium, "Neurology"},
		{[]string{"seizure"}, model.RiskMedium, "Neurology"},
		{[]string{"chest_pain"}, model.RiskMedium, "Cardiology"},
		{[]string{"chest_pain"}, model.RiskHigh, "Emergency"},
		{[]string{"shortness_of_breath"}, model.RiskLow, "Cardiology"},
		{[]string{"allergic_reaction"}, model.RiskMedium, "Pulmonology"},
		{[]string{"headache"}, model.RiskLow, "Neurology"},
	}
	for _, tt := range tests {
		dept, reason := r.Recommend(tt.tier, tt.symptoms)
		assert.Equal(t, tt.want, dept, "symptoms %v", tt.symptoms)
		assert.NotEmpty(t, reason)
	}
}

func TestRecommendEmergencySymptomsWinOverSpecialty(t *testing.T) {
	r, _ := newTestRouter(t)

	// Trauma and chest pain together must go to Emergency, not Cardiology,
	// even when the tier alone would route to a specialty.
	dept, _ := r.Recommend(model.RiskMedium, []string{"chest_pain", "trauma"})
	assert.Equal(t, "Emergency", dept)
}

func TestRecommendTierDefaults(t *testing.T) {
	r, _ := newTestRouter(t)

	dept, _ := r.Recommend(model.RiskHigh, []string{"fever"})
	assert.Equal(t, "Emergency", dept)

	dept, _ = r.Recommend(model.RiskMedium, []string{"fever"})
	assert.Equal(t, "General Medicine", dept)

	dept, _ = r.Recommend(model.RiskLow, []string{"nausea"})
	assert.Equal(t, "General Medicine", dept)
}

func TestRouteUnderThresholdStaysPut(t *testing.T) {
	r, reg := newTestRouter(t)
	fillDepartment(t, reg, "Cardiology", 5) // 15 capacity, 33%

	routed, message := r.Route(model.RiskMedium, "Cardiology")
	assert.Nil(t, routed)
	assert.Nil(t, message)
}

func TestRouteOverloadedReroutesToLeastLoaded(t *testing.T) {
	r, reg := newTestRouter(t)
	fillDepartment(t, reg, "Cardiology", 14) // 93%, over 85% threshold
	fillDepartment(t, reg, "Emergency", 10)  // 40%
	fillDepartment(t, reg, "Pulmonology", 3) // 20%

	routed, message := r.Route(model.RiskMedium, "Cardiology")
	require.NotNil(t, routed)
	require.NotNil(t, message)
	// Neurology and General Medicine are both empty; the acuity order
	// prefers Neurology.
	assert.Equal(t, "Neurology", *routed)
	assert.Contains(t, *message, "Cardiology overloaded")
}

func TestRouteHighRiskOnlyToAcuteDepartments(t *testing.T) {
	r, reg := newTestRouter(t)
	fillDepartment(t, reg, "Emergency", 24)  // 96%, overloaded
	fillDepartment(t, reg, "Cardiology", 5)  // 33%
	fillDepartment(t, reg, "Neurology", 4)   // 33%
	fillDepartment(t, reg, "Pulmonology", 2) // 13%

	// General Medicine is empty, but a high-risk patient cannot go there.
	routed, _ := r.Route(model.RiskHigh, "Emergency")
	require.NotNil(t, routed)
	assert.Equal(t, "Pulmonology", *routed)
}

func TestRouteTieBreakByAcuityOrder(t *testing.T) {
	r, reg := newTestRouter(t)
	fillDepartment(t, reg, "Neurology", 12) // 100%, overloaded

	// Every alternate sits at 0%; the configured order prefers Emergency.
	routed, _ := r.Route(model.RiskHigh, "Neurology")
	require.NotNil(t, routed)
	assert.Equal(t, "Emergency", *routed)
}

func TestRouteCapacityExhaustionKeepsPatient(t *testing.T) {
	r, reg := newTestRouter(t)
	for _, d := range config.DefaultDepartments() {
		fillDepartment(t, reg, d.Name, d.MaxCapacity)
	}

	routed, message := r.Route(model.RiskHigh, "Emergency")
	assert.Nil(t, routed)
	require.NotNil(t, message)
	assert.Contains(t, *message, "no alternate department has capacity")
}
