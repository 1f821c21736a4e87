package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/pkg/errors"
)

func validRequest() *model.CreatePatientRequest {
	return &model.CreatePatientRequest{
		Age:                  35,
		Gender:               model.GenderFemale,
		Symptoms:             []string{"fever", "headache"},
		HeartRate:            78,
		SystolicBP:           118,
		DiastolicBP:          76,
		Temperature:          36.8,
		SpO2:                 98,
		RespiratoryRate:      16,
		PainScore:            2,
		ChronicDiseaseCount:  0,
		SymptomDurationHours: 6,
	}
}

func TestValidateAcceptsNormalIntake(t *testing.T) {
	v := NewValidator(config.DefaultVitalsConfig())
	assert.NoError(t, v.Validate(validRequest()))
}

func TestValidateRejectsHardLimitViolations(t *testing.T) {
	v := NewValidator(config.DefaultVitalsConfig())

	tests := []struct {
		name   string
		mutate func(*model.CreatePatientRequest)
		field  string
	}{
		{"heart rate too high", func(r *model.CreatePatientRequest) { r.HeartRate = 300 }, "heart_rate"},
		{"heart rate too low", func(r *model.CreatePatientRequest) { r.HeartRate = 20 }, "heart_rate"},
		{"systolic too low", func(r *model.CreatePatientRequest) { r.SystolicBP = 60 }, "blood_pressure_systolic"},
		{"temperature too high", func(r *model.CreatePatientRequest) { r.Temperature = 44 }, "temperature"},
		{"spo2 too low", func(r *model.CreatePatientRequest) { r.SpO2 = 60 }, "spo2"},
		{"respiratory rate too high", func(r *model.CreatePatientRequest) { r.RespiratoryRate = 70 }, "respiratory_rate"},
		{"pain score too high", func(r *model.CreatePatientRequest) { r.PainScore = 11 }, "pain_score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := v.Validate(req)
			require.Error(t, err)
			appErr, ok := err.(*errors.AppError)
			require.True(t, ok)
			assert.Equal(t, errors.ErrValidation, appErr.Code)
			assert.Contains(t, appErr.Message, tt.field)
		})
	}
}

func TestValidateRejectsUnknownSymptom(t *testing.T) {
	v := NewValidator(config.DefaultVitalsConfig())

	req := validRequest()
	req.Symptoms = []string{"fever", "telepathy"}
	err := v.Validate(req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

func TestValidateRejectsEmptySymptoms(t *testing.T) {
	v := NewValidator(config.DefaultVitalsConfig())

	req := validRequest()
	req.Symptoms = nil
	err := v.Validate(req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

func TestValidateRejectsDiastolicAboveSystolic(t *testing.T) {
	v := NewValidator(config.DefaultVitalsConfig())

	req := validRequest()
	req.SystolicBP = 100
	req.DiastolicBP = 110
	err := v.Validate(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diastolic")
}

func TestAlertsNormalVitalsProduceNone(t *testing.T) {
	v := NewValidator(config.DefaultVitalsConfig())
	assert.Empty(t, v.Alerts(validRequest().ToVitals()))
}

func TestAlertsSeverities(t *testing.T) {
	v := NewValidator(config.DefaultVitalsConfig())

	tests := []struct {
		name     string
		mutate   func(*model.Vitals)
		field    string
		severity model.AlertSeverity
	}{
		{"spo2 critical", func(vt *model.Vitals) { vt.SpO2 = 88 }, "spo2", model.SeverityCritical},
		{"spo2 warning", func(vt *model.Vitals) { vt.SpO2 = 93 }, "spo2", model.SeverityWarning},
		{"tachycardia critical", func(vt *model.Vitals) { vt.HeartRate = 130 }, "heart_rate", model.SeverityCritical},
		{"bradycardia critical", func(vt *model.Vitals) { vt.HeartRate = 45 }, "heart_rate", model.SeverityCritical},
		{"heart rate warning", func(vt *model.Vitals) { vt.HeartRate = 110 }, "heart_rate", model.SeverityWarning},
		{"hypertensive crisis", func(vt *model.Vitals) { vt.SystolicBP = 185 }, "blood_pressure", model.SeverityCritical},
		{"hypotension warning", func(vt *model.Vitals) { vt.SystolicBP = 85; vt.DiastolicBP = 55 }, "blood_pressure", model.SeverityWarning},
		{"elevated bp warning", func(vt *model.Vitals) { vt.SystolicBP = 150 }, "blood_pressure", model.SeverityWarning},
		{"high fever critical", func(vt *model.Vitals) { vt.Temperature = 39.5 }, "temperature", model.SeverityCritical},
		{"elevated temperature warning", func(vt *model.Vitals) { vt.Temperature = 37.8 }, "temperature", model.SeverityWarning},
		{"tachypnea critical", func(vt *model.Vitals) { vt.RespiratoryRate = 35 }, "respiratory_rate", model.SeverityCritical},
		{"respiratory warning", func(vt *model.Vitals) { vt.RespiratoryRate = 24 }, "respiratory_rate", model.SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vt := validRequest().ToVitals()
			tt.mutate(&vt)

			alerts := v.Alerts(vt)
			require.NotEmpty(t, alerts)
			found := false
			for _, a := range alerts {
				if a.Field == tt.field {
					found = true
					assert.Equal(t, tt.severity, a.Severity)
				}
			}
			assert.True(t, found, "expected alert for %s", tt.field)
		})
	}
}

func TestAlertsMultipleAbnormalities(t *testing.T) {
	v := NewValidator(config.DefaultVitalsConfig())

	vt := validRequest().ToVitals()
	vt.SpO2 = 89
	vt.HeartRate = 130
	vt.SystolicBP = 185

	alerts := v.Alerts(vt)
	assert.Len(t, alerts, 3)
	for _, a := range alerts {
		assert.Equal(t, model.SeverityCritical, a.Severity)
	}
}
