package vitals

import (
	"fmt"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/pkg/errors"
)

// Validator range-checks raw intake fields against the configured
// physiological limits and emits non-fatal abnormality alerts for vitals
// outside the normal band.
type Validator struct {
	cfg config.VitalsConfig
}

func NewValidator(cfg config.VitalsConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate rejects the intake wholesale on the first hard-limit violation.
// The returned error names the offending field; the caller must not proceed
// to scoring.
func (v *Validator) Validate(req *model.CreatePatientRequest) error {
	if len(req.Symptoms) == 0 {
		return errors.Validation("symptoms", "at least one symptom is required")
	}
	for _, s := range req.Symptoms {
		if !model.KnownSymptom(s) {
			return errors.Validation("symptoms", fmt.Sprintf("unknown symptom code %q", s))
		}
	}
	if !req.Gender.Valid() {
		return errors.Validation("gender", "must be one of male, female, other")
	}
	if req.Age < 0 || req.Age > 150 {
		return errors.Validation("age", "must be between 0 and 150")
	}

	checks := []struct {
		field  string
		value  float64
		limits config.Limits
	}{
		{"heart_rate", float64(req.HeartRate), v.cfg.HeartRate},
		{"blood_pressure_systolic", float64(req.SystolicBP), v.cfg.SystolicBP},
		{"blood_pressure_diastolic", float64(req.DiastolicBP), v.cfg.DiastolicBP},
		{"temperature", req.Temperature, v.cfg.Temperature},
		{"spo2", float64(req.SpO2), v.cfg.SpO2},
		{"respiratory_rate", float64(req.RespiratoryRate), v.cfg.RespiratoryRate},
		{"pain_score", float64(req.PainScore), v.cfg.PainScore},
	}
	for _, c := range checks {
		if c.value < c.limits.Min || c.value > c.limits.Max {
			return errors.Validation(c.field,
				fmt.Sprintf("value %v outside valid range %v-%v", c.value, c.limits.Min, c.limits.Max))
		}
	}

	if req.DiastolicBP >= req.SystolicBP {
		return errors.Validation("blood_pressure_diastolic", "diastolic must be less than systolic")
	}
	if req.ChronicDiseaseCount < 0 {
		return errors.Validation("chronic_disease_count", "must not be negative")
	}
	if req.SymptomDurationHours < 0 {
		return errors.Validation("symptom_duration", "must not be negative")
	}

	return nil
}

// Alerts produces abnormality alerts for valid but out-of-normal vitals.
// Alerts never block submission.
func (v *Validator) Alerts(vt model.Vitals) []model.AbnormalityAlert {
	t := v.cfg.Alerts
	var alerts []model.AbnormalityAlert

	add := func(field, message string, severity model.AlertSeverity) {
		alerts = append(alerts, model.AbnormalityAlert{Field: field, Message: message, Severity: severity})
	}

	switch {
	case vt.SpO2 < t.SpO2Critical:
		add("spo2", fmt.Sprintf("SpO2 critically low (%d%%). Normal >=95%%. Seek immediate care.", vt.SpO2), model.SeverityCritical)
	case vt.SpO2 < t.SpO2Warning:
		add("spo2", fmt.Sprintf("SpO2 below normal (%d%%). Normal range 95-100%%.", vt.SpO2), model.SeverityWarning)
	}

	switch {
	case vt.HeartRate < t.HeartRateCriticalLow:
		add("heart_rate", fmt.Sprintf("Heart rate critically low (%d bpm).", vt.HeartRate), model.SeverityCritical)
	case vt.HeartRate > t.HeartRateCriticalHigh:
		add("heart_rate", fmt.Sprintf("Heart rate critically high (%d bpm).", vt.HeartRate), model.SeverityCritical)
	case vt.HeartRate < t.HeartRateNormalLow || vt.HeartRate > t.HeartRateNormalHigh:
		add("heart_rate", fmt.Sprintf("Heart rate outside normal range (%d bpm). Normal %d-%d.", vt.HeartRate, t.HeartRateNormalLow, t.HeartRateNormalHigh), model.SeverityWarning)
	}

	switch {
	case vt.SystolicBP >= t.SystolicCriticalHigh || vt.DiastolicBP >= t.DiastolicCriticalHigh:
		add("blood_pressure", fmt.Sprintf("Blood pressure critically high (%d/%d).", vt.SystolicBP, vt.DiastolicBP), model.SeverityCritical)
	case vt.SystolicBP < t.SystolicLow || vt.DiastolicBP < t.DiastolicLow:
		add("blood_pressure", fmt.Sprintf("Blood pressure low (%d/%d).", vt.SystolicBP, vt.DiastolicBP), model.SeverityWarning)
	case vt.SystolicBP > t.SystolicWarningHigh:
		add("blood_pressure", fmt.Sprintf("Blood pressure elevated (%d/%d).", vt.SystolicBP, vt.DiastolicBP), model.SeverityWarning)
	}

	switch {
	case vt.Temperature >= t.TemperatureCriticalHigh:
		add("temperature", fmt.Sprintf("High fever (%.1f C).", vt.Temperature), model.SeverityCritical)
	case vt.Temperature < t.TemperatureLow:
		add("temperature", fmt.Sprintf("Low body temperature (%.1f C).", vt.Temperature), model.SeverityWarning)
	case vt.Temperature > t.TemperatureNormalHigh:
		add("temperature", fmt.Sprintf("Elevated temperature (%.1f C). Normal 36.1-37.2 C.", vt.Temperature), model.SeverityWarning)
	}

	switch {
	case vt.RespiratoryRate > t.RespiratoryCriticalHigh:
		add("respiratory_rate", fmt.Sprintf("Respiratory rate critically high (%d/min).", vt.RespiratoryRate), model.SeverityCritical)
	case vt.RespiratoryRate < t.RespiratoryNormalLow || vt.RespiratoryRate > t.RespiratoryNormalHigh:
		add("respiratory_rate", fmt.Sprintf("Respiratory rate outside normal range (%d/min). Normal %d-%d.", vt.RespiratoryRate, t.RespiratoryNormalLow, t.RespiratoryNormalHigh), model.SeverityWarning)
	}

	return alerts
}
