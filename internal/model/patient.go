package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// PatientStatus tracks the per-patient lifecycle:
// submitted -> scored -> admitted -> transferred* -> discharged.
type PatientStatus string

const (
	PatientStatusSubmitted   PatientStatus = "submitted"
	PatientStatusScored      PatientStatus = "scored"
	PatientStatusAdmitted    PatientStatus = "admitted"
	PatientStatusTransferred PatientStatus = "transferred"
	PatientStatusDischarged  PatientStatus = "discharged"
)

// SymptomOptions is the known symptom code set accepted at intake.
var SymptomOptions = []string{
	"chest_pain",
	"shortness_of_breath",
	"headache",
	"fever",
	"dizziness",
	"nausea",
	"abdominal_pain",
	"bleeding",
	"unconscious",
	"seizure",
	"trauma",
	"burn",
	"allergic_reaction",
	"stroke_symptoms",
	"other",
}

// KnownSymptom reports whether code is in the accepted symptom set.
func KnownSymptom(code string) bool {
	for _, s := range SymptomOptions {
		if s == code {
			return true
		}
	}
	return false
}

// Vitals holds the clinical measurements taken at intake.
type Vitals struct {
	HeartRate            int     `json:"heart_rate" db:"heart_rate"`
	SystolicBP           int     `json:"blood_pressure_systolic" db:"bp_systolic"`
	DiastolicBP          int     `json:"blood_pressure_diastolic" db:"bp_diastolic"`
	Temperature          float64 `json:"temperature" db:"temperature"`
	SpO2                 int     `json:"spo2" db:"spo2"`
	RespiratoryRate      int     `json:"respiratory_rate" db:"respiratory_rate"`
	PainScore            int     `json:"pain_score" db:"pain_score"`
	ChronicDiseaseCount  int     `json:"chronic_disease_count" db:"chronic_disease_count"`
	SymptomDurationHours float64 `json:"symptom_duration" db:"symptom_duration_hours"`
}

// PatientRecord is one triage event. Derived fields are recomputed wholesale
// on any vitals edit; the record is owned exclusively by the registry.
type PatientRecord struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"patient_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Age                   int      `json:"age"`
	Gender                Gender   `json:"gender"`
	Symptoms              []string `json:"symptoms"`
	PreExistingConditions []string `json:"pre_existing_conditions"`
	Vitals

	// Derived output, written once per scoring pass.
	RiskLevel             RiskLevel            `json:"risk_level"`
	ConfidenceScore       float64              `json:"confidence_score"`
	Probabilities         ProbabilityBreakdown `json:"probability_breakdown"`
	PriorityScore         float64              `json:"priority_score"`
	RecommendedDepartment string               `json:"recommended_department"`
	RoutedDepartment      *string              `json:"routed_department"`
	RoutingMessage        *string              `json:"routing_message"`
	SeverityTimeline      *string              `json:"severity_timeline"`
	Alerts                []AbnormalityAlert   `json:"abnormality_alerts"`

	Status           PatientStatus `json:"status"`
	DischargedAt     *time.Time    `json:"discharged_at,omitempty"`
	ReasoningSummary string        `json:"reasoning_summary,omitempty"`
}

// EffectiveDepartment is the department used for capacity counting and queue
// display: the reroute target when rerouted, else the recommendation.
func (p *PatientRecord) EffectiveDepartment() string {
	if p.RoutedDepartment != nil && *p.RoutedDepartment != "" {
		return *p.RoutedDepartment
	}
	return p.RecommendedDepartment
}

// Active reports whether the patient still occupies capacity and queue space.
func (p *PatientRecord) Active() bool {
	return p.Status != PatientStatusDischarged
}

// FeatureVector assembles the classifier input from the record.
func (p *PatientRecord) FeatureVector() FeatureVector {
	return FeatureVector{
		Age:                  p.Age,
		Gender:               p.Gender,
		HeartRate:            p.HeartRate,
		SystolicBP:           p.SystolicBP,
		DiastolicBP:          p.DiastolicBP,
		Temperature:          p.Temperature,
		SpO2:                 p.SpO2,
		RespiratoryRate:      p.RespiratoryRate,
		PainScore:            p.PainScore,
		ChronicDiseaseCount:  p.ChronicDiseaseCount,
		SymptomDurationHours: p.SymptomDurationHours,
		Symptoms:             p.Symptoms,
	}
}

// Clone returns a deep copy so registry internals never leak to callers.
func (p *PatientRecord) Clone() *PatientRecord {
	cp := *p
	cp.Symptoms = append([]string(nil), p.Symptoms...)
	cp.PreExistingConditions = append([]string(nil), p.PreExistingConditions...)
	cp.Alerts = append([]AbnormalityAlert(nil), p.Alerts...)
	if p.RoutedDepartment != nil {
		v := *p.RoutedDepartment
		cp.RoutedDepartment = &v
	}
	if p.RoutingMessage != nil {
		v := *p.RoutingMessage
		cp.RoutingMessage = &v
	}
	if p.SeverityTimeline != nil {
		v := *p.SeverityTimeline
		cp.SeverityTimeline = &v
	}
	if p.DischargedAt != nil {
		v := *p.DischargedAt
		cp.DischargedAt = &v
	}
	return &cp
}

// NewPatientCode formats an external patient id, e.g. PT-20260830-3FA2B1.
func NewPatientCode(id uuid.UUID, at time.Time) string {
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return fmt.Sprintf("PT-%s-%s", at.Format("20060102"), hex[:6])
}

// CreatePatientRequest is the intake payload. Binding tags cover shape and
// hard physiological limits; the vitals validator re-checks against the
// configured limits and emits abnormality alerts.
type CreatePatientRequest struct {
	Age                   int      `json:"age" binding:"min=0,max=150"`
	Gender                Gender   `json:"gender" binding:"required,oneof=male female other"`
	Symptoms              []string `json:"symptoms" binding:"required,min=1,dive,symptomcode"`
	HeartRate             int      `json:"heart_rate" binding:"required,min=30,max=250"`
	SystolicBP            int      `json:"blood_pressure_systolic" binding:"required,min=70,max=250"`
	DiastolicBP           int      `json:"blood_pressure_diastolic" binding:"required,min=40,max=150"`
	Temperature           float64  `json:"temperature" binding:"required,min=35,max=43"`
	SpO2                  int      `json:"spo2" binding:"required,min=70,max=100"`
	RespiratoryRate       int      `json:"respiratory_rate" binding:"required,min=4,max=60"`
	PainScore             int      `json:"pain_score" binding:"min=0,max=10"`
	ChronicDiseaseCount   int      `json:"chronic_disease_count" binding:"min=0"`
	SymptomDurationHours  float64  `json:"symptom_duration" binding:"min=0"`
	PreExistingConditions []string `json:"pre_existing_conditions"`
}

// Vitals converts the request into the internal vitals struct.
func (r *CreatePatientRequest) ToVitals() Vitals {
	return Vitals{
		HeartRate:            r.HeartRate,
		SystolicBP:           r.SystolicBP,
		DiastolicBP:          r.DiastolicBP,
		Temperature:          r.Temperature,
		SpO2:                 r.SpO2,
		RespiratoryRate:      r.RespiratoryRate,
		PainScore:            r.PainScore,
		ChronicDiseaseCount:  r.ChronicDiseaseCount,
		SymptomDurationHours: r.SymptomDurationHours,
	}
}

// UpdateVitalsRequest edits clinical inputs in place and triggers a full
// re-scoring pass. Same shape as intake.
type UpdateVitalsRequest = CreatePatientRequest

// TransferRequest moves a patient to another department without re-scoring.
type TransferRequest struct {
	Department string `json:"department" binding:"required"`
}

// QueuePlacement is a patient's position in the live ordering.
type QueuePlacement struct {
	Position             int `json:"position"`
	EstimatedWaitMinutes int `json:"estimated_wait_minutes"`
}

// PatientResponse is the outward shape: the record plus queue placement.
type PatientResponse struct {
	*PatientRecord
	QueuePosition        int `json:"queue_position"`
	EstimatedWaitMinutes int `json:"estimated_wait_minutes"`
}
