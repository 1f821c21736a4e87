package model

// RiskLevel is the coarse clinical urgency tier produced by the classifier.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether the tier is one of the known levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// ProbabilityBreakdown is the calibrated probability triple for the three
// risk tiers. The three values are non-negative and sum to 1.
type ProbabilityBreakdown struct {
	Low    float64 `json:"low" db:"prob_low"`
	Medium float64 `json:"medium" db:"prob_medium"`
	High   float64 `json:"high" db:"prob_high"`
}

// FeatureVector is the classifier input assembled from validated intake data.
type FeatureVector struct {
	Age                  int      `json:"age"`
	Gender               Gender   `json:"gender"`
	HeartRate            int      `json:"heart_rate"`
	SystolicBP           int      `json:"blood_pressure_systolic"`
	DiastolicBP          int      `json:"blood_pressure_diastolic"`
	Temperature          float64  `json:"temperature"`
	SpO2                 int      `json:"spo2"`
	RespiratoryRate      int      `json:"respiratory_rate"`
	PainScore            int      `json:"pain_score"`
	ChronicDiseaseCount  int      `json:"chronic_disease_count"`
	SymptomDurationHours float64  `json:"symptom_duration"`
	Symptoms             []string `json:"symptoms"`
}

// Classification is the classifier output consumed by the scorer and router.
type Classification struct {
	RiskLevel     RiskLevel            `json:"risk_level"`
	Probabilities ProbabilityBreakdown `json:"probability_breakdown"`
	// ConfidenceScore is the probability mass of the predicted tier, 0-100.
	ConfidenceScore float64 `json:"confidence_score"`
}
