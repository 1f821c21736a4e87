package scorer

import "github.com/meditriage/triage-api/internal/model"

// SeverityTimeline returns a rule-based escalation hint, or nil when no
// deteriorating-trend pattern is present.
func SeverityTimeline(tier model.RiskLevel, vt model.Vitals) *string {
	switch tier {
	case model.RiskHigh:
		if vt.SpO2 < 92 {
			return strp("Critical: Low SpO2. Risk may escalate within 1-2 hours without intervention.")
		}
		if vt.HeartRate > 120 || vt.SystolicBP > 180 {
			return strp("Unstable vitals. Risk may escalate in 1-2 hours; monitor closely.")
		}
		return strp("High risk. Monitor; condition may escalate in 2-4 hours if untreated.")

	case model.RiskMedium:
		if vt.SpO2 >= 92 && vt.SpO2 < 95 {
			return strp("Moderate risk. SpO2 below normal; may escalate in 4-6 hours if not improved.")
		}
		if vt.Temperature > 38.5 {
			return strp("Fever present. Risk may escalate in 4-6 hours if fever persists.")
		}
		if vt.HeartRate > 100 {
			return strp("Elevated heart rate. Monitor; may escalate in 4-6 hours.")
		}
		// Slow-onset severe presentation with comorbidities can outgrow the
		// medium tier before reassessment.
		if vt.PainScore >= 7 && vt.SymptomDurationHours >= 24 && vt.ChronicDiseaseCount >= 2 {
			return strp("Chronic comorbidity with prolonged severe symptoms; risk may escalate in 2-4 hours.")
		}
		return strp("Moderate risk. Reassess in 2-4 hours.")

	default:
		if vt.SpO2 < 95 || vt.Temperature > 37.5 {
			return strp("Low risk. Reassess in 4-6 hours if symptoms persist.")
		}
		return nil
	}
}

func strp(s string) *string { return &s }
