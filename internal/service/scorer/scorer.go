package scorer

import (
	"math"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/model"
)

// Scorer combines risk tier, probabilities and acuity signals into a single
// continuous priority score in [0,100]. Deterministic: the same inputs
// always produce the same score, and worsening any single input never
// lowers it.
type Scorer struct {
	w config.ScoringConfig
}

func NewScorer(w config.ScoringConfig) *Scorer {
	return &Scorer{w: w}
}

// Input carries everything the score depends on.
type Input struct {
	RiskLevel     model.RiskLevel
	Probabilities model.ProbabilityBreakdown
	Vitals        model.Vitals
	Alerts        []model.AbnormalityAlert
	Age           int
}

// Score computes the priority score.
//
// The base contribution is keyed by tier and refined by the high-risk
// probability mass, so two "high" patients are not tied merely by label.
// Acuity modifiers add on top: critical alerts, pain, a compounding
// chronic-comorbidity-times-duration term, and age extremes. The result is
// clamped to [0,100].
func (s *Scorer) Score(in Input) float64 {
	score := s.base(in.RiskLevel)
	score += s.w.HighProbWeight * in.Probabilities.High

	for _, a := range in.Alerts {
		switch a.Severity {
		case model.SeverityCritical:
			score += s.w.CriticalAlertBonus
		case model.SeverityWarning:
			score += s.w.WarningAlertBonus
		}
	}

	score += s.w.PainWeight * float64(in.Vitals.PainScore)

	// Chronic comorbidity raises urgency disproportionately for slow-onset
	// severe symptoms: the term grows with both duration and chronic count.
	if in.Vitals.ChronicDiseaseCount > 0 && in.Vitals.SymptomDurationHours > 0 {
		score += s.w.ChronicDurationWeight *
			float64(in.Vitals.ChronicDiseaseCount) *
			math.Log1p(in.Vitals.SymptomDurationHours/24)
	}

	if in.Age < s.w.AgeYoungBelow || in.Age >= s.w.AgeElderlyFrom {
		score += s.w.AgeExtremeBonus
	}

	return clamp(score, 0, 100)
}

func (s *Scorer) base(tier model.RiskLevel) float64 {
	switch tier {
	case model.RiskHigh:
		return s.w.BaseHigh
	case model.RiskMedium:
		return s.w.BaseMedium
	default:
		return s.w.BaseLow
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
