package classifier

import (
	"context"
	"math"

	"github.com/meditriage/triage-api/internal/model"
)

// severeSymptoms carry the most acuity weight; they mirror the patterns the
// statistical model learned from.
var severeSymptoms = map[string]bool{
	"unconscious":     true,
	"stroke_symptoms": true,
	"seizure":         true,
	"bleeding":        true,
	"trauma":          true,
	"chest_pain":      true,
}

// RuleClassifier is a deterministic acuity-points classifier. It accumulates
// points for out-of-band vitals and severe symptoms and converts the total
// into a probability triple over the three tiers.
type RuleClassifier struct {
	version string
}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{version: "rules-v1"}
}

func (c *RuleClassifier) ModelVersion() string { return c.version }

func (c *RuleClassifier) Classify(_ context.Context, fv model.FeatureVector) (*model.Classification, error) {
	points := acuityPoints(fv)
	probs := probabilities(points)

	tier := model.RiskLow
	confidence := probs.Low
	if probs.Medium > confidence {
		tier = model.RiskMedium
		confidence = probs.Medium
	}
	if probs.High > confidence {
		tier = model.RiskHigh
		confidence = probs.High
	}

	return &model.Classification{
		RiskLevel:       tier,
		Probabilities:   probs,
		ConfidenceScore: round1(confidence * 100),
	}, nil
}

func acuityPoints(fv model.FeatureVector) float64 {
	var p float64

	switch {
	case fv.SpO2 < 90:
		p += 4
	case fv.SpO2 < 92:
		p += 3
	case fv.SpO2 < 95:
		p += 1
	}

	switch {
	case fv.HeartRate > 120 || fv.HeartRate < 50:
		p += 3
	case fv.HeartRate > 100 || fv.HeartRate < 60:
		p += 1
	}

	switch {
	case fv.SystolicBP >= 180:
		p += 3
	case fv.SystolicBP < 90:
		p += 2
	case fv.SystolicBP > 140:
		p += 1
	}

	switch {
	case fv.Temperature >= 39.0:
		p += 2
	case fv.Temperature > 38.0:
		p += 1
	}

	switch {
	case fv.RespiratoryRate > 30:
		p += 3
	case fv.RespiratoryRate > 24 || fv.RespiratoryRate < 10:
		p += 1
	}

	for _, s := range fv.Symptoms {
		if severeSymptoms[s] {
			p += 2
		}
	}

	if fv.PainScore >= 8 {
		p++
	}
	if fv.ChronicDiseaseCount >= 3 {
		p++
	}
	if fv.Age >= 75 || fv.Age < 2 {
		p++
	}

	return p
}

// probabilities spreads the acuity total over three tier kernels centered at
// low/medium/high and normalizes. Higher points always shift mass toward
// the high tier.
func probabilities(points float64) model.ProbabilityBreakdown {
	if points > 15 {
		points = 15
	}

	wLow := math.Exp(-sq(points-0.5) / 8)
	wMed := math.Exp(-sq(points-4.5) / 8)
	wHigh := math.Exp(-sq(points-9.0) / 8)
	sum := wLow + wMed + wHigh

	return model.ProbabilityBreakdown{
		Low:    wLow / sum,
		Medium: wMed / sum,
		High:   wHigh / sum,
	}
}

func sq(x float64) float64 { return x * x }

func round1(x float64) float64 { return math.Round(x*10) / 10 }
