package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditriage/triage-api/internal/model"
)

func healthyVector() model.FeatureVector {
	return model.FeatureVector{
		Age:                  30,
		HeartRate:            72,
		SystolicBP:           115,
		DiastolicBP:          75,
		Temperature:          36.7,
		SpO2:                 99,
		RespiratoryRate:      14,
		PainScore:            1,
		ChronicDiseaseCount:  0,
		SymptomDurationHours: 4,
		Symptoms:             []string{"headache"},
	}
}

func criticalVector() model.FeatureVector {
	return model.FeatureVector{
		Age:                  78,
		HeartRate:            135,
		SystolicBP:           190,
		DiastolicBP:          110,
		Temperature:          39.4,
		SpO2:                 87,
		RespiratoryRate:      34,
		PainScore:            9,
		ChronicDiseaseCount:  3,
		SymptomDurationHours: 2,
		Symptoms:             []string{"chest_pain", "unconscious"},
	}
}

func TestClassifyHealthyPatientIsLowRisk(t *testing.T) {
	c := NewRuleClassifier()

	cls, err := c.Classify(context.Background(), healthyVector())
	require.NoError(t, err)
	assert.Equal(t, model.RiskLow, cls.RiskLevel)
	assert.Greater(t, cls.Probabilities.Low, cls.Probabilities.Medium)
	assert.Greater(t, cls.Probabilities.Low, cls.Probabilities.High)
}

func TestClassifyCriticalPatientIsHighRisk(t *testing.T) {
	c := NewRuleClassifier()

	cls, err := c.Classify(context.Background(), criticalVector())
	require.NoError(t, err)
	assert.Equal(t, model.RiskHigh, cls.RiskLevel)
	assert.Greater(t, cls.Probabilities.High, 0.5)
}

func TestClassifyProbabilitiesSumToOne(t *testing.T) {
	c := NewRuleClassifier()

	for _, fv := range []model.FeatureVector{healthyVector(), criticalVector()} {
		cls, err := c.Classify(context.Background(), fv)
		require.NoError(t, err)
		sum := cls.Probabilities.Low + cls.Probabilities.Medium + cls.Probabilities.High
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewRuleClassifier()
	fv := criticalVector()

	first, err := c.Classify(context.Background(), fv)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Classify(context.Background(), fv)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestClassifyTierMatchesArgmax(t *testing.T) {
	c := NewRuleClassifier()

	fv := healthyVector()
	fv.SpO2 = 93
	fv.HeartRate = 105
	fv.Temperature = 38.3
	fv.Symptoms = []string{"fever", "nausea"}

	cls, err := c.Classify(context.Background(), fv)
	require.NoError(t, err)

	max := cls.Probabilities.Low
	tier := model.RiskLow
	if cls.Probabilities.Medium > max {
		max, tier = cls.Probabilities.Medium, model.RiskMedium
	}
	if cls.Probabilities.High > max {
		max, tier = cls.Probabilities.High, model.RiskHigh
	}
	assert.Equal(t, tier, cls.RiskLevel)
	assert.InDelta(t, max*100, cls.ConfidenceScore, 0.05)
}

func TestConfidenceScoreRange(t *testing.T) {
	c := NewRuleClassifier()

	for _, fv := range []model.FeatureVector{healthyVector(), criticalVector()} {
		cls, err := c.Classify(context.Background(), fv)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cls.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, cls.ConfidenceScore, 100.0)
	}
}

func TestModelVersion(t *testing.T) {
	assert.Equal(t, "rules-v1", NewRuleClassifier().ModelVersion())
}
