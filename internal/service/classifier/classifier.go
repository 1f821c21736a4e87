package classifier

import (
	"context"
	"errors"

	"github.com/meditriage/triage-api/internal/model"
)

// ErrUnavailable signals that the classifier cannot produce a result. The
// caller must fail the admit request rather than guess a tier.
var ErrUnavailable = errors.New("classifier unavailable")

// Classifier maps a feature vector to a risk tier plus calibrated
// probabilities. Implementations must be deterministic for identical inputs
// within one model version; rule-based, statistical, and remote
// implementations are interchangeable behind this interface.
type Classifier interface {
	Classify(ctx context.Context, fv model.FeatureVector) (*model.Classification, error)
	ModelVersion() string
}
