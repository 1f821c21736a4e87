package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/meditriage/triage-api/internal/model"
)

// CachedClassifier memoizes classifier results. Classification is
// deterministic within a model version, so identical feature vectors can be
// answered from cache; the key includes the version so a model swap
// invalidates everything.
type CachedClassifier struct {
	inner Classifier
	cache *cache.Cache
}

func NewCachedClassifier(inner Classifier, ttl time.Duration) *CachedClassifier {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedClassifier{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedClassifier) ModelVersion() string { return c.inner.ModelVersion() }

func (c *CachedClassifier) Classify(ctx context.Context, fv model.FeatureVector) (*model.Classification, error) {
	key, err := c.key(fv)
	if err == nil {
		if v, ok := c.cache.Get(key); ok {
			cls := v.(model.Classification)
			return &cls, nil
		}
	}

	cls, err2 := c.inner.Classify(ctx, fv)
	if err2 != nil {
		return nil, err2
	}
	if err == nil {
		c.cache.SetDefault(key, *cls)
	}
	return cls, nil
}

func (c *CachedClassifier) key(fv model.FeatureVector) (string, error) {
	raw, err := json.Marshal(fv)
	if err != nil {
		return "", fmt.Errorf("failed to marshal feature vector: %w", err)
	}
	sum := sha256.Sum256(raw)
	return c.inner.ModelVersion() + ":" + hex.EncodeToString(sum[:]), nil
}
