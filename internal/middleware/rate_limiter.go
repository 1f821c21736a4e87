package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// ExemptPaths are prefixes never limited. Liveness probes and metric
	// scrapes must keep answering while an intake spike is throttled.
	ExemptPaths []string
}

// RateLimiter caps the overall admission rate. The limiter is global, not
// per-client: a simulation spike saturating intake should back-pressure
// every kiosk equally.
type RateLimiter struct {
	limiter *rate.Limiter
	exempt  []string
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.ExemptPaths == nil {
		config.ExemptPaths = []string{"/health", "/metrics"}
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(config.Rate, config.Burst),
		exempt:  config.ExemptPaths,
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range rl.exempt {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}
		if !rl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Code:    http.StatusTooManyRequests,
				Message: "rate limit exceeded",
				TraceID: GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}
