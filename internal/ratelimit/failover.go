package ratelimit

import (
	"context"

	"github.com/folioapp/api/pkg/logger"
)

// FailoverLimiter tries the primary store and degrades to the fallback
// when the primary reports an infrastructure error. A denied request is a
// result, not an error, so failover never turns a deny into an allow on
// a healthy primary.
type FailoverLimiter struct {
	primary  Limiter
	fallback Limiter
	logger   *logger.Logger
}

// NewFailoverLimiter wires a primary and a fallback limiter.
func NewFailoverLimiter(primary, fallback Limiter, log *logger.Logger) *FailoverLimiter {
	return &FailoverLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   log,
	}
}

// Allow consults the primary first. On error the same call is answered by
// the fallback, so admission decisions keep flowing while the primary is
// down.
func (f *FailoverLimiter) Allow(ctx context.Context, policy Policy, key string) (*Result, error) {
	result, err := f.primary.Allow(ctx, policy, key)
	if err == nil {
		return result, nil
	}

	f.logger.Warn("rate limit primary store failed, using fallback",
		"policy", policy.Name,
		"error", err.Error(),
	)

	return f.fallback.Allow(ctx, policy, key)
}
