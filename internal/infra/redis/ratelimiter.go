package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/folioapp/api/internal/ratelimit"
	"github.com/folioapp/api/pkg/logger"
)

// allowScript checks and consumes one request token atomically. Compiled
// once at package initialization.
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local window_ms = tonumber(ARGV[3])
	local limit = tonumber(ARGV[4])
	local request_id = ARGV[5]

	-- Remove expired entries
	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	-- Count current requests
	local count = redis.call('ZCARD', key)

	if count < limit then
		-- Add new request
		redis.call('ZADD', key, now, request_id)
		redis.call('PEXPIRE', key, window_ms)
		-- Oldest live entry determines the reset, matching the in-process
		-- limiter so the backends report the same headers
		local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
		return {1, limit - count - 1, tonumber(oldest[2]) + window_ms}
	else
		-- Oldest entry determines when a slot frees up
		local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
		local reset_at = oldest[2] and (tonumber(oldest[2]) + window_ms) or (now + window_ms)
		return {0, 0, reset_at}
	end
`)

// RateLimiter implements distributed rate limiting using the sliding
// window log algorithm over Redis sorted sets. Counts are shared across
// replicas, unlike the in-process limiter.
type RateLimiter struct {
	client    *Client
	keyPrefix string
	logger    *logger.Logger
	now       func() time.Time
}

// NewRateLimiter creates a distributed rate limiter.
func NewRateLimiter(client *Client, prefix string, log *logger.Logger) (*RateLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if prefix == "" {
		return nil, errors.New("key prefix is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	return &RateLimiter{
		client:    client,
		keyPrefix: prefix,
		logger:    log,
		now:       time.Now,
	}, nil
}

// buildKey creates the full rate limit key with prefix and policy.
func (rl *RateLimiter) buildKey(policy ratelimit.Policy, key string) string {
	return fmt.Sprintf("%s:%s:%s", rl.keyPrefix, policy.Name, key)
}

// Allow checks if a request is allowed under policy and consumes one
// token atomically. The Lua script makes the check-and-update a single
// critical section per key, safe across concurrent callers and replicas.
func (rl *RateLimiter) Allow(ctx context.Context, policy ratelimit.Policy, key string) (*ratelimit.Result, error) {
	if key == "" {
		return nil, errors.New("key is required")
	}

	fullKey := rl.buildKey(policy, key)
	now := rl.now()
	windowStart := now.Add(-policy.Window)
	requestID := uuid.New().String()

	raw, err := allowScript.Run(ctx, rl.client.client, []string{fullKey},
		now.UnixMilli(), windowStart.UnixMilli(), policy.Window.Milliseconds(),
		policy.Limit, requestID).Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	allowed := raw[0].(int64) == 1
	remaining := int(raw[1].(int64))
	resetAt := time.UnixMilli(raw[2].(int64))

	result := &ratelimit.Result{
		Allowed:   allowed,
		Limit:     policy.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}

	if !allowed {
		rl.logger.Debug("rate limit exceeded",
			"policy", policy.Name,
			"reset_at", resetAt,
		)
	}

	return result, nil
}

// Reset removes the rate limit state for a key under a policy. Used by
// the ops CLI.
func (rl *RateLimiter) Reset(ctx context.Context, policy ratelimit.Policy, key string) error {
	if key == "" {
		return errors.New("key is required")
	}

	if err := rl.client.client.Del(ctx, rl.buildKey(policy, key)).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}
