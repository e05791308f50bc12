package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioapp/api/internal/ratelimit"
	"github.com/folioapp/api/pkg/logger"
)

func newTestLimiter(t *testing.T, start time.Time) (*RateLimiter, *time.Time, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := &Client{
		client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()}),
		logger: logger.NewNop(),
	}
	t.Cleanup(func() { _ = client.Close() })

	rl, err := NewRateLimiter(client, "test", logger.NewNop())
	require.NoError(t, err)

	clock := start
	rl.now = func() time.Time { return clock }
	return rl, &clock, mr
}

func TestRateLimiterConsumesUpToLimit(t *testing.T) {
	rl, _, _ := newTestLimiter(t, time.Now())
	policy := ratelimit.Policy{Name: "test", Limit: 3, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := rl.Allow(ctx, policy, "client")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := rl.Allow(ctx, policy, "client")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestRateLimiterResetAtTracksOldestEntry(t *testing.T) {
	start := time.Now()
	rl, clock, _ := newTestLimiter(t, start)
	policy := ratelimit.Policy{Name: "test", Limit: 2, Window: time.Minute}
	ctx := context.Background()

	// scores are stored in milliseconds
	wantReset := time.UnixMilli(start.UnixMilli()).Add(policy.Window)

	res, err := rl.Allow(ctx, policy, "client")
	require.NoError(t, err)
	assert.Equal(t, wantReset, res.ResetAt)

	*clock = clock.Add(10 * time.Second)
	res, err = rl.Allow(ctx, policy, "client")
	require.NoError(t, err)
	require.True(t, res.Allowed)
	// the first entry is still the oldest, even on an allowed request
	assert.Equal(t, wantReset, res.ResetAt)

	res, err = rl.Allow(ctx, policy, "client")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	assert.Equal(t, wantReset, res.ResetAt)
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl, clock, _ := newTestLimiter(t, time.Now())
	policy := ratelimit.Policy{Name: "test", Limit: 2, Window: time.Minute}
	ctx := context.Background()

	_, err := rl.Allow(ctx, policy, "client")
	require.NoError(t, err)
	*clock = clock.Add(30 * time.Second)
	_, err = rl.Allow(ctx, policy, "client")
	require.NoError(t, err)

	res, err := rl.Allow(ctx, policy, "client")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// first entry ages out, second is still live
	*clock = clock.Add(31 * time.Second)
	res, err = rl.Allow(ctx, policy, "client")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl, _, _ := newTestLimiter(t, time.Now())
	policy := ratelimit.Policy{Name: "test", Limit: 1, Window: time.Minute}
	ctx := context.Background()

	res, err := rl.Allow(ctx, policy, "alice")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = rl.Allow(ctx, policy, "alice")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = rl.Allow(ctx, policy, "bob")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimiterPoliciesAreIndependent(t *testing.T) {
	rl, _, _ := newTestLimiter(t, time.Now())
	chat := ratelimit.Policy{Name: "chat", Limit: 1, Window: time.Minute}
	contact := ratelimit.Policy{Name: "contact", Limit: 1, Window: time.Minute}
	ctx := context.Background()

	res, err := rl.Allow(ctx, chat, "client")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = rl.Allow(ctx, chat, "client")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = rl.Allow(ctx, contact, "client")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimiterReset(t *testing.T) {
	rl, _, _ := newTestLimiter(t, time.Now())
	policy := ratelimit.Policy{Name: "test", Limit: 1, Window: time.Minute}
	ctx := context.Background()

	_, err := rl.Allow(ctx, policy, "client")
	require.NoError(t, err)

	res, err := rl.Allow(ctx, policy, "client")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	require.NoError(t, rl.Reset(ctx, policy, "client"))

	res, err = rl.Allow(ctx, policy, "client")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimiterEmptyKey(t *testing.T) {
	rl, _, _ := newTestLimiter(t, time.Now())
	policy := ratelimit.Policy{Name: "test", Limit: 1, Window: time.Minute}

	_, err := rl.Allow(context.Background(), policy, "")
	assert.Error(t, err)
}

func TestRateLimiterFailoverWhenRedisDown(t *testing.T) {
	rl, _, mr := newTestLimiter(t, time.Now())
	policy := ratelimit.Policy{Name: "test", Limit: 2, Window: time.Minute}
	ctx := context.Background()

	mr.Close()

	_, err := rl.Allow(ctx, policy, "client")
	require.Error(t, err)

	// behind the failover wrapper the in-process store keeps enforcing
	limiter := ratelimit.NewFailoverLimiter(rl, ratelimit.NewMemoryLimiter(), logger.NewNop())

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, policy, "client")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := limiter.Allow(ctx, policy, "client")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}
