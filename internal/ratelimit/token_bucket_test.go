package ratelimit

import (
	"testing"
	"time"

	"github.com/smallbiznis/academy/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	ok := evaluate(true, 3.6, 1_000, 2, 5)
	assert.True(t, ok.Allowed)
	assert.Equal(t, 3, ok.Remaining)
	assert.Equal(t, 5, ok.Limit)
	assert.Zero(t, ok.RetryAfter)

	denied := evaluate(false, 0.5, 1_000, 2, 5)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 250*time.Millisecond, denied.RetryAfter)
	assert.Equal(t, time.UnixMilli(1_250), denied.ResetTime)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 4*time.Second, defaultBucketTTL(20, 40))
	assert.Equal(t, time.Second, defaultBucketTTL(1000, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(7), castToInt("7"))
	assert.Equal(t, int64(7), castToInt(int64(7)))
	assert.InDelta(t, 0.75, castToFloat("0.75"), 1e-9)
	assert.Zero(t, castToFloat(nil))
}

func TestNilBucketRefuses(t *testing.T) {
	var b *TokenBucket
	res, err := b.Allow(t.Context(), "k", 1, 1)
	require.Error(t, err)
	assert.False(t, res.Allowed)
}

func TestNewClientLimiterValidates(t *testing.T) {
	_, err := NewClientLimiter(config.Config{Gateway: config.GatewayConfig{Rate: 0, Burst: 1}}, nil)
	assert.Error(t, err)

	_, err = NewRedisClient(config.Config{})
	assert.Error(t, err)
}
