package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/academy/internal/config"
)

const keyGatewayClient = "gateway:ratelimit:%s"

// ClientLimiter throttles gateway traffic per client key.
type ClientLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewClientLimiter(cfg config.Config, client *redis.Client) (*ClientLimiter, error) {
	gw := cfg.Gateway
	if gw.Rate <= 0 || gw.Burst <= 0 {
		return nil, errors.New("gateway rate limit must be positive")
	}
	return &ClientLimiter{
		bucket: NewTokenBucket(client),
		rate:   gw.Rate,
		burst:  gw.Burst,
	}, nil
}

func (l *ClientLimiter) Allow(ctx context.Context, clientKey string) (*Result, error) {
	return l.bucket.Allow(ctx, fmt.Sprintf(keyGatewayClient, strings.TrimSpace(clientKey)), l.rate, l.burst)
}

// NewRedisClient opens the client used for rate limiting.
func NewRedisClient(cfg config.Config) (*redis.Client, error) {
	addr := strings.TrimSpace(cfg.Gateway.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.Gateway.RedisPassword),
		DB:       cfg.Gateway.RedisDB,
	}), nil
}
