package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goalline/clubpay/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyReminderDispatchLock = "reminder:dispatch:lock:%s"
	keyReminderEndpoint     = "reminder:endpoint:%s"
)

// ReminderLimiter guards reminder dispatch. The lock serializes concurrent
// dispatches for one request across instances; the bucket throttles how often
// a single actor may hit the endpoint at all. The 24h per-recipient window is
// enforced in the reminder service against the reminder log, not here.
type ReminderLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	endpointRate  float64
	endpointBurst int
	lockTTL       time.Duration
}

func NewReminderLimiter(cfg config.Config) *ReminderLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &ReminderLimiter{
		enabled:       true,
		bucket:        NewTokenBucket(client),
		locker:        NewLocker(client),
		endpointRate:  0.2,
		endpointBurst: 5,
		lockTTL:       30 * time.Second,
	}
}

func (l *ReminderLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *ReminderLimiter) AllowEndpoint(ctx context.Context, actorID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyReminderEndpoint, strings.TrimSpace(actorID)), l.endpointRate, l.endpointBurst)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

func (l *ReminderLimiter) TryLockDispatch(ctx context.Context, requestID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keyReminderDispatchLock, strings.TrimSpace(requestID)), l.lockTTL)
}

func (l *ReminderLimiter) ReleaseDispatch(ctx context.Context, requestID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keyReminderDispatchLock, strings.TrimSpace(requestID)), token)
}
