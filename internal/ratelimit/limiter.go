// Package ratelimit enforces per-user daily quotas. A short-TTL in-process
// cache sits in front of the durable tier and usage stores so the hot path
// never touches the database; staleness is bounded by the cache TTL.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-churiwal/auth-gateway/internal/autherr"
	"github.com/aman-churiwal/auth-gateway/internal/cache"
	"github.com/aman-churiwal/auth-gateway/internal/circuitbreaker"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type QuotaStore interface {
	RequestsPerDay(ctx context.Context, level int) (int, error)
}

type UsageCounter interface {
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}

// Entry is the cached limit state for one (user, tier) key. RequestCount only
// grows while the entry lives; once it reaches TierLimit every request for
// the key is rejected until the entry expires and is recounted durably.
type Entry struct {
	TierLimit    int64
	RequestCount int64
}

// TierLimiter answers "may this user make another request today". On a cache
// hit it compares and increments in memory; on a miss it recounts from the
// durable stores, failing closed when they are unavailable.
//
// The get-then-set on a hit is deliberately not atomic: two concurrent
// requests can read the same count and both increment, overshooting the quota
// slightly under load. That approximation is accepted in exchange for never
// holding a lock across the compare.
type TierLimiter struct {
	cache   *cache.TTL[string, Entry]
	quotas  QuotaStore
	usage   UsageCounter
	breaker *circuitbreaker.Breaker
	window  time.Duration
	clock   func() time.Time
	logger  *zap.Logger
}

type Config struct {
	CacheTTL time.Duration
	Window   time.Duration // trailing usage window, normally 24h
}

func NewTierLimiter(cfg Config, quotas QuotaStore, usage UsageCounter, logger *zap.Logger) *TierLimiter {
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}

	return &TierLimiter{
		cache:   cache.New[string, Entry](cfg.CacheTTL, cfg.CacheTTL),
		quotas:  quotas,
		usage:   usage,
		breaker: circuitbreaker.New(circuitbreaker.Config{}),
		window:  cfg.Window,
		clock:   time.Now,
		logger:  logger,
	}
}

func (l *TierLimiter) Close() {
	l.cache.Close()
}

// BreakerState reports the state of the breaker guarding durable-store reads.
func (l *TierLimiter) BreakerState() circuitbreaker.State {
	return l.breaker.State()
}

// CheckAndIncrement decides whether another request may proceed for the user
// today. The request that brings the count up to the limit is still allowed;
// the next one is rejected. Durable-store failures reject the request rather
// than letting it through unmetered.
func (l *TierLimiter) CheckAndIncrement(ctx context.Context, userID uuid.UUID, tierLevel int) error {
	key := fmt.Sprintf("%s:%d", userID, tierLevel)

	entry, ok := l.cache.Get(key)
	if !ok {
		fresh, err := l.recount(ctx, userID, tierLevel)
		if err != nil {
			l.logger.Error("rate limit recount failed",
				zap.String("user_id", userID.String()),
				zap.Int("tier_level", tierLevel),
				zap.Error(err))
			return autherr.ErrStoreUnavailable
		}
		entry = fresh
	}

	if entry.RequestCount >= entry.TierLimit {
		return autherr.ErrRateLimitExceeded
	}

	l.cache.Set(key, Entry{
		TierLimit:    entry.TierLimit,
		RequestCount: entry.RequestCount + 1,
	})

	return nil
}

// recount rebuilds limit state from the durable stores: the tier quota plus
// the request count over the trailing window.
func (l *TierLimiter) recount(ctx context.Context, userID uuid.UUID, tierLevel int) (Entry, error) {
	var entry Entry

	err := l.breaker.Do(func() error {
		limit, err := l.quotas.RequestsPerDay(ctx, tierLevel)
		if err != nil {
			return fmt.Errorf("failed to fetch tier quota: %w", err)
		}

		count, err := l.usage.CountSince(ctx, userID, l.clock().Add(-l.window))
		if err != nil {
			return fmt.Errorf("failed to count usage: %w", err)
		}

		entry = Entry{TierLimit: int64(limit), RequestCount: count}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	key := fmt.Sprintf("%s:%d", userID, tierLevel)
	l.cache.Set(key, entry)
	return entry, nil
}
