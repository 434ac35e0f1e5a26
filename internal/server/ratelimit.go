package server

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type RateLimitConfig struct {
	GlobalRPS   float64
	GlobalBurst int
	WriteLimit  int
	WriteWindow time.Duration
	Redis       RedisConfig
}

// RedisConfig points the write limiter at a shared Redis counter so several
// replicas enforce one budget. Leaving Addr empty keeps counting in-process.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Timeout  time.Duration
	TLS      RedisTLSConfig
}

type rateLimiter struct {
	global       *tokenBucket
	writeLimit   int
	writeWindow  time.Duration
	writeMu      sync.Mutex
	writeBuckets map[string]*ipLimiter
	store        counterStore
}

type ipLimiter struct {
	bucket   *tokenBucket
	lastSeen time.Time
}

type counterStore interface {
	Allow(key string, limit int, window time.Duration) (bool, time.Duration, error)
	Close(ctx context.Context) error
}

func newRateLimiter(cfg RateLimitConfig) (*rateLimiter, error) {
	rl := &rateLimiter{
		writeLimit:   cfg.WriteLimit,
		writeWindow:  cfg.WriteWindow,
		writeBuckets: make(map[string]*ipLimiter),
	}
	if cfg.GlobalRPS > 0 {
		burst := cfg.GlobalBurst
		if burst <= 0 {
			burst = int(cfg.GlobalRPS)
			if burst < 1 {
				burst = 1
			}
		}
		rl.global = newTokenBucket(cfg.GlobalRPS, burst)
	}
	if rl.writeLimit < 0 {
		rl.writeLimit = 0
	}
	if rl.writeWindow <= 0 {
		rl.writeWindow = time.Minute
	}
	if cfg.Redis.Addr != "" && rl.writeLimit > 0 {
		store, err := newRedisStore(cfg.Redis)
		if err != nil {
			return nil, err
		}
		rl.store = store
	}
	return rl, nil
}

func (r *rateLimiter) AllowRequest() bool {
	if r == nil || r.global == nil {
		return true
	}
	return r.global.Allow()
}

// AllowWrite throttles mutating requests per client key. The shared Redis
// counter takes precedence when configured; otherwise a per-key token bucket
// covers the single-process case.
func (r *rateLimiter) AllowWrite(key string) (bool, time.Duration, error) {
	if r == nil || r.writeLimit <= 0 {
		return true, 0, nil
	}
	if r.store != nil {
		return r.store.Allow(fmt.Sprintf("fieldlog:write:%s", key), r.writeLimit, r.writeWindow)
	}
	if key == "" {
		key = "unknown"
	}
	r.writeMu.Lock()
	limiter, exists := r.writeBuckets[key]
	if !exists {
		rate := float64(r.writeLimit) / r.writeWindow.Seconds()
		if rate <= 0 {
			rate = 1 / r.writeWindow.Seconds()
		}
		limiter = &ipLimiter{bucket: newTokenBucket(rate, r.writeLimit)}
		r.writeBuckets[key] = limiter
	}
	limiter.lastSeen = time.Now()
	r.cleanupLocked()
	r.writeMu.Unlock()

	if limiter.bucket.Allow() {
		return true, 0, nil
	}
	return false, time.Second, nil
}

func (r *rateLimiter) Close(ctx context.Context) error {
	if r == nil || r.store == nil {
		return nil
	}
	return r.store.Close(ctx)
}

func (r *rateLimiter) cleanupLocked() {
	if len(r.writeBuckets) == 0 {
		return
	}
	cutoff := time.Now().Add(-2 * r.writeWindow)
	for key, limiter := range r.writeBuckets {
		if limiter.lastSeen.Before(cutoff) {
			delete(r.writeBuckets, key)
		}
	}
}

type tokenBucket struct {
	mu        sync.Mutex
	rate      float64
	capacity  float64
	tokens    float64
	lastCheck time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	now := time.Now()
	return &tokenBucket{
		rate:      rate,
		capacity:  float64(burst),
		tokens:    float64(burst),
		lastCheck: now,
	}
}

func (tb *tokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	now := time.Now()
	elapsed := now.Sub(tb.lastCheck).Seconds()
	tb.lastCheck = now
	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	if tb.tokens < 1 {
		return false
	}
	tb.tokens -= 1
	return true
}
