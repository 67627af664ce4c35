package ratelimit

import (
	"sync"
	"time"
)

// bucketSpec describes the token bucket used for one action kind.
type bucketSpec struct {
	maxTokens  int
	refillRate int
	refillTime time.Duration
}

// Per-action budgets. Typing is chatty and cheap; chat creation is rare.
var actionSpecs = map[string]bucketSpec{
	"send_message": {maxTokens: 10, refillRate: 1, refillTime: 6 * time.Second},
	"create_chat":  {maxTokens: 5, refillRate: 1, refillTime: 12 * time.Minute},
	"typing":       {maxTokens: 30, refillRate: 1, refillTime: 2 * time.Second},
}

var defaultSpec = bucketSpec{maxTokens: 20, refillRate: 1, refillTime: 3 * time.Second}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     int
	spec       bucketSpec
	lastRefill time.Time
}

func newTokenBucket(spec bucketSpec) *tokenBucket {
	return &tokenBucket{
		tokens:     spec.maxTokens,
		spec:       spec,
		lastRefill: time.Now(),
	}
}

func (tb *tokenBucket) allow() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	refills := int(elapsed/tb.spec.refillTime) * tb.spec.refillRate
	if refills > 0 {
		tb.tokens += refills
		if tb.tokens > tb.spec.maxTokens {
			tb.tokens = tb.spec.maxTokens
		}
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	wait := tb.lastRefill.Add(tb.spec.refillTime).Sub(now)
	return false, wait
}

// RateLimiter throttles per (user, action) with token buckets.
type RateLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*tokenBucket
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
	}
}

// Allow consumes one token for the user's action if available. When denied it
// returns how long the caller must wait for the next token.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action

	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			spec, ok := actionSpecs[action]
			if !ok {
				spec = defaultSpec
			}
			bucket = newTokenBucket(spec)
			rl.buckets[key] = bucket
		}
		rl.mu.Unlock()
	}

	return bucket.allow()
}

// Cleanup drops buckets idle for over an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, bucket := range rl.buckets {
		bucket.mu.Lock()
		idle := now.Sub(bucket.lastRefill)
		bucket.mu.Unlock()
		if idle > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine periodically evicts idle buckets.
func (rl *RateLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			rl.Cleanup()
		}
	}()
}
