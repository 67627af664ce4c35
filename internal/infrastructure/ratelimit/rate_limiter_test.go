package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesBurst(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 10; i++ {
		allowed, _ := rl.Allow("alice", "send_message")
		assert.True(t, allowed, "burst token %d should be available", i+1)
	}

	allowed, wait := rl.Allow("alice", "send_message")
	assert.False(t, allowed)
	assert.Greater(t, wait.Nanoseconds(), int64(0), "denial must report a retry delay")
}

func TestBucketsAreIsolatedPerUserAndAction(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 10; i++ {
		rl.Allow("alice", "send_message")
	}

	allowed, _ := rl.Allow("bob", "send_message")
	assert.True(t, allowed, "another user keeps a full bucket")

	allowed, _ = rl.Allow("alice", "typing")
	assert.True(t, allowed, "another action keeps a full bucket")
}

func TestUnknownActionUsesDefaultBudget(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 20; i++ {
		allowed, _ := rl.Allow("alice", "wave")
		assert.True(t, allowed)
	}

	allowed, _ := rl.Allow("alice", "wave")
	assert.False(t, allowed)
}
