package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test: each connection gets its own bucket; exhausting one does not touch
// another.
func TestRateLimiterPerConnection(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("c1"))
	assert.True(t, rl.Allow("c1"))
	assert.False(t, rl.Allow("c1"), "burst spent, third message must be throttled")

	assert.True(t, rl.Allow("c2"), "a different connection starts with a full bucket")
}

// Test: removing a connection forgets its bucket, so a reconnect under the
// same id starts fresh.
func TestRateLimiterRemoveConnection(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	assert.True(t, rl.Allow("c1"))
	assert.False(t, rl.Allow("c1"))

	rl.RemoveConnection("c1")
	assert.True(t, rl.Allow("c1"))
}
