package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	assert.True(t, rl.getLimiter("10.0.0.1").Allow())
	assert.False(t, rl.getLimiter("10.0.0.1").Allow())
	assert.NotNil(t, rl.getLimiter("10.0.0.2"))
	assert.Equal(t, 2, rl.Len())

	now = now.Add(5 * time.Minute)
	rl.getLimiter("10.0.0.2")

	now = now.Add(limiterIdleTTL + time.Second)
	rl.getLimiter("10.0.0.3")
	assert.Equal(t, 1, rl.Len(), "idle clients are dropped")

	now = now.Add(limiterIdleTTL)
	rl.getLimiter("10.0.0.3")
	assert.Equal(t, 1, rl.Len(), "recently seen clients survive")
}
