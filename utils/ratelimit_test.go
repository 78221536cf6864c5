package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_ReusesLimiterPerIP(t *testing.T) {
	l := NewIPRateLimiter(1, 1)

	a := l.GetLimiter("10.0.0.1")
	assert.Same(t, a, l.GetLimiter("10.0.0.1"))
	assert.NotSame(t, a, l.GetLimiter("10.0.0.2"))
	assert.Equal(t, 2, l.limiters.ItemCount())
}

func TestIPRateLimiter_IdleEntriesExpire(t *testing.T) {
	l := newIPRateLimiter(1, 1, 20*time.Millisecond)
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		assert.True(t, l.GetLimiter(ip).Allow())
	}
	assert.False(t, l.GetLimiter("10.0.0.1").Allow())

	time.Sleep(50 * time.Millisecond)
	l.limiters.DeleteExpired()
	assert.Zero(t, l.limiters.ItemCount())

	// A returning client starts with a full bucket.
	assert.True(t, l.GetLimiter("10.0.0.1").Allow())
	assert.Equal(t, 1, l.limiters.ItemCount())
}
