package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNoLimiter(t *testing.T) {
	l := &NoLimiter{}
	for i := 0; i < 1000; i++ {
		allowed, err := l.Allow("")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestLocalRateLimiter(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(2), 2)

	for i := 0; i < 2; i++ {
		allowed, err := l.Allow("a")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := l.Allow("a")
	assert.NoError(t, err)
	assert.False(t, allowed)

	// Keys are limited independently
	for i := 0; i < 2; i++ {
		allowed, err := l.Allow("b")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err = l.Allow("b")
	assert.NoError(t, err)
	assert.False(t, allowed)
}

func TestPerIntervalLimiter(t *testing.T) {
	l := NewPerIntervalLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow("wallet")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := l.Allow("wallet")
	assert.NoError(t, err)
	assert.False(t, allowed)
}

func TestLocalRateLimiter_MinimumBurst(t *testing.T) {
	l := NewLocalRateLimiter(rate.Every(time.Hour), 0)

	allowed, err := l.Allow("a")
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.Allow("a")
	assert.NoError(t, err)
	assert.False(t, allowed)
}
