package session

import (
	"math/rand"
	"testing"
	"time"

	"github.com/nexus-wa-bridge/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNextBackoffDelay_ExponentialAndCapped(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: 250 * time.Millisecond, Multiplier: 2, MaxDelay: time.Second}

	assert.Equal(t, 250*time.Millisecond, NextBackoffDelay(cfg, 1, nil))
	assert.Equal(t, 500*time.Millisecond, NextBackoffDelay(cfg, 2, nil))
	assert.Equal(t, time.Second, NextBackoffDelay(cfg, 3, nil))
	assert.Equal(t, time.Second, NextBackoffDelay(cfg, 10, nil))
}

func TestNextBackoffDelay_ZeroInitialMeansImmediate(t *testing.T) {
	assert.Zero(t, NextBackoffDelay(BackoffConfig{Multiplier: 2}, 4, nil))
}

func TestNextBackoffDelay_JitterStaysWithinCap(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: time.Second, Multiplier: 2, MaxDelay: 4 * time.Second, Jitter: true}
	rng := rand.New(rand.NewSource(1))
	for attempt := 1; attempt < 20; attempt++ {
		d := NextBackoffDelay(cfg, attempt, rng)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 4*time.Second)
	}
}

func TestPolicy_AuthInvalidWipesImmediately(t *testing.T) {
	p := NewPolicy(testPolicy(), nil)
	d := p.Next(domain.CauseAuthInvalid, time.Now())
	assert.Equal(t, Decision{Wipe: true}, d)
}

func TestPolicy_StreamConflictUsesCooldown(t *testing.T) {
	p := NewPolicy(testPolicy(), nil)
	now := time.Now()
	for i := 0; i < 3; i++ {
		assert.Equal(t, Decision{Delay: 5 * time.Second}, p.Next(domain.CauseStreamConflict, now))
	}
}

func TestPolicy_ResetRestartsBackoff(t *testing.T) {
	p := NewPolicy(testPolicy(), nil)
	now := time.Now()
	assert.Equal(t, time.Second, p.Next(domain.CauseUnknown, now).Delay)
	assert.Equal(t, 2*time.Second, p.Next(domain.CauseUnknown, now).Delay)

	p.Reset()
	assert.Equal(t, time.Second, p.Next(domain.CauseUnknown, now).Delay)
}

func TestPolicy_StormOnlyCountsFailuresInsideWindow(t *testing.T) {
	cfg := testPolicy()
	cfg.StormThreshold = 3
	cfg.StormWindow = 10 * time.Second
	p := NewPolicy(cfg, nil)

	start := time.Now()
	assert.False(t, p.Next(domain.CauseUnknown, start).Wipe)
	assert.False(t, p.Next(domain.CauseUnknown, start.Add(time.Second)).Wipe)
	// The first failure has aged out by now.
	assert.False(t, p.Next(domain.CauseUnknown, start.Add(15*time.Second)).Wipe)
	d := p.Next(domain.CauseUnknown, start.Add(16*time.Second))
	assert.False(t, d.Wipe)

	d = p.Next(domain.CauseUnknown, start.Add(17*time.Second))
	assert.True(t, d.Wipe)
	assert.True(t, d.Escalated)
}

func TestPolicy_RetryBacksOffWithoutEscalating(t *testing.T) {
	cfg := testPolicy()
	cfg.StormThreshold = 1
	p := NewPolicy(cfg, nil)

	for i, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second} {
		d := p.Retry()
		assert.False(t, d.Wipe, "retry %d", i)
		assert.Equal(t, want, d.Delay, "retry %d", i)
	}
}
