package session

import (
	"math/rand"
	"time"

	"github.com/nexus-wa-bridge/internal/domain"
)

// PolicyConfig parameterizes reconnection by disconnect cause.
type PolicyConfig struct {
	ConflictCooldown time.Duration
	Backoff          BackoffConfig
	// StormThreshold network-reported generic disconnects inside StormWindow are
	// handled like an invalid credential. Zero disables the escalation.
	StormThreshold int
	StormWindow    time.Duration
}

// DefaultPolicyConfig mirrors the config package defaults.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		ConflictCooldown: 5 * time.Second,
		Backoff: BackoffConfig{
			InitialDelay: 500 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
		},
		StormThreshold: 5,
		StormWindow:    time.Minute,
	}
}

// Decision is what to do before the next connection attempt.
type Decision struct {
	Wipe      bool
	Delay     time.Duration
	Escalated bool // Wipe was caused by a failure storm, not by the network
}

// Policy tracks consecutive failures. Not safe for concurrent use; the manager
// goroutine owns it.
type Policy struct {
	cfg      PolicyConfig
	rng      *rand.Rand
	attempt  int
	failures []time.Time
}

func NewPolicy(cfg PolicyConfig, rng *rand.Rand) *Policy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Policy{cfg: cfg, rng: rng}
}

// Next records a disconnect with the given cause at now and returns the decision.
func (p *Policy) Next(cause domain.DisconnectCause, now time.Time) Decision {
	switch cause {
	case domain.CauseAuthInvalid:
		p.Reset()
		return Decision{Wipe: true}
	case domain.CauseStreamConflict:
		return Decision{Delay: p.cfg.ConflictCooldown}
	}

	p.failures = append(p.recentFailures(now), now)
	if p.cfg.StormThreshold > 0 && len(p.failures) >= p.cfg.StormThreshold {
		p.Reset()
		return Decision{Wipe: true, Escalated: true}
	}
	p.attempt++
	return Decision{Delay: NextBackoffDelay(p.cfg.Backoff, p.attempt, p.rng)}
}

// Retry returns the delay after an attempt that never reached the network, such as
// a dial error or an unreadable credential store. It backs off like a generic
// failure but never counts toward the storm threshold: being offline says nothing
// about the credential.
func (p *Policy) Retry() Decision {
	p.attempt++
	return Decision{Delay: NextBackoffDelay(p.cfg.Backoff, p.attempt, p.rng)}
}

// Reset forgets past failures. Called once the session is connected again.
func (p *Policy) Reset() {
	p.attempt = 0
	p.failures = p.failures[:0]
}

func (p *Policy) recentFailures(now time.Time) []time.Time {
	if p.cfg.StormWindow <= 0 {
		return p.failures
	}
	cutoff := now.Add(-p.cfg.StormWindow)
	kept := p.failures[:0]
	for _, t := range p.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
