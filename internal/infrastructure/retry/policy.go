// Package retry runs outbound calls with exponential backoff and jitter.
package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/orris-inc/paybridge/internal/shared/config"
)

// Policy bounds how an operation is retried.
type Policy struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Factor         float64
	JitterFraction float64
	// IsRetriable decides whether an error may be retried. Nil means DefaultIsRetriable.
	IsRetriable func(error) bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     4,
		BaseDelay:      time.Second,
		MaxDelay:       8 * time.Second,
		Factor:         2,
		JitterFraction: 0.2,
		IsRetriable:    DefaultIsRetriable,
	}
}

// PolicyFromConfig builds a policy from the billing retry section.
func PolicyFromConfig(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxRetries > 0 {
		p.MaxRetries = cfg.MaxRetries
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = cfg.MaxDelay
	}
	if cfg.Factor >= 1 {
		p.Factor = cfg.Factor
	}
	if cfg.JitterFraction >= 0 {
		p.JitterFraction = cfg.JitterFraction
	}
	return p
}

// BaseDelayFor returns the pre-jitter delay before retry n (1-based).
func (p Policy) BaseDelayFor(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Delay returns the delay before retry n with jitter drawn from u in [0,1).
// The result never exceeds MaxDelay.
func (p Policy) Delay(n int, u float64) time.Duration {
	base := float64(p.BaseDelay) * math.Pow(p.Factor, float64(n-1))
	d := base + u*p.JitterFraction*base
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// policyBackOff adapts a Policy to backoff.BackOff.
type policyBackOff struct {
	policy  Policy
	attempt int
	rand    func() float64
}

var _ backoff.BackOff = (*policyBackOff)(nil)

func newPolicyBackOff(p Policy) *policyBackOff {
	return &policyBackOff{policy: p, rand: rand.Float64}
}

func (b *policyBackOff) NextBackOff() time.Duration {
	if b.attempt >= b.policy.MaxRetries {
		return backoff.Stop
	}
	b.attempt++
	return b.policy.Delay(b.attempt, b.rand())
}

func (b *policyBackOff) Reset() {
	b.attempt = 0
}
