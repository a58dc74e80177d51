// Package ratelimit throttles state-changing API requests per client.
package ratelimit

import (
	"sync"
	"time"
)

// maxIdleBuckets is the bucket count above which full buckets are dropped.
const maxIdleBuckets = 10000

// bucket tracks the token state for a single key.
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter implements a token-bucket rate limiter keyed by arbitrary string
// identifiers such as a client address.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
	now     func() time.Time // injectable clock for testing
}

// New creates a Limiter that allows rate requests per window for each key.
func New(rate int, window time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		window:  window,
		now:     time.Now,
	}
}

// refill adds tokens to the bucket based on elapsed time since the last refill.
// Must be called with l.mu held.
func (l *Limiter) refill(b *bucket, now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	// Tokens accumulate at rate/window per second.
	b.tokens += elapsed * float64(l.rate) / l.window.Seconds()
	if b.tokens > float64(l.rate) {
		b.tokens = float64(l.rate)
	}
	b.lastRefill = now
}

// Allow consumes one token for key when one is available and reports the
// bucket state after the attempt.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxIdleBuckets {
			l.pruneLocked(now)
		}
		b = &bucket{tokens: float64(l.rate), lastRefill: now}
		l.buckets[key] = b
	}
	l.refill(b, now)

	d := Decision{Limit: l.rate}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
	}

	d.Remaining = int(b.tokens)
	deficit := float64(l.rate) - b.tokens
	if deficit <= 0 {
		d.ResetAt = now
	} else {
		perSecond := float64(l.rate) / l.window.Seconds()
		d.ResetAt = now.Add(time.Duration(deficit / perSecond * float64(time.Second)))
	}
	return d
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// pruneLocked drops buckets that have refilled completely, since a fresh
// bucket would behave the same.
func (l *Limiter) pruneLocked(now time.Time) {
	for key, b := range l.buckets {
		l.refill(b, now)
		if b.tokens >= float64(l.rate) {
			delete(l.buckets, key)
		}
	}
}
