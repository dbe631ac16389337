package breaker

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNotRateLimited     = errors.New("rate limit not active")
	ErrCooldownNotElapsed = errors.New("cooldown period not elapsed")
	ErrInvalidTimestamp   = errors.New("grace period end must be in the future")
	ErrNotOperational     = errors.New("system is not operational")
)

// Breaker is the protocol-wide operational state machine. Operational is the
// initial state; marking the system not operational is terminal. While
// operational, the rate-limited flag and the grace-period deadline co-exist:
// an active grace period suppresses rate-limit enforcement.
type Breaker struct {
	mutex             sync.Mutex
	operational       bool
	rateLimited       bool
	lastRateLimitTime time.Time
	gracePeriodEnd    time.Time
	cooldown          time.Duration
	now               func() time.Time
}

func New(cooldown time.Duration) *Breaker {
	return &Breaker{
		operational: true,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// WithClock overrides the breaker's clock. Test hook.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.now = now
	return b
}

// NoteBreach records a rate-limit breach. Idempotent while already
// rate-limited: the original breach timestamp is preserved so the cooldown
// is measured from the first breach.
func (b *Breaker) NoteBreach() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.rateLimited {
		return
	}
	b.rateLimited = true
	b.lastRateLimitTime = b.now()
}

// OverrideRateLimit clears an active rate limit and extends the grace
// period to a full cooldown from now, so a borderline transaction cannot
// immediately re-trigger inside the same observation window.
func (b *Breaker) OverrideRateLimit() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.rateLimited {
		return ErrNotRateLimited
	}
	b.rateLimited = false
	b.gracePeriodEnd = b.now().Add(b.cooldown)
	return nil
}

// OverrideExpiredRateLimit clears a rate limit whose cooldown has elapsed.
// Unlike OverrideRateLimit it grants no grace period.
func (b *Breaker) OverrideExpiredRateLimit() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.rateLimited {
		return ErrNotRateLimited
	}
	if b.now().Before(b.lastRateLimitTime.Add(b.cooldown)) {
		return ErrCooldownNotElapsed
	}
	b.rateLimited = false
	return nil
}

// StartGracePeriod sets the grace-period deadline. Usable any time, whether
// or not a rate limit is active.
func (b *Breaker) StartGracePeriod(end time.Time) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !end.After(b.now()) {
		return ErrInvalidTimestamp
	}
	b.gracePeriodEnd = end
	return nil
}

// MarkAsNotOperational moves the breaker to its terminal state. No
// transition reverses this.
func (b *Breaker) MarkAsNotOperational() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.operational = false
}

func (b *Breaker) IsOperational() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.operational
}

func (b *Breaker) IsRateLimited() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.rateLimited
}

func (b *Breaker) IsInGracePeriod() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.now().Before(b.gracePeriodEnd)
}

func (b *Breaker) CooldownPeriod() time.Duration {
	return b.cooldown
}

func (b *Breaker) LastRateLimitTime() time.Time {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.lastRateLimitTime
}

func (b *Breaker) GracePeriodEnd() time.Time {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.gracePeriodEnd
}
