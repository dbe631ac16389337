package breaker_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/defiguard/flowbreaker/internal/breaker"
)

var _ = Describe("Breaker", func() {
	var (
		b       *breaker.Breaker
		current time.Time
	)

	// Fixed test clock advanced by hand.
	advance := func(d time.Duration) { current = current.Add(d) }

	BeforeEach(func() {
		current = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		b = breaker.New(time.Hour).WithClock(func() time.Time { return current })
	})

	Describe("New", func() {
		It("starts operational, not rate-limited, outside any grace period", func() {
			Expect(b.IsOperational()).To(BeTrue())
			Expect(b.IsRateLimited()).To(BeFalse())
			Expect(b.IsInGracePeriod()).To(BeFalse())
			Expect(b.CooldownPeriod()).To(Equal(time.Hour))
		})
	})

	Describe("NoteBreach", func() {
		It("sets the rate-limited flag and records the breach time", func() {
			b.NoteBreach()
			Expect(b.IsRateLimited()).To(BeTrue())
			Expect(b.LastRateLimitTime()).To(Equal(current))
		})

		It("is idempotent and keeps the original breach time", func() {
			b.NoteBreach()
			first := b.LastRateLimitTime()

			advance(10 * time.Minute)
			b.NoteBreach()

			Expect(b.IsRateLimited()).To(BeTrue())
			Expect(b.LastRateLimitTime()).To(Equal(first))
		})
	})

	Describe("OverrideRateLimit", func() {
		It("fails when no rate limit is active", func() {
			Expect(b.OverrideRateLimit()).To(MatchError(breaker.ErrNotRateLimited))
		})

		It("clears the flag and grants a full cooldown of grace", func() {
			b.NoteBreach()
			Expect(b.OverrideRateLimit()).To(Succeed())

			Expect(b.IsRateLimited()).To(BeFalse())
			Expect(b.GracePeriodEnd()).To(Equal(current.Add(b.CooldownPeriod())))
			Expect(b.IsInGracePeriod()).To(BeTrue())
		})
	})

	Describe("OverrideExpiredRateLimit", func() {
		It("fails when no rate limit is active", func() {
			Expect(b.OverrideExpiredRateLimit()).To(MatchError(breaker.ErrNotRateLimited))
		})

		It("fails before the cooldown has elapsed", func() {
			b.NoteBreach()
			advance(59 * time.Minute)
			Expect(b.OverrideExpiredRateLimit()).To(MatchError(breaker.ErrCooldownNotElapsed))
			Expect(b.IsRateLimited()).To(BeTrue())
		})

		It("clears the flag once the cooldown has elapsed, without grace", func() {
			b.NoteBreach()
			advance(time.Hour)
			Expect(b.OverrideExpiredRateLimit()).To(Succeed())
			Expect(b.IsRateLimited()).To(BeFalse())
			Expect(b.IsInGracePeriod()).To(BeFalse())
		})
	})

	Describe("StartGracePeriod", func() {
		It("rejects a deadline not in the future", func() {
			Expect(b.StartGracePeriod(current)).To(MatchError(breaker.ErrInvalidTimestamp))
			Expect(b.StartGracePeriod(current.Add(-time.Second))).To(MatchError(breaker.ErrInvalidTimestamp))
		})

		It("sets the deadline whether or not a rate limit is active", func() {
			end := current.Add(30 * time.Minute)
			Expect(b.StartGracePeriod(end)).To(Succeed())
			Expect(b.GracePeriodEnd()).To(Equal(end))
			Expect(b.IsInGracePeriod()).To(BeTrue())

			advance(30 * time.Minute)
			Expect(b.IsInGracePeriod()).To(BeFalse())
		})
	})

	Describe("MarkAsNotOperational", func() {
		It("is terminal", func() {
			b.MarkAsNotOperational()
			Expect(b.IsOperational()).To(BeFalse())
		})
	})
})
