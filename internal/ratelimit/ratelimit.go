// Package ratelimit coordinates submissions against the gateway's advisory
// throttle. The gateway remains the authority: a permissive answer here never
// guarantees a submission will be accepted, it only avoids pointless uploads.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"filescan/pkg/domain"
	"filescan/pkg/logger"
	"filescan/pkg/scanservice"

	"go.uber.org/zap"
)

// DefaultTick is the cadence at which Countdown decrements.
const DefaultTick = time.Second

// Coordinator queries and caches the gateway throttle status and runs
// cooldown countdowns. Safe for concurrent use.
type Coordinator struct {
	client scanservice.Client
	tick   time.Duration

	mu   sync.Mutex
	last *domain.RateLimitStatus
}

// New constructs a Coordinator. A non-positive tick falls back to DefaultTick.
func New(client scanservice.Client, tick time.Duration) *Coordinator {
	if tick <= 0 {
		tick = DefaultTick
	}

	return &Coordinator{
		client: client,
		tick:   tick,
	}
}

// Check queries the gateway throttle status and caches the answer. The check
// fails open: when the status endpoint is unreachable the result is
// permissive, because the gateway itself still enforces the real limit on
// submission and will answer 409/429 authoritatively.
func (c *Coordinator) Check(ctx context.Context) domain.RateLimitStatus {
	status, err := c.client.RateLimit(ctx)
	if err != nil {
		logger.Warn(ctx, "could not query rate limit status, allowing submission", zap.Error(err))

		return domain.RateLimitStatus{CanSubmit: true}
	}

	c.mu.Lock()
	c.last = &status
	c.mu.Unlock()

	return status
}

// Last returns the most recent successfully fetched throttle status.
func (c *Coordinator) Last() (domain.RateLimitStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == nil {
		return domain.RateLimitStatus{}, false
	}

	return *c.last, true
}

// Countdown blocks while decrementing the given wait once per tick, reporting
// the remaining time through onTick after every decrement (including the final
// zero). It returns nil once the wait reaches zero and ctx.Err() when
// cancelled early. Reaching zero does not resubmit anything; callers decide
// what happens next, typically a fresh Check.
func (c *Coordinator) Countdown(ctx context.Context, wait time.Duration, onTick func(remaining time.Duration)) error {
	remaining := wait
	if remaining <= 0 {
		if onTick != nil {
			onTick(0)
		}

		return nil
	}

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint: wrapcheck
		case <-ticker.C:
			remaining -= c.tick
			if remaining < 0 {
				remaining = 0
			}
			if onTick != nil {
				onTick(remaining)
			}
			if remaining == 0 {
				return nil
			}
		}
	}
}
