package indexer

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"poolwatch/internal/chain"
)

// RetryConfig bounds the retry loop around each remote call.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Cooldown replaces the backoff delay after a rate-limit response.
	Cooldown    time.Duration
	CallTimeout time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Cooldown <= 0 {
		c.Cooldown = c.MaxDelay
	}
	return c
}

// withRetry runs fn with exponential backoff and jitter until it succeeds,
// exhausts its attempts, or fails in a way retrying cannot help. Rate-limit
// failures wait out the configured cooldown instead of the backoff delay.
func withRetry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, op string, fn func(context.Context) error) error {
	cfg = cfg.withDefaults()

	delay := cfg.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if cfg.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, cfg.CallTimeout)
		}
		err := fn(callCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !chain.IsTransient(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if chain.IsRateLimited(err) {
			wait = cfg.Cooldown
		} else {
			delay = backoffStep(delay, cfg.MaxDelay)
		}

		logger.Warn("remote call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s: %d attempts exhausted: %w", op, cfg.MaxAttempts, lastErr)
}

func backoffStep(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		next = max
	}
	// Up to 25% jitter keeps concurrent pipelines from retrying in lockstep.
	return next + time.Duration(rand.Int63n(int64(next)/4+1))
}
