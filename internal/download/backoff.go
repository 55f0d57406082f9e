package download

import (
	"context"
	"math"
	"time"

	"github.com/spachava753/mcdl/internal/models"
)

// backoff returns the wait after the given failed attempt (1-based):
// InitialDelayMs * Multiplier^(attempt-1), capped at MaxDelayMs.
func backoff(cfg models.RetryConfig, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := cfg.Multiplier
	if mult < 1 {
		mult = 1
	}
	ms := float64(cfg.InitialDelayMs) * math.Pow(mult, float64(attempt-1))
	if cfg.MaxDelayMs > 0 && ms > float64(cfg.MaxDelayMs) {
		ms = float64(cfg.MaxDelayMs)
	}
	return time.Duration(ms) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
