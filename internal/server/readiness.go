package server

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sentinelauth/internal/logging"
	"github.com/sethvargo/go-retry"
)

// readinessBackoff bounds how long startup waits for a dependency.
var readinessBackoff = func() retry.Backoff {
	return retry.WithMaxRetries(6, retry.WithCappedDuration(5*time.Second, retry.NewExponential(250*time.Millisecond)))
}

// waitReady pings a dependency until it answers or the backoff runs out.
func waitReady(ctx context.Context, logger logging.Logger, name string, ping func(context.Context) error) error {
	attempt := 0
	err := retry.Do(ctx, readinessBackoff(), func(ctx context.Context) error {
		attempt++
		if err := ping(ctx); err != nil {
			logger.Warn(ctx, "dependency not ready", "dependency", name, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s not ready: %w", name, err)
	}
	return nil
}
