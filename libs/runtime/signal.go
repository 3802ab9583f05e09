package runtime

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"
)

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Stopper releases one component before the deadline in ctx.
type Stopper func(ctx context.Context) error

// Shutdown runs stoppers in order under a single timeout. Every stopper runs even when an earlier
// one fails; errors are joined.
func Shutdown(timeout time.Duration, stoppers ...Stopper) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, stop := range stoppers {
		if stop == nil {
			continue
		}
		if err := stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
