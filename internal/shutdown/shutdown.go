package shutdown

import (
	"context"
	"os"
	"os/signal"
	"time"

	"jobcrawl-engine/internal/logging"
)

type Stoppable interface {
	Shutdown(ctx context.Context) error
}

// Graceful blocks until one of signals arrives or ctx ends, then gives
// every s up to timeout to stop, in order.
func Graceful(ctx context.Context, signals []os.Signal, timeout time.Duration, log *logging.Logger, s ...Stoppable) {
	sigCtx, stop := signal.NotifyContext(ctx, signals...)
	defer stop()

	<-sigCtx.Done()
	log.Info("shutdown signal received")

	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, st := range s {
		if err := st.Shutdown(sctx); err != nil {
			log.Warn("graceful shutdown completed with error", "err", err)
		}
	}
	log.Info("graceful shutdown completed")
}

// Func adapts a plain function to Stoppable.
type Func func(ctx context.Context) error

func (f Func) Shutdown(ctx context.Context) error { return f(ctx) }
