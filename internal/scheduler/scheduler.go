package scheduler

import (
	"context"
	"time"

	"jobcrawl-engine/internal/logging"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on each tick until ctx is done.
// Runs never overlap: a tick that fires while task is busy is dropped.
func Every(ctx context.Context, interval time.Duration, name string, log *logging.Logger, task Task) {
	if log == nil {
		log = logging.Nop()
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	run := func() {
		if err := task(ctx); err != nil {
			log.Error("["+name+"] error", "err", err)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
