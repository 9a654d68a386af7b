package crawl

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff is min(Base*2^attempt + jitter, Max), jitter uniform in [0, Base).
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	// Jitter overrides the random jitter; tests pin it to zero.
	Jitter func(base time.Duration) time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{Base: time.Second, Max: time.Minute}
}

func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	ceil := b.Max
	if ceil <= 0 {
		ceil = time.Minute
	}

	d := base
	for i := 0; i < attempt && d < ceil; i++ {
		d *= 2
	}

	var j time.Duration
	if b.Jitter != nil {
		j = b.Jitter(base)
	} else {
		j = time.Duration(rand.Int64N(int64(base)))
	}
	d += j

	if d > ceil {
		d = ceil
	}
	return d
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
