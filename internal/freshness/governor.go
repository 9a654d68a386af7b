// Package freshness decides when a run has stopped finding new postings.
package freshness

// Decision is the governor's verdict after one slice.
type Decision struct {
	Ratio float64 // stale / processed over the window, 0 when nothing was processed
	Stop  bool
}

type tally struct{ processed, stale int }

// Governor tracks the stale ratio of a run. With window 0 the ratio
// covers every slice seen so far, otherwise only the trailing window
// slices. Not safe for concurrent use; each run owns one.
type Governor struct {
	thresh float64
	window int

	ring     []tally
	sum      tally
	nonEmpty bool
}

// New returns a governor that stops once the ratio reaches thresh.
// thresh <= 0 never stops.
func New(thresh float64, window int) *Governor {
	if window < 0 {
		window = 0
	}
	return &Governor{thresh: thresh, window: window}
}

// Observe records one slice. stale is the count of duplicate or
// irrelevant records in it.
func (g *Governor) Observe(processed, stale int) Decision {
	if processed < 0 {
		processed = 0
	}
	if stale < 0 {
		stale = 0
	}
	if stale > processed {
		stale = processed
	}

	t := tally{processed, stale}
	g.sum.processed += t.processed
	g.sum.stale += t.stale
	if g.window > 0 {
		g.ring = append(g.ring, t)
		if len(g.ring) > g.window {
			old := g.ring[0]
			g.ring = g.ring[1:]
			g.sum.processed -= old.processed
			g.sum.stale -= old.stale
		}
	}

	if processed == 0 {
		return Decision{}
	}
	g.nonEmpty = true

	d := Decision{Ratio: g.Ratio()}
	d.Stop = g.thresh > 0 && g.nonEmpty && d.Ratio >= g.thresh
	return d
}

// Ratio is the current windowed stale ratio.
func (g *Governor) Ratio() float64 {
	if g.sum.processed == 0 {
		return 0
	}
	return float64(g.sum.stale) / float64(g.sum.processed)
}
