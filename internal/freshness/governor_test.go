package freshness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type step struct {
	processed, stale int
	ratio            float64
	stop             bool
}

func TestGovernor(t *testing.T) {
	tests := []struct {
		name   string
		thresh float64
		window int
		steps  []step
	}{
		{
			name: "trailing slice stops on the stale one", thresh: 0.8, window: 1,
			steps: []step{{50, 5, 0.1, false}, {50, 45, 0.9, true}},
		},
		{
			name: "whole run dilutes the stale slice", thresh: 0.8, window: 0,
			steps: []step{{50, 5, 0.1, false}, {50, 45, 0.5, false}},
		},
		{
			name: "empty slice is ratio zero and keeps going", thresh: 0.8, window: 1,
			steps: []step{{0, 0, 0, false}, {10, 9, 0.9, true}},
		},
		{
			name: "empty slice does not stop even after stale history", thresh: 0.5, window: 0,
			steps: []step{{10, 10, 1, true}, {0, 0, 0, false}},
		},
		{
			name: "zero threshold never stops", thresh: 0, window: 1,
			steps: []step{{10, 10, 1, false}, {10, 10, 1, false}},
		},
		{
			name: "window of two", thresh: 0.75, window: 2,
			steps: []step{{10, 0, 0, false}, {10, 10, 0.5, false}, {10, 10, 1, true}},
		},
		{
			name: "ratio equal to threshold stops", thresh: 0.5, window: 0,
			steps: []step{{4, 2, 0.5, true}},
		},
		{
			name: "stale is clamped to processed", thresh: 0.9, window: 1,
			steps: []step{{3, 7, 1, true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.thresh, tt.window)
			for i, s := range tt.steps {
				d := g.Observe(s.processed, s.stale)
				assert.InDelta(t, s.ratio, d.Ratio, 1e-9, "step %d", i)
				assert.Equal(t, s.stop, d.Stop, "step %d", i)
			}
		})
	}
}

func TestGovernorNegativeWindowMeansWholeRun(t *testing.T) {
	g := New(0.8, -3)
	g.Observe(10, 0)
	d := g.Observe(10, 10)
	assert.InDelta(t, 0.5, d.Ratio, 1e-9)
	assert.False(t, d.Stop)
}
