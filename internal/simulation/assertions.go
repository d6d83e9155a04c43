package simulation

import (
	"math"
	"testing"
)

// AssertWithinBounds asserts that every health value of every run lies in
// [lo, hi]. NaN is never in bounds.
func AssertWithinBounds(t *testing.T, runs []Run, lo, hi float64) {
	t.Helper()
	for i, r := range runs {
		for k, h := range r.Health {
			if math.IsNaN(h) || h < lo || h > hi {
				t.Errorf("AssertWithinBounds: run %d index %d: health %.6f not in [%.2f, %.2f]", i, k, h, lo, hi)
				return
			}
		}
	}
}

// AssertTrajectoryLength asserts that every run has want health values and a
// matching time trajectory.
func AssertTrajectoryLength(t *testing.T, runs []Run, want int) {
	t.Helper()
	for i, r := range runs {
		if len(r.Health) != want {
			t.Errorf("AssertTrajectoryLength: run %d: health length %d, want %d", i, len(r.Health), want)
		}
		if len(r.Time) != want {
			t.Errorf("AssertTrajectoryLength: run %d: time length %d, want %d", i, len(r.Time), want)
		}
	}
}

// AssertPercentileOrdering asserts p10 <= average <= p90 at every index.
func AssertPercentileOrdering(t *testing.T, stats Stats) {
	t.Helper()
	for k := range stats.AverageTrajectory {
		p10, avg, p90 := stats.P10Trajectory[k], stats.AverageTrajectory[k], stats.P90Trajectory[k]
		if p10 > avg || avg > p90 {
			t.Errorf("AssertPercentileOrdering: index %d: p10=%.3f avg=%.3f p90=%.3f", k, p10, avg, p90)
			return
		}
	}
}

// AssertTimeMonotonic asserts that cumulative time never decreases and that
// each change costs at least minCost.
func AssertTimeMonotonic(t *testing.T, runs []Run, minCost float64) {
	t.Helper()
	for i, r := range runs {
		for k := 1; k < len(r.Time); k++ {
			if r.Time[k]-r.Time[k-1] < minCost-1e-12 {
				t.Errorf("AssertTimeMonotonic: run %d index %d: step cost %.6f < %.2f", i, k, r.Time[k]-r.Time[k-1], minCost)
				return
			}
		}
		if n := len(r.Time); n > 0 && r.Time[n-1] != r.TotalTime {
			t.Errorf("AssertTimeMonotonic: run %d: TotalTime %.6f != last time %.6f", i, r.TotalTime, r.Time[n-1])
		}
	}
}
