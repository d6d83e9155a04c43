package simulation

import (
	"slices"

	"github.com/nvandessel/phsim/internal/numeric"
)

// BaselineTimePerChange is the time one change takes in a pristine system.
const BaselineTimePerChange = 1.0

// Stats summarizes many runs. Every value is rounded to
// numeric.DisplayPrecision decimals.
type Stats struct {
	AverageFinal      float64   `json:"averageFinal"`
	AverageMin        float64   `json:"averageMin"`
	FailureRate       float64   `json:"failureRate"`
	AverageTrajectory []float64 `json:"averageTrajectory"`
	P10Trajectory     []float64 `json:"p10Trajectory"`
	P90Trajectory     []float64 `json:"p90Trajectory"`

	AverageTotalTime     float64 `json:"averageTotalTime"`
	AverageTimePerChange float64 `json:"averageTimePerChange"`
	BaselineTime         float64 `json:"baselineTime"`
	TimeOverheadPercent  float64 `json:"timeOverheadPercent"`
}

// Summarize reduces runs to Stats. runs must not be empty.
//
// The first run fixes the trajectory length; a shorter run is padded with its
// last value. A run fails when its minimum health is <= failureThreshold.
// Percentile bands are computed independently at every index.
func Summarize(runs []Run, failureThreshold float64) Stats {
	m := float64(len(runs))
	length := len(runs[0].Health)

	finals := make([]float64, len(runs))
	mins := make([]float64, len(runs))
	failures := 0
	totalTime := 0.0
	for i, r := range runs {
		finals[i] = r.Final()
		mins[i] = numeric.Minimum(r.Health)
		if mins[i] <= failureThreshold {
			failures++
		}
		totalTime += r.TotalTime
	}

	avg := make([]float64, length)
	p10 := make([]float64, length)
	p90 := make([]float64, length)
	column := make([]float64, len(runs))
	for k := 0; k < length; k++ {
		for i, r := range runs {
			column[i] = valueAt(r.Health, k)
		}
		avg[k] = numeric.Mean(column)
		slices.Sort(column)
		p10[k] = numeric.PercentileSorted(column, 10)
		p90[k] = numeric.PercentileSorted(column, 90)
	}

	nChanges := length - 1
	avgTotal := totalTime / m
	baseline := float64(nChanges) * BaselineTimePerChange
	var perChange, overhead float64
	if nChanges > 0 {
		perChange = avgTotal / float64(nChanges)
		overhead = (avgTotal - baseline) / baseline * 100
	}

	prec := numeric.DisplayPrecision
	return Stats{
		AverageFinal:         numeric.Round(numeric.Mean(finals), prec),
		AverageMin:           numeric.Round(numeric.Mean(mins), prec),
		FailureRate:          numeric.Round(float64(failures)/m, prec),
		AverageTrajectory:    numeric.RoundAll(avg, prec),
		P10Trajectory:        numeric.RoundAll(p10, prec),
		P90Trajectory:        numeric.RoundAll(p90, prec),
		AverageTotalTime:     numeric.Round(avgTotal, prec),
		AverageTimePerChange: numeric.Round(perChange, prec),
		BaselineTime:         baseline,
		TimeOverheadPercent:  numeric.Round(overhead, prec),
	}
}

// valueAt returns trajectory[k], or the last value when the trajectory is
// shorter than k+1.
func valueAt(trajectory []float64, k int) float64 {
	if k < len(trajectory) {
		return trajectory[k]
	}
	return trajectory[len(trajectory)-1]
}

// SummarizeRuns is Summarize with the default threshold applied when
// failureThreshold is zero.
func SummarizeRuns(runs []Run, failureThreshold float64) Stats {
	if failureThreshold == 0 {
		failureThreshold = DefaultFailureThreshold
	}
	return Summarize(runs, failureThreshold)
}

// SummarizeTrajectories summarizes bare health trajectories that carry no
// time information.
func SummarizeTrajectories(trajectories [][]float64, failureThreshold float64) Stats {
	runs := make([]Run, len(trajectories))
	for i, h := range trajectories {
		runs[i] = Run{Health: h, Time: make([]float64, len(h))}
	}
	return SummarizeRuns(runs, failureThreshold)
}
