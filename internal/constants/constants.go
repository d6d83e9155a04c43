// Package constants provides named defaults shared across phsim packages.
package constants

// Batch defaults.
const (
	// DefaultRuns is the number of Monte Carlo runs per batch.
	DefaultRuns = 1000

	// MaxRuns caps a single batch requested over the network.
	MaxRuns = 100000

	// MaxChanges caps the trajectory length requested over the network.
	MaxChanges = 100000

	// MaxComparisonAgents caps the number of lines on one comparison.
	MaxComparisonAgents = 16

	// DefaultChartRuns is the batch size used for chart datasets.
	DefaultChartRuns = 800

	// PreviewPoints is how many leading values of the average trajectory the
	// text report prints.
	PreviewPoints = 10
)

// Health defaults.
const (
	// DefaultStartHealth is the health of a fresh codebase.
	DefaultStartHealth = 8.0

	// DefaultFailureThreshold is the health at or below which a run fails.
	DefaultFailureThreshold = 3.0
)

// Paths and file names.
const (
	// DataDirName is the per-project and per-user data directory.
	DataDirName = ".phsim"

	// ConfigFileName lives in the global data directory.
	ConfigFileName = "config.yaml"

	// HistoryDBName is the SQLite result history.
	HistoryDBName = "history.db"
)

// Archive rotation.
const (
	// MaxArchiveRotation is the default maximum number of archive files to keep.
	MaxArchiveRotation = 10
)
