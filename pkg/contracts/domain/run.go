package domain

import (
	"time"
)

// ParseStats reports how the parser handled one input file. Degraded counts
// tally individual cells that could not be parsed and were absorbed as
// missing values; they never reduce Rows.
type ParseStats struct {
	// Rows is the number of data rows read. Every row yields exactly one
	// PermitRecord.
	Rows int `json:"rows"`

	// DegradedDates counts AppliedDate cells that failed to parse.
	DegradedDates int `json:"degraded_dates"`

	// DegradedCosts counts EstProjectCost cells that failed to parse.
	DegradedCosts int `json:"degraded_costs"`

	// DegradedCoordinates counts Latitude/Longitude cells that failed to
	// parse (each cell counted separately).
	DegradedCoordinates int `json:"degraded_coordinates"`
}

// CleanStats reports what the cleaner dropped and why. The two rules run in
// a fixed order and each drop count is measured against the records still
// standing when its rule runs, so
// DroppedMissingCoordinates + DroppedOutsideWindow == InputRecords − CleanRecords.
type CleanStats struct {
	// InputRecords is the number of parsed records handed to the cleaner.
	InputRecords int `json:"input_records"`

	// DroppedMissingCoordinates counts records removed for a missing
	// latitude or longitude (rule 1).
	DroppedMissingCoordinates int `json:"dropped_missing_coordinates"`

	// DroppedOutsideWindow counts records removed for a missing
	// application date or one at/before the cutoff (rule 2, applied to the
	// records that survived rule 1).
	DroppedOutsideWindow int `json:"dropped_outside_window"`

	// CleanRecords is the size of the resulting clean set.
	CleanRecords int `json:"clean_records"`

	// Cutoff is the oldest application date (exclusive) still admitted.
	Cutoff time.Time `json:"cutoff"`
}

// RunResult is the complete output of one pipeline run, handed to the
// exporter once every stage has succeeded. A failed run produces no
// RunResult and therefore no artifacts.
type RunResult struct {
	// RunID uniquely identifies the run across logs, traces and artifacts.
	RunID string `json:"run_id"`

	// InputPath is the dataset file the run consumed.
	InputPath string `json:"input_path"`

	// ReferenceTime is the wall-clock instant the recency window was
	// anchored to. Fixing it makes a run reproducible.
	ReferenceTime time.Time `json:"reference_time"`

	ParseStats ParseStats `json:"parse_stats"`
	CleanStats CleanStats `json:"clean_stats"`

	// CleanPermits is the full clean set, input to the density map.
	CleanPermits []CleanPermit `json:"-"`

	Aggregates AggregateSet   `json:"aggregates"`
	Summary    SummaryMetrics `json:"summary"`

	// StartedAt/Duration time the run end to end.
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}
