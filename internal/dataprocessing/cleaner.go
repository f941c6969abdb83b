package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"permitpulse/internal/config"
	"permitpulse/pkg/contracts/domain"
)

// Cleaner applies the validity rules that turn parsed permit records into
// the clean set.
type Cleaner struct {
	logger      *slog.Logger
	windowYears int
}

// NewCleaner creates a cleaner with the given recency window in calendar
// years. Non-positive windows fall back to the default.
func NewCleaner(windowYears int, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	if windowYears <= 0 {
		windowYears = config.DefaultRecencyWindowYears
	}
	return &Cleaner{logger: logger, windowYears: windowYears}
}

// Clean filters records through the validity rules and returns the clean
// set with per-rule drop counts. The rules run in order and each count is
// measured against the records still standing when its rule runs:
//
//  1. both coordinates must be present
//  2. the application date must be present and strictly after the cutoff
//     (now minus the recency window)
//
// The reference time is passed in, never read from the wall clock, so the
// same input and reference time always produce the same clean set.
func (c *Cleaner) Clean(ctx context.Context, records []domain.PermitRecord, now time.Time) ([]domain.CleanPermit, domain.CleanStats) {
	cutoff := now.AddDate(-c.windowYears, 0, 0)
	stats := domain.CleanStats{
		InputRecords: len(records),
		Cutoff:       cutoff,
	}

	clean := make([]domain.CleanPermit, 0, len(records))
	for i := range records {
		record := &records[i]

		if !record.HasCoordinates() {
			stats.DroppedMissingCoordinates++
			continue
		}

		if record.AppliedDate == nil || !record.AppliedDate.After(cutoff) {
			stats.DroppedOutsideWindow++
			continue
		}

		// Copy the cost so the clean set shares no memory with the input.
		var cost *float64
		if record.EstProjectCost != nil {
			v := *record.EstProjectCost
			cost = &v
		}

		clean = append(clean, domain.CleanPermit{
			AppliedDate:      *record.AppliedDate,
			EstProjectCost:   cost,
			Latitude:         *record.Latitude,
			Longitude:        *record.Longitude,
			PermitTypeMapped: record.PermitTypeMapped,
			OriginalAddress1: record.OriginalAddress1,
		})
	}
	stats.CleanRecords = len(clean)

	c.logger.InfoContext(ctx, "cleaned permit records",
		slog.Int("input_records", stats.InputRecords),
		slog.Int("dropped_missing_coordinates", stats.DroppedMissingCoordinates),
		slog.Int("dropped_outside_window", stats.DroppedOutsideWindow),
		slog.Int("clean_records", stats.CleanRecords),
		slog.Time("cutoff", cutoff))

	return clean, stats
}
