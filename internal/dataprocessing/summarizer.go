package dataprocessing

import (
	"context"
	"log/slog"

	apperrors "permitpulse/internal/errors"
	"permitpulse/pkg/contracts/domain"
)

// Summarizer computes the scalar summary metrics over a clean permit set.
// It is the single source of truth for the summary shape: the JSON
// artifact, the Markdown report and the summary log line all render what it
// produces.
type Summarizer struct {
	logger *slog.Logger
}

// NewSummarizer creates a summarizer.
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{logger: logger}
}

// GenerateFromRecords computes summary metrics from the clean set.
//
// TotalPermits counts every clean permit; the value metrics cover only the
// permits whose cost is present. An empty clean set is an EMPTY_DATASET
// error, and so is a set where every cost is missing; the latter carries
// total_permits in its context so diagnostics still reflect the row count.
func (s *Summarizer) GenerateFromRecords(ctx context.Context, clean []domain.CleanPermit) (*domain.SummaryMetrics, error) {
	s.logger.InfoContext(ctx, "generating summary metrics",
		slog.Int("record_count", len(clean)))

	if len(clean) == 0 {
		return nil, apperrors.NewEmptyDatasetError("no clean permit records to summarize")
	}

	metrics := &domain.SummaryMetrics{
		TotalPermits: len(clean),
	}

	costs := make([]float64, 0, len(clean))
	typeCounts := make(map[string]int)
	typeOrder := make([]string, 0)

	for i := range clean {
		permit := &clean[i]

		if permit.EstProjectCost != nil {
			costs = append(costs, *permit.EstProjectCost)
		}

		if _, seen := typeCounts[permit.PermitTypeMapped]; !seen {
			typeOrder = append(typeOrder, permit.PermitTypeMapped)
		}
		typeCounts[permit.PermitTypeMapped]++

		if i == 0 || permit.AppliedDate.Before(metrics.DateRangeStart) {
			metrics.DateRangeStart = permit.AppliedDate
		}
		if i == 0 || permit.AppliedDate.After(metrics.DateRangeEnd) {
			metrics.DateRangeEnd = permit.AppliedDate
		}
	}

	if len(costs) == 0 {
		err := apperrors.NewEmptyDatasetError("no numeric project costs in clean set")
		return nil, err.WithContext("total_permits", len(clean))
	}

	var total float64
	for _, cost := range costs {
		total += cost
	}
	metrics.TotalValue = total
	metrics.AvgValue = total / float64(len(costs))
	metrics.MedianValue = calculateMedian(costs)

	// Strict > keeps the first-encountered category on ties.
	mostCommonCount := 0
	for _, permitType := range typeOrder {
		if typeCounts[permitType] > mostCommonCount {
			mostCommonCount = typeCounts[permitType]
			metrics.MostCommonType = permitType
		}
	}

	s.logger.InfoContext(ctx, "summary metrics generated",
		slog.Int("total_permits", metrics.TotalPermits),
		slog.Float64("total_value", metrics.TotalValue),
		slog.String("most_common_type", metrics.MostCommonType),
		slog.Time("date_range_start", metrics.DateRangeStart),
		slog.Time("date_range_end", metrics.DateRangeEnd))

	return metrics, nil
}
