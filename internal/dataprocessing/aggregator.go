package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"permitpulse/internal/config"
	"permitpulse/pkg/contracts/domain"
)

// Aggregator computes the derived views over a clean permit set: the
// monthly time series, the category distribution, per-category cost
// statistics and the cost outlier subset. The four derivations are
// mutually independent and may run concurrently against the same immutable
// slice; results are identical regardless of execution order.
type Aggregator struct {
	logger   *slog.Logger
	quantile float64
	parallel bool
}

// NewAggregator creates an aggregator. The quantile selects the cost
// outlier threshold; values outside (0, 1) fall back to the default.
func NewAggregator(quantile float64, parallel bool, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if quantile <= 0 || quantile >= 1 {
		quantile = config.DefaultOutlierQuantile
	}
	return &Aggregator{logger: logger, quantile: quantile, parallel: parallel}
}

// Aggregate computes all four derived views. An empty clean set yields
// empty collections, not an error.
func (a *Aggregator) Aggregate(ctx context.Context, clean []domain.CleanPermit) (*domain.AggregateSet, error) {
	set := &domain.AggregateSet{}

	if a.parallel {
		// Each goroutine writes a distinct field of the same struct.
		g, _ := errgroup.WithContext(ctx)
		g.Go(func() error {
			set.MonthlyCounts = a.MonthlyCounts(clean)
			return nil
		})
		g.Go(func() error {
			set.TypeDistribution = a.TypeDistribution(clean)
			return nil
		})
		g.Go(func() error {
			set.CostByType = a.CostByType(clean)
			return nil
		})
		g.Go(func() error {
			set.CostOutliers = a.CostOutliers(clean)
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		set.MonthlyCounts = a.MonthlyCounts(clean)
		set.TypeDistribution = a.TypeDistribution(clean)
		set.CostByType = a.CostByType(clean)
		set.CostOutliers = a.CostOutliers(clean)
	}

	a.logger.InfoContext(ctx, "aggregation complete",
		slog.Int("clean_records", len(clean)),
		slog.Int("months", len(set.MonthlyCounts)),
		slog.Int("permit_types", len(set.TypeDistribution)),
		slog.Int("outliers", len(set.CostOutliers.Records)),
		slog.Bool("parallel", a.parallel))

	return set, nil
}

// MonthlyCounts buckets the clean set by calendar month of the application
// date. Each bucket is labeled with the last day of its month at midnight
// UTC; months with no permits are absent rather than zero-filled. Ordered
// ascending by month.
func (a *Aggregator) MonthlyCounts(clean []domain.CleanPermit) []domain.MonthlyCount {
	buckets := make(map[time.Time]int)
	for i := range clean {
		buckets[monthEnd(clean[i].AppliedDate)]++
	}

	counts := make([]domain.MonthlyCount, 0, len(buckets))
	for month, count := range buckets {
		counts = append(counts, domain.MonthlyCount{Month: month, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Month.Before(counts[j].Month)
	})

	return counts
}

// TypeDistribution counts permits per category, ordered by count
// descending with ties kept in first-encountered order.
func (a *Aggregator) TypeDistribution(clean []domain.CleanPermit) []domain.TypeCount {
	counts := make(map[string]int)
	order := make([]string, 0)
	for i := range clean {
		permitType := clean[i].PermitTypeMapped
		if _, seen := counts[permitType]; !seen {
			order = append(order, permitType)
		}
		counts[permitType]++
	}

	dist := make([]domain.TypeCount, 0, len(order))
	for _, permitType := range order {
		dist = append(dist, domain.TypeCount{PermitType: permitType, Count: counts[permitType]})
	}
	sort.SliceStable(dist, func(i, j int) bool {
		return dist[i].Count > dist[j].Count
	})

	return dist
}

// CostByType computes per-category cost statistics. Count tallies every
// permit in the category; mean and median cover only the permits whose
// cost is present. A category with no priced permits reports 0 for both
// but keeps its row count. Ordered by mean descending, ties kept in
// first-encountered order.
func (a *Aggregator) CostByType(clean []domain.CleanPermit) []domain.TypeCostStats {
	type group struct {
		count int
		costs []float64
	}
	groups := make(map[string]*group)
	order := make([]string, 0)
	for i := range clean {
		permitType := clean[i].PermitTypeMapped
		g, seen := groups[permitType]
		if !seen {
			g = &group{}
			groups[permitType] = g
			order = append(order, permitType)
		}
		g.count++
		if clean[i].EstProjectCost != nil {
			g.costs = append(g.costs, *clean[i].EstProjectCost)
		}
	}

	stats := make([]domain.TypeCostStats, 0, len(order))
	for _, permitType := range order {
		g := groups[permitType]
		entry := domain.TypeCostStats{PermitType: permitType, Count: g.count}
		if len(g.costs) > 0 {
			var sum float64
			for _, cost := range g.costs {
				sum += cost
			}
			entry.MeanCost = sum / float64(len(g.costs))
			entry.MedianCost = calculateMedian(g.costs)
		}
		stats = append(stats, entry)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].MeanCost > stats[j].MeanCost
	})

	return stats
}

// CostOutliers selects the permits whose cost strictly exceeds the
// configured percentile of all present costs, in clean-set order. Permits
// without a cost are never outliers; a clean set with no priced permits
// yields a nil threshold and an empty record set.
func (a *Aggregator) CostOutliers(clean []domain.CleanPermit) domain.Outliers {
	costs := make([]float64, 0, len(clean))
	for i := range clean {
		if clean[i].EstProjectCost != nil {
			costs = append(costs, *clean[i].EstProjectCost)
		}
	}
	if len(costs) == 0 {
		return domain.Outliers{Records: []domain.CleanPermit{}}
	}

	threshold := percentileValue(costs, a.quantile)

	records := make([]domain.CleanPermit, 0)
	for i := range clean {
		if clean[i].EstProjectCost != nil && *clean[i].EstProjectCost > threshold {
			records = append(records, clean[i])
		}
	}

	return domain.Outliers{Threshold: &threshold, Records: records}
}

// monthEnd returns the last day of t's month at midnight UTC.
func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
}

// percentileValue computes the given percentile of values by linear
// interpolation between order statistics. The input slice is not modified.
func percentileValue(values []float64, percentile float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if percentile <= 0 {
		return sorted[0]
	}
	if percentile >= 1 {
		return sorted[n-1]
	}

	index := percentile * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	// Linear interpolation
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// calculateMedian computes the median of values. The input slice is not
// modified.
func calculateMedian(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	// Create sorted copy
	sortedValues := make([]float64, len(values))
	copy(sortedValues, values)
	sort.Float64s(sortedValues)

	n := len(sortedValues)
	if n%2 == 0 {
		// Even number of values
		return (sortedValues[n/2-1] + sortedValues[n/2]) / 2
	}
	// Odd number of values
	return sortedValues[n/2]
}
