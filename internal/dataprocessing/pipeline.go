package dataprocessing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"permitpulse/internal/config"
	apperrors "permitpulse/internal/errors"
	"permitpulse/internal/infrastructure"
	"permitpulse/pkg/contracts/domain"
)

// Pipeline orchestrates one full analysis run: parse, clean, aggregate,
// summarize. It owns the run ID and the per-stage telemetry. It writes no
// artifacts itself; the caller exports from the RunResult only after Run
// returns without error, so a failed run leaves nothing on disk.
type Pipeline struct {
	parser     *Parser
	cleaner    *Cleaner
	aggregator *Aggregator
	summarizer *Summarizer

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// Options carries the stage parameters the pipeline needs.
type Options struct {
	DateLayouts        []string
	RecencyWindowYears int
	OutlierQuantile    float64
	Sequential         bool
}

// OptionsFromConfig derives pipeline options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DateLayouts:        cfg.Pipeline.DateLayouts,
		RecencyWindowYears: cfg.Pipeline.RecencyWindowYears,
		OutlierQuantile:    cfg.Pipeline.OutlierQuantile,
		Sequential:         cfg.Pipeline.Sequential,
	}
}

// NewPipeline wires the four stages. Tracer and metrics may be nil when
// telemetry is disabled; spans then fall back to the global provider and
// metric recording becomes a no-op.
func NewPipeline(opts Options, logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.PipelineMetrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		parser:     NewParser(opts.DateLayouts, infrastructure.WithComponent(logger, "parser")),
		cleaner:    NewCleaner(opts.RecencyWindowYears, infrastructure.WithComponent(logger, "cleaner")),
		aggregator: NewAggregator(opts.OutlierQuantile, !opts.Sequential, infrastructure.WithComponent(logger, "aggregator")),
		summarizer: NewSummarizer(infrastructure.WithComponent(logger, "summarizer")),
		logger:     infrastructure.WithComponent(logger, "pipeline"),
		tracer:     tracer,
		metrics:    metrics,
	}
}

// Run executes one analysis over the given input file. The reference time
// anchors the recency window; passing a fixed instant makes the run
// reproducible. Stages run in strict order and the first failure aborts
// the run with the stage recorded on the error.
func (p *Pipeline) Run(ctx context.Context, inputPath string, now time.Time) (*domain.RunResult, error) {
	runID := infrastructure.GenerateRunID()
	ctx = infrastructure.WithRunID(ctx, runID)
	started := time.Now()

	infrastructure.RecordActiveRunChange(ctx, p.metrics, 1)
	defer infrastructure.RecordActiveRunChange(ctx, p.metrics, -1)

	p.logger.InfoContext(ctx, "pipeline run starting",
		slog.String("input_path", inputPath),
		slog.Time("reference_time", now))

	result := &domain.RunResult{
		RunID:         runID,
		InputPath:     inputPath,
		ReferenceTime: now,
		StartedAt:     started,
	}

	records, parseStats, err := p.runParse(ctx, runID, inputPath)
	if err != nil {
		return nil, p.fail(ctx, runID, "parse", started, err)
	}
	result.ParseStats = parseStats

	clean, cleanStats := p.runClean(ctx, runID, records, now)
	result.CleanStats = cleanStats
	result.CleanPermits = clean

	aggregates, err := p.runAggregate(ctx, runID, clean)
	if err != nil {
		return nil, p.fail(ctx, runID, "aggregate", started, err)
	}
	result.Aggregates = *aggregates

	summary, err := p.runSummarize(ctx, runID, clean)
	if err != nil {
		return nil, p.fail(ctx, runID, "summarize", started, err)
	}
	result.Summary = *summary

	result.Duration = time.Since(started)
	infrastructure.RecordRunMetrics(ctx, p.metrics, runID, result.Duration, true, nil)

	p.logger.InfoContext(ctx, "pipeline run complete",
		slog.Int("rows_parsed", result.ParseStats.Rows),
		slog.Int("clean_records", result.CleanStats.CleanRecords),
		slog.Int("outliers", len(result.Aggregates.CostOutliers.Records)),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// runParse executes the parse stage under its span and records its metrics.
func (p *Pipeline) runParse(ctx context.Context, runID, inputPath string) ([]domain.PermitRecord, domain.ParseStats, error) {
	ctx, span := infrastructure.StartStageSpan(ctx, p.tracer, "parse")
	defer span.End()
	stageStart := time.Now()

	records, stats, err := p.parser.ParseFile(ctx, inputPath)
	infrastructure.RecordStageMetrics(ctx, p.metrics, runID, "parse", time.Since(stageStart), err == nil)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, stats, err
	}

	if p.metrics != nil {
		runAttr := attribute.String("run.id", runID)
		p.metrics.RowsParsedTotal.Add(ctx, int64(stats.Rows), metric.WithAttributes(runAttr))
		p.metrics.FieldsDegradedTotal.Add(ctx, int64(stats.DegradedDates),
			metric.WithAttributes(runAttr, attribute.String("field", "applied_date")))
		p.metrics.FieldsDegradedTotal.Add(ctx, int64(stats.DegradedCosts),
			metric.WithAttributes(runAttr, attribute.String("field", "cost")))
		p.metrics.FieldsDegradedTotal.Add(ctx, int64(stats.DegradedCoordinates),
			metric.WithAttributes(runAttr, attribute.String("field", "coordinates")))
	}
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"rows":                 stats.Rows,
		"degraded_dates":       stats.DegradedDates,
		"degraded_costs":       stats.DegradedCosts,
		"degraded_coordinates": stats.DegradedCoordinates,
	})

	return records, stats, nil
}

// runClean executes the clean stage under its span and records its metrics.
func (p *Pipeline) runClean(ctx context.Context, runID string, records []domain.PermitRecord, now time.Time) ([]domain.CleanPermit, domain.CleanStats) {
	ctx, span := infrastructure.StartStageSpan(ctx, p.tracer, "clean")
	defer span.End()
	stageStart := time.Now()

	clean, stats := p.cleaner.Clean(ctx, records, now)
	infrastructure.RecordStageMetrics(ctx, p.metrics, runID, "clean", time.Since(stageStart), true)

	if p.metrics != nil {
		runAttr := attribute.String("run.id", runID)
		p.metrics.RowsDroppedTotal.Add(ctx, int64(stats.DroppedMissingCoordinates),
			metric.WithAttributes(runAttr, attribute.String("rule", "missing_coordinates")))
		p.metrics.RowsDroppedTotal.Add(ctx, int64(stats.DroppedOutsideWindow),
			metric.WithAttributes(runAttr, attribute.String("rule", "outside_window")))
		p.metrics.CleanRecordsTotal.Add(ctx, int64(stats.CleanRecords), metric.WithAttributes(runAttr))
	}
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"input_records":               stats.InputRecords,
		"dropped_missing_coordinates": stats.DroppedMissingCoordinates,
		"dropped_outside_window":      stats.DroppedOutsideWindow,
		"clean_records":               stats.CleanRecords,
	})

	return clean, stats
}

// runAggregate executes the aggregate stage under its span.
func (p *Pipeline) runAggregate(ctx context.Context, runID string, clean []domain.CleanPermit) (*domain.AggregateSet, error) {
	ctx, span := infrastructure.StartStageSpan(ctx, p.tracer, "aggregate")
	defer span.End()
	stageStart := time.Now()

	set, err := p.aggregator.Aggregate(ctx, clean)
	infrastructure.RecordStageMetrics(ctx, p.metrics, runID, "aggregate", time.Since(stageStart), err == nil)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.OutliersDetectedTotal.Add(ctx, int64(len(set.CostOutliers.Records)),
			metric.WithAttributes(attribute.String("run.id", runID)))
	}
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"months":       len(set.MonthlyCounts),
		"permit_types": len(set.TypeDistribution),
		"outliers":     len(set.CostOutliers.Records),
	})

	return set, nil
}

// runSummarize executes the summarize stage under its span.
func (p *Pipeline) runSummarize(ctx context.Context, runID string, clean []domain.CleanPermit) (*domain.SummaryMetrics, error) {
	ctx, span := infrastructure.StartStageSpan(ctx, p.tracer, "summarize")
	defer span.End()
	stageStart := time.Now()

	summary, err := p.summarizer.GenerateFromRecords(ctx, clean)
	infrastructure.RecordStageMetrics(ctx, p.metrics, runID, "summarize", time.Since(stageStart), err == nil)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"total_permits":    summary.TotalPermits,
		"most_common_type": summary.MostCommonType,
	})

	return summary, nil
}

// fail records the failed run and returns the error with the failing stage
// attached to its context, so callers can report the stage without
// unwrapping.
func (p *Pipeline) fail(ctx context.Context, runID, stage string, started time.Time, err error) error {
	duration := time.Since(started)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		appErr.WithContext("stage", stage)
	}

	infrastructure.RecordRunMetrics(ctx, p.metrics, runID, duration, false, err)
	p.logger.ErrorContext(ctx, "pipeline run failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
		slog.Duration("duration", duration))

	return err
}
