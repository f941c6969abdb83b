package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"permitpulse/internal/config"
	apperrors "permitpulse/internal/errors"
	"permitpulse/pkg/contracts/domain"
)

// Artifact describes one file written during an export.
type Artifact struct {
	Name  string
	Path  string
	Bytes int64
}

// ExportResult lists the artifacts one export produced, in write order.
type ExportResult struct {
	Artifacts []Artifact
}

// TotalBytes returns the combined size of all written artifacts.
func (r *ExportResult) TotalBytes() int64 {
	var total int64
	for _, a := range r.Artifacts {
		total += a.Bytes
	}
	return total
}

// ReportExporter renders a pipeline run into the report artifact set. It is
// only handed fully successful runs; a failed run never reaches it, so
// partial artifact sets can only come from a write error inside Export
// itself, which is reported as a storage error naming the artifact.
type ReportExporter struct {
	csvWriter *CSVWriter
	paths     *config.Paths
	title     string
	logger    *slog.Logger
}

// NewReportExporter creates a report exporter. The title heads the Markdown
// statistics report; empty falls back to the default.
func NewReportExporter(paths *config.Paths, title string, logger *slog.Logger) *ReportExporter {
	if logger == nil {
		logger = slog.Default()
	}
	if title == "" {
		title = config.DefaultReportTitle
	}
	return &ReportExporter{
		csvWriter: NewCSVWriter(paths),
		paths:     paths,
		title:     title,
		logger:    logger,
	}
}

// Export writes the full artifact set for one run into the reports
// directory and returns what was written. The first failed write aborts the
// export.
func (e *ReportExporter) Export(ctx context.Context, result *domain.RunResult) (*ExportResult, error) {
	e.logger.InfoContext(ctx, "exporting report artifacts",
		slog.String("run_id", result.RunID),
		slog.String("reports_dir", e.paths.ReportsDir))

	writes := []struct {
		name  string
		path  string
		write func(*domain.RunResult) error
	}{
		{config.ArtifactMonthlyPermits, e.paths.MonthlyPermitsCSV, e.writeMonthlyPermits},
		{config.ArtifactTypeDistribution, e.paths.TypeDistributionCSV, e.writeTypeDistribution},
		{config.ArtifactCostByType, e.paths.CostByTypeCSV, e.writeCostByType},
		{config.ArtifactCostOutliers, e.paths.CostOutliersCSV, e.writeCostOutliers},
		{config.ArtifactCleanPermits, e.paths.CleanPermitsCSV, e.writeCleanPermits},
		{config.ArtifactPermitMap, e.paths.PermitMapGeoJSON, e.writePermitMap},
		{config.ArtifactSummaryJSON, e.paths.SummaryJSON, e.writeSummaryJSON},
		{config.ArtifactStatisticsMD, e.paths.StatisticsMD, e.writeStatisticsMD},
	}

	export := &ExportResult{}
	for _, w := range writes {
		if err := w.write(result); err != nil {
			return nil, apperrors.NewStorageError("failed to write "+w.name, err)
		}

		info, err := os.Stat(w.path)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to stat "+w.name, err)
		}
		export.Artifacts = append(export.Artifacts, Artifact{
			Name:  w.name,
			Path:  w.path,
			Bytes: info.Size(),
		})

		e.logger.DebugContext(ctx, "artifact written",
			slog.String("artifact", w.name),
			slog.Int64("bytes", info.Size()))
	}

	e.logger.InfoContext(ctx, "export complete",
		slog.String("run_id", result.RunID),
		slog.Int("artifacts", len(export.Artifacts)),
		slog.Int64("total_bytes", export.TotalBytes()))

	return export, nil
}

// writeMonthlyPermits writes the monthly time-series counts, one row per
// month ascending.
func (e *ReportExporter) writeMonthlyPermits(result *domain.RunResult) error {
	records := make([][]string, 0, len(result.Aggregates.MonthlyCounts))
	for _, mc := range result.Aggregates.MonthlyCounts {
		records = append(records, []string{
			mc.Month.Format("2006-01-02"),
			formatInt(int64(mc.Count)),
		})
	}
	return e.csvWriter.WriteSimpleCSV(e.paths.MonthlyPermitsCSV,
		[]string{"Month", "PermitCount"}, records)
}

// writeTypeDistribution writes permit counts per category, most common
// first.
func (e *ReportExporter) writeTypeDistribution(result *domain.RunResult) error {
	records := make([][]string, 0, len(result.Aggregates.TypeDistribution))
	for _, tc := range result.Aggregates.TypeDistribution {
		records = append(records, []string{
			tc.PermitType,
			formatInt(int64(tc.Count)),
		})
	}
	return e.csvWriter.WriteSimpleCSV(e.paths.TypeDistributionCSV,
		[]string{"PermitType", "Count"}, records)
}

// writeCostByType writes per-category cost statistics ordered by mean cost
// descending.
func (e *ReportExporter) writeCostByType(result *domain.RunResult) error {
	records := make([][]string, 0, len(result.Aggregates.CostByType))
	for _, cs := range result.Aggregates.CostByType {
		records = append(records, []string{
			cs.PermitType,
			formatFloat(cs.MeanCost),
			formatFloat(cs.MedianCost),
			formatInt(int64(cs.Count)),
		})
	}
	return e.csvWriter.WriteSimpleCSV(e.paths.CostByTypeCSV,
		[]string{"PermitType", "MeanCost", "MedianCost", "PermitCount"}, records)
}

// writeCostOutliers writes the high-cost permits in clean-set order. Every
// outlier carries a cost, so the cost cell is always populated.
func (e *ReportExporter) writeCostOutliers(result *domain.RunResult) error {
	outliers := result.Aggregates.CostOutliers.Records
	records := make([][]string, 0, len(outliers))
	for i := range outliers {
		p := &outliers[i]
		records = append(records, []string{
			p.AppliedDate.Format("2006-01-02"),
			p.PermitTypeMapped,
			formatFloat(p.Cost()),
			formatCoordinate(p.Latitude),
			formatCoordinate(p.Longitude),
			p.OriginalAddress1,
		})
	}
	return e.csvWriter.WriteSimpleCSV(e.paths.CostOutliersCSV,
		[]string{"AppliedDate", "PermitType", "EstProjectCost", "Latitude", "Longitude", "OriginalAddress1"}, records)
}

// writeCleanPermits streams the full clean set. The header row reuses the
// canonical input column names, so the artifact is itself a valid dataset
// file. A missing cost is an empty cell, never zero.
func (e *ReportExporter) writeCleanPermits(result *domain.RunResult) error {
	stream, err := e.csvWriter.CreateStreamWriter(e.paths.CleanPermitsCSV, config.RequiredColumns())
	if err != nil {
		return err
	}

	for i := range result.CleanPermits {
		p := &result.CleanPermits[i]
		cost := ""
		if p.HasCost() {
			cost = formatFloat(*p.EstProjectCost)
		}
		row := []string{
			p.AppliedDate.Format("2006-01-02"),
			cost,
			formatCoordinate(p.Latitude),
			formatCoordinate(p.Longitude),
			p.PermitTypeMapped,
			p.OriginalAddress1,
		}
		if err := stream.WriteRecord(row); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write clean permit %d: %w", i, err)
		}
	}

	return stream.Close()
}

// summaryArtifact is the shape of summary.json: the summary metrics plus
// enough run metadata to trace the artifact back to its run.
type summaryArtifact struct {
	Format                    string                `json:"format"`
	RunID                     string                `json:"run_id"`
	GeneratedAt               time.Time             `json:"generated_at"`
	InputPath                 string                `json:"input_path"`
	ReferenceTime             time.Time             `json:"reference_time"`
	RowsParsed                int                   `json:"rows_parsed"`
	CleanRecords              int                   `json:"clean_records"`
	DroppedMissingCoordinates int                   `json:"dropped_missing_coordinates"`
	DroppedOutsideWindow      int                   `json:"dropped_outside_window"`
	Summary                   domain.SummaryMetrics `json:"summary"`
}

// writeSummaryJSON writes the summary metrics with run metadata.
func (e *ReportExporter) writeSummaryJSON(result *domain.RunResult) error {
	payload := summaryArtifact{
		Format:                    "permit_summary_v1",
		RunID:                     result.RunID,
		GeneratedAt:               time.Now().UTC(),
		InputPath:                 result.InputPath,
		ReferenceTime:             result.ReferenceTime,
		RowsParsed:                result.ParseStats.Rows,
		CleanRecords:              result.CleanStats.CleanRecords,
		DroppedMissingCoordinates: result.CleanStats.DroppedMissingCoordinates,
		DroppedOutsideWindow:      result.CleanStats.DroppedOutsideWindow,
		Summary:                   result.Summary,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return os.WriteFile(e.paths.SummaryJSON, data, 0644)
}

// writeStatisticsMD renders the Markdown summary report.
func (e *ReportExporter) writeStatisticsMD(result *domain.RunResult) error {
	s := result.Summary

	var b strings.Builder
	fmt.Fprintf(&b, "# %s - Summary Statistics\n\n", e.title)
	fmt.Fprintf(&b, "## Date Range: %s to %s\n\n",
		s.DateRangeStart.Format("2006-01-02"),
		s.DateRangeEnd.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Total Permits: %s\n", formatCount(s.TotalPermits))
	fmt.Fprintf(&b, "- Total Project Value: %s\n", formatCurrency(s.TotalValue))
	fmt.Fprintf(&b, "- Average Project Value: %s\n", formatCurrency(s.AvgValue))
	fmt.Fprintf(&b, "- Median Project Value: %s\n", formatCurrency(s.MedianValue))
	fmt.Fprintf(&b, "- Most Common Permit Type: %s\n", s.MostCommonType)

	return os.WriteFile(e.paths.StatisticsMD, []byte(b.String()), 0644)
}
