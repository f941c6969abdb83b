// Package exporter renders a pipeline run into the report artifact set.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing functionality with support for headers, streaming,
// and UTF-8 BOM for Excel compatibility.
//
// ReportExporter: Writes the full artifact set for a run: the aggregate CSVs,
// the streamed clean-set export, the GeoJSON map data, summary.json and the
// Markdown statistics report.
//
// Formatting helpers: fixed-point, currency and thousands-separated rendering
// shared by the CSV and Markdown writers.
//
// Example usage:
//
//	reporter := exporter.NewReportExporter(paths, "Building Permits", logger)
//
//	// Export every artifact for a successful run
//	export, err := reporter.Export(ctx, result)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Wrote %d artifacts\n", len(export.Artifacts))
package exporter
