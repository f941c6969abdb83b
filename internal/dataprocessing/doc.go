// Package dataprocessing provides the permit analysis pipeline. It
// consolidates parsing, cleaning, aggregation, and summarization into a
// cohesive package that handles the complete data lifecycle from raw
// permit files to the analytical results the exporter renders.
//
// # Architecture
//
// The package is organized into four stage components plus an orchestrator:
//
// 1. Parser: Reads CSV and XLSX permit datasets into a lossless record set
// 2. Cleaner: Drops records without coordinates or outside the recency window
// 3. Aggregator: Builds monthly counts, type distributions, cost statistics and outliers
// 4. Summarizer: Derives dataset-wide totals, averages and date ranges
//
// The Pipeline type runs the stages in order under a single run ID.
//
// # Usage
//
// Running a full analysis:
//
//	pipeline := dataprocessing.NewPipeline(dataprocessing.OptionsFromConfig(cfg), logger, tracer, metrics)
//	result, err := pipeline.Run(ctx, "permits.csv", time.Now())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Using a stage directly:
//
//	parser := dataprocessing.NewParser(nil, logger)
//	records, stats, err := parser.ParseFile(ctx, "permits.xlsx")
//
// # Data Flow
//
// The typical data flow through this package:
//
//	Permit File → Parser → PermitRecords → Cleaner → CleanPermits → Aggregator/Summarizer → RunResult
//
// # Error Handling
//
// All functions return detailed errors that include context about what failed:
//
//	- Parse errors name the file and the missing columns
//	- Unparseable cells degrade to missing values and are counted, never fatal
//	- The pipeline attaches the failing stage to every error it returns
//
// # Performance Considerations
//
// The package is designed to handle large datasets efficiently:
//
//	- Single-pass parsing and cleaning
//	- Independent aggregations run concurrently unless configured sequential
//	- Minimal allocations in hot paths
//
// # Testing
//
// The package includes comprehensive tests for all components.
// Use table-driven tests when adding new functionality.
package dataprocessing
