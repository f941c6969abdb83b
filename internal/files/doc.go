// Package files provides dataset discovery and file validation for the
// permit analytics pipeline.
//
// This package contains two main components:
//
// Discovery: Locates permit dataset files (.csv, .xlsx) in a directory,
// ordered by modification time, and picks the newest one when the CLI is
// not given an explicit input path. Excel lock files are ignored.
//
// Validator: Checks a dataset file before a run (exists, regular file,
// readable, supported extension) and verifies the reports directory can be
// created and written to. Failures are reported as typed application
// errors so the CLI can map them to exit diagnostics.
//
// Example usage:
//
//	// Find the newest dataset in the input directory
//	discovery := files.NewDiscovery("/path/to/base")
//	latest, ok, err := discovery.LatestDataset("input")
//
//	// Validate it before running the pipeline
//	validator := files.NewValidator(logger)
//	if err := validator.ValidateDatasetFile(latest.Path); err != nil {
//	    // refuse the run
//	}
package files
