// Package config provides centralized configuration management for the
// PermitPulse analyzer. It handles loading configuration from multiple
// sources, validation, and provides a type-safe API for accessing
// configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (analyzer.yaml beside the executable,
//	   or the file named by PERMIT_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern PERMIT_* for namespacing:
//
//	PERMIT_PIPELINE_RECENCY_WINDOW_YEARS=2
//	PERMIT_PIPELINE_OUTLIER_QUANTILE=0.95
//	PERMIT_REPORT_TITLE="Building Permits"
//	PERMIT_LOGGING_LEVEL=info
//	PERMIT_TELEMETRY_TRACING_ENABLED=true
//
// # Validation
//
// All configuration is validated at load time with struct tags
// (go-playground/validator), including a custom datelayout validator for
// the applied-date layout list. Invalid configuration fails the run at
// startup with a CONFIG error.
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, _ := config.GetPaths()
//	reportPath := paths.GetReportPath("monthly_permits.csv")
//	logPath := paths.GetLogPath("analyzer.log")
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// For testing, use config.Default() to create a configuration with
// sensible defaults that don't require environment variables or external
// resources.
package config
