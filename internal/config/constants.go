package config

import "time"

// Application constants - all hardcoded values for the PermitPulse analyzer
const (
	// Application Info
	AppName    = "PermitPulse"
	AppVersion = "1.0.0"

	// Dataset Schema - required column headers, matched verbatim
	ColumnAppliedDate      = "AppliedDate"
	ColumnEstProjectCost   = "EstProjectCost"
	ColumnLatitude         = "Latitude"
	ColumnLongitude        = "Longitude"
	ColumnPermitTypeMapped = "PermitTypeMapped"
	ColumnOriginalAddress  = "OriginalAddress1"

	// Cleaning Defaults
	DefaultRecencyWindowYears = 2
	DefaultOutlierQuantile    = 0.95

	// Report Defaults
	DefaultReportTitle = "Building Permits"

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultInputDir   = "data/input"
	DefaultReportsDir = "data/reports"
	DefaultCacheDir   = "data/cache"
	DefaultLogsDir    = "logs"

	// Config file name, looked up beside the executable
	ConfigFileName = "analyzer.yaml"

	// Log Settings
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultLogOutput   = "both"
	DefaultLogFilePath = "logs/analyzer.log"

	// Telemetry
	TraceExporterStdout = "stdout"
	TraceExporterNone   = "none"
	DefaultSampleRatio  = 1.0

	// Report Artifact File Names
	ArtifactMonthlyPermits   = "monthly_permits.csv"
	ArtifactTypeDistribution = "permit_type_distribution.csv"
	ArtifactCostByType       = "cost_by_type.csv"
	ArtifactCostOutliers     = "cost_outliers.csv"
	ArtifactCleanPermits     = "clean_permits.csv"
	ArtifactPermitMap        = "permit_map.geojson"
	ArtifactSummaryJSON      = "summary.json"
	ArtifactStatisticsMD     = "statistics.md"

	// Operation Timeouts
	DefaultPipelineTimeout = 15 * time.Minute
)

// RequiredColumns returns the column headers a permit dataset must carry.
// A dataset missing any of these is structurally malformed.
func RequiredColumns() []string {
	return []string{
		ColumnAppliedDate,
		ColumnEstProjectCost,
		ColumnLatitude,
		ColumnLongitude,
		ColumnPermitTypeMapped,
		ColumnOriginalAddress,
	}
}

// DefaultDateLayouts returns the layouts tried in order when parsing
// applied-date cells. The first layout that parses wins.
func DefaultDateLayouts() []string {
	return []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"01/02/2006",
	}
}

// DatasetExtensions returns the file extensions recognized as permit
// dataset files.
func DatasetExtensions() []string {
	return []string{".csv", ".xlsx"}
}
