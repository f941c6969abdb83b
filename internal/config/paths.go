package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	ExecutableDir string
	DataDir       string
	InputDir      string
	ReportsDir    string
	CacheDir      string
	LogsDir       string

	// Config file (root of executable directory)
	ConfigFile string

	// Well-known report artifacts (all in the reports directory)
	MonthlyPermitsCSV   string
	TypeDistributionCSV string
	CostByTypeCSV       string
	CostOutliersCSV     string
	CleanPermitsCSV     string
	PermitMapGeoJSON    string
	SummaryJSON         string
	StatisticsMD        string
}

// GetPaths returns the application paths relative to the executable location
// All paths are ALWAYS relative to the executable directory, never the current working directory
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	// Get the directory containing the executable
	exeDir := filepath.Dir(exe)

	// All paths are relative to the executable directory
	// This ensures the analyzer works correctly whether run from dev/ or dist/
	// Directory structure:
	// dist/
	//   ├── analyzer.yaml
	//   ├── data/
	//   │   ├── input/         (Permit dataset files)
	//   │   ├── reports/       (Generated artifacts)
	//   │   └── cache/         (Temporary files)
	//   └── logs/              (Application logs)

	dataDir := filepath.Join(exeDir, "data")
	reportsDir := filepath.Join(dataDir, "reports")

	paths := &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		InputDir:      filepath.Join(dataDir, "input"),
		ReportsDir:    reportsDir,
		CacheDir:      filepath.Join(dataDir, "cache"),
		LogsDir:       filepath.Join(exeDir, "logs"),

		ConfigFile: filepath.Join(exeDir, ConfigFileName),

		// Report artifacts (flat layout in the reports directory)
		MonthlyPermitsCSV:   filepath.Join(reportsDir, ArtifactMonthlyPermits),
		TypeDistributionCSV: filepath.Join(reportsDir, ArtifactTypeDistribution),
		CostByTypeCSV:       filepath.Join(reportsDir, ArtifactCostByType),
		CostOutliersCSV:     filepath.Join(reportsDir, ArtifactCostOutliers),
		CleanPermitsCSV:     filepath.Join(reportsDir, ArtifactCleanPermits),
		PermitMapGeoJSON:    filepath.Join(reportsDir, ArtifactPermitMap),
		SummaryJSON:         filepath.Join(reportsDir, ArtifactSummaryJSON),
		StatisticsMD:        filepath.Join(reportsDir, ArtifactStatisticsMD),
	}

	return paths, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.InputDir,
		p.ReportsDir,
		p.CacheDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// GetRelativePath returns a path relative to the executable directory
func (p *Paths) GetRelativePath(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetInputPath returns the path for a dataset file in the input directory
func (p *Paths) GetInputPath(filename string) string {
	return filepath.Join(p.InputDir, filename)
}

// GetReportPath returns the path for a report artifact
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetCachePath returns the path for a cache file
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// WithReportsDir returns a copy of the paths with the reports directory
// replaced and every artifact path re-rooted under it. The other
// directories are unchanged.
func (p *Paths) WithReportsDir(dir string) *Paths {
	out := *p
	out.ReportsDir = dir
	out.MonthlyPermitsCSV = filepath.Join(dir, ArtifactMonthlyPermits)
	out.TypeDistributionCSV = filepath.Join(dir, ArtifactTypeDistribution)
	out.CostByTypeCSV = filepath.Join(dir, ArtifactCostByType)
	out.CostOutliersCSV = filepath.Join(dir, ArtifactCostOutliers)
	out.CleanPermitsCSV = filepath.Join(dir, ArtifactCleanPermits)
	out.PermitMapGeoJSON = filepath.Join(dir, ArtifactPermitMap)
	out.SummaryJSON = filepath.Join(dir, ArtifactSummaryJSON)
	out.StatisticsMD = filepath.Join(dir, ArtifactStatisticsMD)
	return &out
}

// ArtifactPaths returns the full set of well-known report artifacts keyed
// by file name, in no particular order.
func (p *Paths) ArtifactPaths() map[string]string {
	return map[string]string{
		ArtifactMonthlyPermits:   p.MonthlyPermitsCSV,
		ArtifactTypeDistribution: p.TypeDistributionCSV,
		ArtifactCostByType:       p.CostByTypeCSV,
		ArtifactCostOutliers:     p.CostOutliersCSV,
		ArtifactCleanPermits:     p.CleanPermitsCSV,
		ArtifactPermitMap:        p.PermitMapGeoJSON,
		ArtifactSummaryJSON:      p.SummaryJSON,
		ArtifactStatisticsMD:     p.StatisticsMD,
	}
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("input", p.InputDir),
			slog.String("reports", p.ReportsDir),
			slog.String("cache", p.CacheDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("config_files",
			slog.String("analyzer_config", p.ConfigFile),
		),
		slog.Group("report_files",
			slog.String("monthly_permits_csv", p.MonthlyPermitsCSV),
			slog.String("type_distribution_csv", p.TypeDistributionCSV),
			slog.String("cost_by_type_csv", p.CostByTypeCSV),
			slog.String("cost_outliers_csv", p.CostOutliersCSV),
			slog.String("clean_permits_csv", p.CleanPermitsCSV),
			slog.String("permit_map_geojson", p.PermitMapGeoJSON),
			slog.String("summary_json", p.SummaryJSON),
			slog.String("statistics_md", p.StatisticsMD),
		))
}
