package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "permitpulse/internal/errors"
)

// Config represents the complete analyzer configuration
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// PipelineConfig contains parsing, cleaning and aggregation configuration
type PipelineConfig struct {
	InputFile          string   `yaml:"input_file" envconfig:"INPUT_FILE"`
	RecencyWindowYears int      `yaml:"recency_window_years" envconfig:"RECENCY_WINDOW_YEARS" default:"2" validate:"min=1"`
	OutlierQuantile    float64  `yaml:"outlier_quantile" envconfig:"OUTLIER_QUANTILE" default:"0.95" validate:"gt=0,lt=1"`
	Sequential         bool     `yaml:"sequential" envconfig:"SEQUENTIAL" default:"false"`
	DateLayouts        []string `yaml:"date_layouts" envconfig:"DATE_LAYOUTS" validate:"min=1,dive,datelayout"`
}

// ReportConfig contains report generation configuration
type ReportConfig struct {
	Title     string `yaml:"title" envconfig:"TITLE" default:"Building Permits" validate:"required"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"both" validate:"oneof=stdout file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/analyzer.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	TracingEnabled bool    `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED" default:"true"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"stdout" validate:"oneof=stdout none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0" validate:"gte=0,lte=1"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("PERMIT", &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to load config file %s", configFile), err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Resolve relative paths
	if err := cfg.resolvePaths(); err != nil {
		return nil, apperrors.NewConfigError("failed to resolve paths", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence).
// envconfig fills unset variables from the struct defaults, so an env value
// counts as an override only when it differs from the default baseline.
func mergeConfigs(fileConfig, envConfig Config) Config {
	def := Default()
	merged := envConfig

	// Pipeline config
	if merged.Pipeline.InputFile == def.Pipeline.InputFile && fileConfig.Pipeline.InputFile != "" {
		merged.Pipeline.InputFile = fileConfig.Pipeline.InputFile
	}
	if merged.Pipeline.RecencyWindowYears == def.Pipeline.RecencyWindowYears && fileConfig.Pipeline.RecencyWindowYears != 0 {
		merged.Pipeline.RecencyWindowYears = fileConfig.Pipeline.RecencyWindowYears
	}
	if merged.Pipeline.OutlierQuantile == def.Pipeline.OutlierQuantile && fileConfig.Pipeline.OutlierQuantile != 0 {
		merged.Pipeline.OutlierQuantile = fileConfig.Pipeline.OutlierQuantile
	}
	if !merged.Pipeline.Sequential && fileConfig.Pipeline.Sequential {
		merged.Pipeline.Sequential = true
	}
	if len(merged.Pipeline.DateLayouts) == 0 && len(fileConfig.Pipeline.DateLayouts) > 0 {
		merged.Pipeline.DateLayouts = fileConfig.Pipeline.DateLayouts
	}

	// Report config
	if merged.Report.Title == def.Report.Title && fileConfig.Report.Title != "" {
		merged.Report.Title = fileConfig.Report.Title
	}
	if merged.Report.OutputDir == def.Report.OutputDir && fileConfig.Report.OutputDir != "" {
		merged.Report.OutputDir = fileConfig.Report.OutputDir
	}

	// Logging config
	if merged.Logging.Level == def.Logging.Level && fileConfig.Logging.Level != "" {
		merged.Logging.Level = fileConfig.Logging.Level
	}
	if merged.Logging.Format == def.Logging.Format && fileConfig.Logging.Format != "" {
		merged.Logging.Format = fileConfig.Logging.Format
	}
	if merged.Logging.Output == def.Logging.Output && fileConfig.Logging.Output != "" {
		merged.Logging.Output = fileConfig.Logging.Output
	}
	if merged.Logging.FilePath == def.Logging.FilePath && fileConfig.Logging.FilePath != "" {
		merged.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if !merged.Logging.Development && fileConfig.Logging.Development {
		merged.Logging.Development = true
	}

	// Telemetry config. The enabled flags default to true, which makes an
	// absent YAML key indistinguishable from an explicit false, so they are
	// controlled through the environment only.
	if merged.Telemetry.TraceExporter == def.Telemetry.TraceExporter && fileConfig.Telemetry.TraceExporter != "" {
		merged.Telemetry.TraceExporter = fileConfig.Telemetry.TraceExporter
	}
	if merged.Telemetry.SampleRatio == def.Telemetry.SampleRatio && fileConfig.Telemetry.SampleRatio != 0 {
		merged.Telemetry.SampleRatio = fileConfig.Telemetry.SampleRatio
	}

	return merged
}

// resolvePaths resolves relative paths against the executable directory
func (c *Config) resolvePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFilePath
	}
	if !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(paths.ExecutableDir, c.Logging.FilePath)
	}

	if c.Report.OutputDir == "" {
		c.Report.OutputDir = paths.ReportsDir
	} else if !filepath.IsAbs(c.Report.OutputDir) {
		c.Report.OutputDir = filepath.Join(paths.ExecutableDir, c.Report.OutputDir)
	}

	return nil
}

// ValidatePaths validates that critical paths exist or can be created
func (c *Config) ValidatePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	// Ensure all required directories exist
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	// The output directory may be overridden away from the standard layout
	if c.Report.OutputDir != "" && c.Report.OutputDir != paths.ReportsDir {
		if err := os.MkdirAll(c.Report.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %v", c.Report.OutputDir, err)
		}
	}

	// Log path resolution for debugging
	paths.LogPathResolution()

	return nil
}

// GetReportsDir returns the resolved reports output directory
func (c *Config) GetReportsDir() string {
	if c.Report.OutputDir != "" {
		return c.Report.OutputDir
	}
	paths, err := GetPaths()
	if err != nil {
		// Fallback to the relative default if path resolution fails
		return DefaultReportsDir
	}
	return paths.ReportsDir
}

// GetLogFilePath returns the resolved log file path
func (c *Config) GetLogFilePath() string {
	if c.Logging.FilePath != "" {
		return c.Logging.FilePath
	}
	paths, err := GetPaths()
	if err != nil {
		return DefaultLogFilePath
	}
	return paths.GetLogPath(filepath.Base(DefaultLogFilePath))
}

// validate validates the configuration
func (c *Config) validate() error {
	// Backfill defaults for values a config file may have cleared
	if len(c.Pipeline.DateLayouts) == 0 {
		c.Pipeline.DateLayouts = DefaultDateLayouts()
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFilePath
	}

	return ValidateStruct(c)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Explicit override wins
	if path := os.Getenv("PERMIT_CONFIG_FILE"); path != "" {
		return path
	}

	// Config file beside the executable
	if paths, err := GetPaths(); err == nil {
		if FileExists(paths.ConfigFile) {
			return paths.ConfigFile
		}
	}

	// Working-directory fallback for development
	if FileExists(ConfigFileName) {
		return ConfigFileName
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			RecencyWindowYears: DefaultRecencyWindowYears,
			OutlierQuantile:    DefaultOutlierQuantile,
			Sequential:         false,
			DateLayouts:        DefaultDateLayouts(),
		},
		Report: ReportConfig{
			Title: DefaultReportTitle,
		},
		Logging: LoggingConfig{
			Level:       DefaultLogLevel,
			Format:      DefaultLogFormat,
			Output:      DefaultLogOutput,
			FilePath:    DefaultLogFilePath,
			Development: false,
		},
		Telemetry: TelemetryConfig{
			TracingEnabled: true,
			TraceExporter:  TraceExporterStdout,
			SampleRatio:    DefaultSampleRatio,
			MetricsEnabled: true,
		},
	}
}
