package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"permitpulse/internal/config"
	"permitpulse/internal/dataprocessing"
	apperrors "permitpulse/internal/errors"
	"permitpulse/internal/exporter"
	"permitpulse/internal/files"
	"permitpulse/internal/infrastructure"
)

func main() {
	inputFile := flag.String("input", "", "permit dataset file (.csv or .xlsx); defaults to the newest file in data/input")
	outDir := flag.String("out", "", "report output directory (defaults to data/reports relative to executable)")
	configFile := flag.String("config", "", "configuration file (defaults to analyzer.yaml beside the executable)")
	title := flag.String("title", "", "report title override")
	sequential := flag.Bool("sequential", false, "run the aggregation derivations sequentially")
	flag.Parse()

	// An explicit config path wins over the file beside the executable
	if *configFile != "" {
		os.Setenv("PERMIT_CONFIG_FILE", *configFile)
	}

	// Initialize paths first to get default directories
	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		fmt.Fprintln(os.Stderr, failureMessage(err))
		os.Exit(1)
	}

	// Flag overrides sit on top of file and environment configuration
	if *outDir != "" {
		cfg.Report.OutputDir = *outDir
	}
	if *title != "" {
		cfg.Report.Title = *title
	}
	if *sequential {
		cfg.Pipeline.Sequential = true
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var metrics *infrastructure.PipelineMetrics
	if otelProviders.Meter != nil {
		metrics, err = infrastructure.CreatePipelineMetrics(otelProviders.Meter)
		if err != nil {
			logger.Warn("Failed to create pipeline metrics", slog.String("error", err.Error()))
		}
	}

	// Ensure all required directories exist, including an overridden
	// output directory
	if err := cfg.ValidatePaths(); err != nil {
		logger.Error("Failed to create required directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Re-root the artifact paths when the reports directory is overridden
	if dir := cfg.GetReportsDir(); dir != paths.ReportsDir {
		paths = paths.WithReportsDir(dir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultPipelineTimeout)
	defer cancel()

	validator := files.NewValidator(logger)

	input, err := resolveInput(*inputFile, cfg, paths, logger)
	if err != nil {
		fail(ctx, logger, otelProviders, err)
	}
	if err := validator.ValidateDatasetFile(input); err != nil {
		fail(ctx, logger, otelProviders, err)
	}
	if err := validator.ValidateOutputDirectory(paths.ReportsDir); err != nil {
		fail(ctx, logger, otelProviders, err)
	}

	logger.Info("Starting permit analysis",
		slog.String("input", input),
		slog.String("reports_dir", paths.ReportsDir),
		slog.String("title", cfg.Report.Title),
		slog.Bool("sequential", cfg.Pipeline.Sequential),
		slog.String("executable_dir", paths.ExecutableDir))

	pipeline := dataprocessing.NewPipeline(dataprocessing.OptionsFromConfig(cfg), logger, otelProviders.Tracer, metrics)

	result, err := pipeline.Run(ctx, input, time.Now())
	if err != nil {
		fail(ctx, logger, otelProviders, err)
	}

	// Progress lines for callers that scrape stdout
	fmt.Printf("Parsed %d permit records\n", result.ParseStats.Rows)
	fmt.Printf("Clean set: %d records (dropped %d missing coordinates, %d outside window)\n",
		result.CleanStats.CleanRecords,
		result.CleanStats.DroppedMissingCoordinates,
		result.CleanStats.DroppedOutsideWindow)

	reportExporter := exporter.NewReportExporter(paths, cfg.Report.Title, logger)
	export, err := reportExporter.Export(ctx, result)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("stage", "export")
		}
		fail(ctx, logger, otelProviders, err)
	}

	for _, artifact := range export.Artifacts {
		infrastructure.RecordArtifactMetrics(ctx, metrics, result.RunID, artifact.Name, artifact.Bytes)
	}
	fmt.Printf("Wrote %d artifacts\n", len(export.Artifacts))

	logger.Info("Analysis complete",
		slog.String("run_id", result.RunID),
		slog.Int("rows_parsed", result.ParseStats.Rows),
		slog.Int("clean_records", result.CleanStats.CleanRecords),
		slog.Int("artifacts", len(export.Artifacts)),
		slog.Int64("artifact_bytes", export.TotalBytes()),
		slog.Duration("duration", result.Duration))

	if err := otelProviders.CollectAndLogMetrics(ctx); err != nil {
		logger.Warn("Failed to collect metrics", slog.String("error", err.Error()))
	}
	shutdownTelemetry(ctx, otelProviders)

	fmt.Println("Processing complete")
}

// resolveInput decides which dataset file the run reads: the -input flag,
// then the configured input file, then the newest dataset file in the input
// directory.
func resolveInput(flagValue string, cfg *config.Config, paths *config.Paths, logger *slog.Logger) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg.Pipeline.InputFile != "" {
		return cfg.Pipeline.InputFile, nil
	}

	discovery := files.NewDiscovery(paths.DataDir)
	latest, ok, err := discovery.LatestDataset(paths.InputDir)
	if err != nil {
		return "", apperrors.NewInputMissingError("failed to scan input directory "+paths.InputDir, err)
	}
	if !ok {
		return "", apperrors.NewInputMissingError("no dataset files found in "+paths.InputDir, nil)
	}

	logger.Info("Discovered dataset file",
		slog.String("path", latest.Path),
		slog.Int64("size", latest.Size),
		slog.Time("modified", latest.ModTime))
	return latest.Path, nil
}

// failureMessage renders a fatal error for stderr, naming the failing
// pipeline stage when one was recorded on the error.
func failureMessage(err error) string {
	if stage := apperrors.StageOf(err); stage != "" {
		return fmt.Sprintf("analyzer: %s stage failed: %v", stage, err)
	}
	return fmt.Sprintf("analyzer: %v", err)
}

// fail reports a fatal error, flushes telemetry and exits non-zero.
func fail(ctx context.Context, logger *slog.Logger, providers *infrastructure.OTelProviders, err error) {
	logger.Error("Analysis failed",
		slog.String("error", err.Error()),
		slog.String("stage", apperrors.StageOf(err)))
	fmt.Fprintln(os.Stderr, failureMessage(err))
	shutdownTelemetry(ctx, providers)
	os.Exit(1)
}

// shutdownTelemetry flushes both telemetry providers with a bounded wait.
func shutdownTelemetry(ctx context.Context, providers *infrastructure.OTelProviders) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Telemetry shutdown failed", "error", err)
	}
}
