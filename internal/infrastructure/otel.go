package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"permitpulse/internal/config"
)

const (
	ServiceName    = "permitpulse-analyzer"
	ServiceVersion = config.AppVersion
	MeterName      = "permitpulse"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "manual", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers. The meter provider is
// backed by a manual reader: a batch run has no scrape surface, so metrics
// are collected once at the end of the run and written to the log.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Reader         *sdkmetric.ManualReader
	Tracer         trace.Tracer
	Meter          metric.Meter
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "manual",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// NewOTelConfig maps the application telemetry configuration onto the
// OpenTelemetry initialization options.
func NewOTelConfig(cfg config.TelemetryConfig) *OTelConfig {
	c := DefaultOTelConfig()
	c.TraceExporter = cfg.TraceExporter
	c.SampleRatio = cfg.SampleRatio
	c.EnableTracing = cfg.TracingEnabled && cfg.TraceExporter != config.TraceExporterNone
	c.EnableMetrics = cfg.MetricsEnabled
	return c
}

// InitializeOTel initializes OpenTelemetry with tracing and metrics
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	// Create resource
	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	// Initialize tracing
	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	// Initialize metrics
	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	// Set up global propagators for trace context
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		// No exporter - tracing disabled
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	// Set global tracer provider
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "manual":
		// Collected on demand at the end of a run
		reader := sdkmetric.NewManualReader()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)

		providers.Reader = reader
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		// Set global meter provider
		otel.SetMeterProvider(mp)

	case "none":
		// No exporter - metrics disabled
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// CreatePipelineMetrics creates application-specific metrics
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	// Parser metrics
	rowsParsedTotal, err := meter.Int64Counter(
		"pipeline_rows_parsed_total",
		metric.WithDescription("Total number of permit rows parsed from input files"),
	)
	if err != nil {
		return nil, err
	}

	fieldsDegradedTotal, err := meter.Int64Counter(
		"pipeline_fields_degraded_total",
		metric.WithDescription("Total number of fields degraded to null during parsing"),
	)
	if err != nil {
		return nil, err
	}

	// Cleaner metrics
	rowsDroppedTotal, err := meter.Int64Counter(
		"pipeline_rows_dropped_total",
		metric.WithDescription("Total number of rows dropped by cleaning rules"),
	)
	if err != nil {
		return nil, err
	}

	cleanRecordsTotal, err := meter.Int64Counter(
		"pipeline_clean_records_total",
		metric.WithDescription("Total number of records surviving the cleaning rules"),
	)
	if err != nil {
		return nil, err
	}

	// Aggregation metrics
	outliersDetectedTotal, err := meter.Int64Counter(
		"pipeline_outliers_detected_total",
		metric.WithDescription("Total number of cost outliers detected"),
	)
	if err != nil {
		return nil, err
	}

	// Stage metrics
	stageExecutionsTotal, err := meter.Int64Counter(
		"pipeline_stage_executions_total",
		metric.WithDescription("Total number of pipeline stage executions"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		metric.WithDescription("Pipeline stage execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	// Run metrics
	runDuration, err := meter.Float64Histogram(
		"pipeline_run_duration_seconds",
		metric.WithDescription("End-to-end pipeline run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runErrorsTotal, err := meter.Int64Counter(
		"pipeline_run_errors_total",
		metric.WithDescription("Total number of failed pipeline runs"),
	)
	if err != nil {
		return nil, err
	}

	activeRuns, err := meter.Int64UpDownCounter(
		"pipeline_active_runs",
		metric.WithDescription("Number of pipeline runs currently in flight"),
	)
	if err != nil {
		return nil, err
	}

	// Export metrics
	artifactsWrittenTotal, err := meter.Int64Counter(
		"report_artifacts_written_total",
		metric.WithDescription("Total number of report artifacts written"),
	)
	if err != nil {
		return nil, err
	}

	artifactBytesTotal, err := meter.Int64Counter(
		"report_artifact_bytes_total",
		metric.WithDescription("Total bytes of report artifacts written"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RowsParsedTotal:       rowsParsedTotal,
		FieldsDegradedTotal:   fieldsDegradedTotal,
		RowsDroppedTotal:      rowsDroppedTotal,
		CleanRecordsTotal:     cleanRecordsTotal,
		OutliersDetectedTotal: outliersDetectedTotal,
		StageExecutionsTotal:  stageExecutionsTotal,
		StageDuration:         stageDuration,
		RunDuration:           runDuration,
		RunErrorsTotal:        runErrorsTotal,
		ActiveRuns:            activeRuns,
		ArtifactsWrittenTotal: artifactsWrittenTotal,
		ArtifactBytesTotal:    artifactBytesTotal,
	}, nil
}

// PipelineMetrics holds all application-specific metrics
type PipelineMetrics struct {
	// Parser metrics
	RowsParsedTotal     metric.Int64Counter
	FieldsDegradedTotal metric.Int64Counter

	// Cleaner metrics
	RowsDroppedTotal  metric.Int64Counter
	CleanRecordsTotal metric.Int64Counter

	// Aggregation metrics
	OutliersDetectedTotal metric.Int64Counter

	// Stage metrics
	StageExecutionsTotal metric.Int64Counter
	StageDuration        metric.Float64Histogram

	// Run metrics
	RunDuration    metric.Float64Histogram
	RunErrorsTotal metric.Int64Counter
	ActiveRuns     metric.Int64UpDownCounter

	// Export metrics
	ArtifactsWrittenTotal metric.Int64Counter
	ArtifactBytesTotal    metric.Int64Counter
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// CollectAndLogMetrics reads the current state of every recorded
// instrument from the manual reader and logs it. Call at the end of a
// run, before Shutdown.
func (p *OTelProviders) CollectAndLogMetrics(ctx context.Context) error {
	if p.Reader == nil {
		return nil
	}

	var rm metricdata.ResourceMetrics
	if err := p.Reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("failed to collect metrics: %w", err)
	}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					p.Logger.InfoContext(ctx, "Metric snapshot",
						slog.String("metric", m.Name),
						slog.Int64("value", dp.Value),
						slog.String("attributes", dp.Attributes.Encoded(attribute.DefaultEncoder())))
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					p.Logger.InfoContext(ctx, "Metric snapshot",
						slog.String("metric", m.Name),
						slog.Float64("value", dp.Value),
						slog.String("attributes", dp.Attributes.Encoded(attribute.DefaultEncoder())))
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					p.Logger.InfoContext(ctx, "Metric snapshot",
						slog.String("metric", m.Name),
						slog.Uint64("count", dp.Count),
						slog.Float64("sum", dp.Sum),
						slog.String("attributes", dp.Attributes.Encoded(attribute.DefaultEncoder())))
				}
			}
		}
	}

	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// SpanFromContext returns the current span from context
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// StartStageSpan starts a span for a named pipeline stage
func StartStageSpan(ctx context.Context, tracer trace.Tracer, stage string) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = otel.Tracer(MeterName)
	}
	return tracer.Start(ctx, "pipeline."+stage,
		trace.WithAttributes(attribute.String("pipeline.stage", stage)))
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}

// RecordRunMetrics records metrics for a complete pipeline run
func RecordRunMetrics(ctx context.Context, metrics *PipelineMetrics, runID string, duration time.Duration, success bool, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("run.id", runID),
	}

	statusAttr := attribute.String("status", "success")
	if !success {
		statusAttr = attribute.String("status", "failure")
	}
	durationAttrs := append(attrs, statusAttr)
	metrics.RunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(durationAttrs...))

	if err != nil {
		errorAttrs := append(attrs, attribute.String("error.type", fmt.Sprintf("%T", err)))
		metrics.RunErrorsTotal.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("run.metrics_recorded",
			trace.WithAttributes(
				attribute.String("run.id", runID),
				attribute.Bool("success", success),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordStageMetrics records metrics for a single pipeline stage execution
func RecordStageMetrics(ctx context.Context, metrics *PipelineMetrics, runID, stage string, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("run.id", runID),
		attribute.String("stage", stage),
	}

	metrics.StageExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	statusAttr := attribute.String("status", "success")
	if !success {
		statusAttr = attribute.String("status", "failure")
	}
	durationAttrs := append(attrs, statusAttr)
	metrics.StageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(durationAttrs...))
}

// RecordActiveRunChange records changes in the in-flight run count
func RecordActiveRunChange(ctx context.Context, metrics *PipelineMetrics, delta int64) {
	if metrics == nil {
		return
	}

	metrics.ActiveRuns.Add(ctx, delta)
}

// RecordArtifactMetrics records one written report artifact
func RecordArtifactMetrics(ctx context.Context, metrics *PipelineMetrics, runID, artifact string, bytes int64) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("run.id", runID),
		attribute.String("artifact", artifact),
	}

	metrics.ArtifactsWrittenTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.ArtifactBytesTotal.Add(ctx, bytes, metric.WithAttributes(attrs...))
}
