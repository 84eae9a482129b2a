package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration // Default: 60s
	ServiceName       string
	Insecure          bool
}

// MeterProvider wraps the OpenTelemetry MeterProvider with lifecycle management
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
}

// NewMeterProvider creates and configures a new MeterProvider.
// If metrics are disabled, the no-op global meter stays in place.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}

	if !cfg.Enabled {
		logger.Info("Metrics disabled, using no-op meter provider")
		return mp, nil
	}

	exportInterval := cfg.ExportInterval
	if exportInterval == 0 {
		exportInterval = 60 * time.Second
	}

	exporterOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint),
	}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(provider)

	mp.provider = provider
	logger.Info("Metrics enabled", zap.String("endpoint", cfg.CollectorEndpoint))
	return mp, nil
}

// Shutdown flushes and stops the meter provider
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return mp.provider.Shutdown(shutdownCtx)
}

// AdminMetrics holds the instruments for the fan-out layer
type AdminMetrics struct {
	resolutions metric.Int64Counter
	mergeWindow metric.Int64Histogram
}

// NewAdminMetrics creates the fan-out instruments on the global meter
func NewAdminMetrics() (*AdminMetrics, error) {
	meter := otel.GetMeterProvider().Meter(TracerName)

	resolutions, err := meter.Int64Counter(
		"admin.source_resolutions",
		metric.WithDescription("Per-region source resolutions by resource, mode and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolutions counter: %w", err)
	}

	mergeWindow, err := meter.Int64Histogram(
		"admin.merge_prefix_rows",
		metric.WithDescription("Merged prefix window size in rows for scope-all listings"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge window histogram: %w", err)
	}

	return &AdminMetrics{
		resolutions: resolutions,
		mergeWindow: mergeWindow,
	}, nil
}

// RecordResolution counts one per-region resolution outcome
func (m *AdminMetrics) RecordResolution(ctx context.Context, resource, region, mode string, ok bool) {
	if m == nil {
		return
	}
	m.resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("region", region),
		attribute.String("mode", mode),
		attribute.Bool("ok", ok),
	))
}

// RecordMergeWindow records the prefix window size of a merged listing
func (m *AdminMetrics) RecordMergeWindow(ctx context.Context, resource string, rows int) {
	if m == nil {
		return
	}
	m.mergeWindow.Record(ctx, int64(rows), metric.WithAttributes(
		attribute.String("resource", resource),
	))
}
