package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ServiceName      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	calculations       metric.Int64Counter
	payrollRuns        metric.Int64Counter
	warnings           metric.Int64Counter
	sideEffectFailures metric.Int64Counter
}

// NewProvider configures and registers the meter provider. Without an
// exporter the provider is a no-op and instruments cost nothing.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := otlpmetricgrpc.New(context.Background(),
		otlpmetricgrpc.WithEndpoint(cfg.ExporterEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}
	return provider, nil
}

// New creates the engine instruments from a meter provider.
func New(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("taxflow/engine")

	calculations, err := meter.Int64Counter("taxflow_calculations_total",
		metric.WithDescription("Completed tax calculations"))
	if err != nil {
		return nil, err
	}
	payrollRuns, err := meter.Int64Counter("taxflow_payroll_calculations_total",
		metric.WithDescription("Completed payroll calculations"))
	if err != nil {
		return nil, err
	}
	warnings, err := meter.Int64Counter("taxflow_warnings_total",
		metric.WithDescription("Advisory warnings attached to responses"))
	if err != nil {
		return nil, err
	}
	sideEffectFailures, err := meter.Int64Counter("taxflow_side_effect_failures_total",
		metric.WithDescription("Side effects that failed after a successful calculation"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		calculations:       calculations,
		payrollRuns:        payrollRuns,
		warnings:           warnings,
		sideEffectFailures: sideEffectFailures,
	}, nil
}

// NewNop returns instruments backed by a no-op provider. Used by tests.
func NewNop() *Metrics {
	m, _ := New(noop.NewMeterProvider())
	return m
}

func (m *Metrics) RecordCalculation(ctx context.Context, country string) {
	m.calculations.Add(ctx, 1, metric.WithAttributes(attribute.String("country", country)))
}

func (m *Metrics) RecordPayrollRun(ctx context.Context, country string) {
	m.payrollRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("country", country)))
}

func (m *Metrics) RecordWarning(ctx context.Context, code string) {
	m.warnings.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func (m *Metrics) RecordSideEffectFailure(ctx context.Context, kind string) {
	m.sideEffectFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
