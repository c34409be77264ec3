// Package otelmetrics is the ambient OpenTelemetry observability facade: an
// additional metrics view over the same Recorder events the NDJSON file and
// live dashboard already carry, never a replacement for either. Trimmed to
// one concern (metrics, no distributed tracing — this is a single binary
// with no cross-process span to propagate) and wired to the driver's own
// five-category error taxonomy rather than free-form session/tool telemetry.
package otelmetrics

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/bc-dunia/mcpstress/internal/recorder"
)

// ExporterType selects where metrics go: a stdout default and an OTLP/HTTP
// upgrade path (the OTLP gRPC variant is dropped — one exporter transport
// is enough for a single binary).
type ExporterType string

const (
	ExporterNone     ExporterType = "none"
	ExporterStdout   ExporterType = "stdout"
	ExporterOTLPHTTP ExporterType = "otlp-http"
)

// Config holds the exporter selection and resource attributes this
// single-binary shape needs.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	ExporterType   ExporterType
	OTLPEndpoint   string
	OTLPInsecure   bool
}

// ConfigFromEnv builds a Config the way a CLI would wire one: metrics on
// whenever the caller opts in, exporter picked from
// OTEL_EXPORTER_OTLP_ENDPOINT per SPEC_FULL.md §11 (stdout when unset).
func ConfigFromEnv(enabled bool) Config {
	cfg := Config{
		Enabled:      enabled,
		ServiceName:  "mcpstress",
		ExporterType: ExporterStdout,
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.ExporterType = ExporterOTLPHTTP
		cfg.OTLPEndpoint = endpoint
	}
	if !enabled {
		cfg.ExporterType = ExporterNone
	}
	return cfg
}

// Meter wraps an OTel MeterProvider with the instruments this spec's
// Engine/Recorder exercise. It implements recorder.Instrumenter, so a
// Recorder can feed it batches the same way the Aggregator is fed, off
// the hot path.
type Meter struct {
	cfg           Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	shutdown      func(context.Context) error

	mu sync.Mutex

	requestCounter   metric.Int64Counter
	latencyHistogram metric.Float64Histogram
	concurrencyGauge metric.Int64ObservableGauge
	phaseGauge       metric.Int64ObservableGauge
	gaugeReg         metric.Registration

	currentConcurrency atomic.Int64
	currentPhase       atomic.Int64
}

// New builds a Meter from cfg. A disabled or no-op config still returns a
// working Meter whose instruments simply discard everything, matching the
// teacher's NoopMetrics idiom — callers never need a nil check.
func New(ctx context.Context, cfg Config) (*Meter, error) {
	m := &Meter{cfg: cfg}
	m.currentPhase.Store(-1)

	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		m.meterProvider = sdkmetric.NewMeterProvider()
		m.meter = m.meterProvider.Meter(serviceNameOrDefault(cfg))
		m.shutdown = func(context.Context) error { return nil }
		if err := m.registerInstruments(); err != nil {
			return nil, err
		}
		return m, nil
	}

	exporter, err := m.newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("otelmetrics: building exporter: %w", err)
	}
	res, err := m.newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("otelmetrics: building resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	m.meterProvider = mp
	m.meter = mp.Meter(serviceNameOrDefault(cfg))
	m.shutdown = mp.Shutdown

	if err := m.registerInstruments(); err != nil {
		return nil, err
	}
	return m, nil
}

func serviceNameOrDefault(cfg Config) string {
	if cfg.ServiceName != "" {
		return cfg.ServiceName
	}
	return "mcpstress"
}

func (m *Meter) newExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdoutmetric.New()
	case ExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.ExporterType)
	}
}

func (m *Meter) newResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(serviceNameOrDefault(cfg))}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes("", attrs...))
}

func (m *Meter) registerInstruments() error {
	var err error
	m.requestCounter, err = m.meter.Int64Counter(
		"mcpstress.requests",
		metric.WithDescription("Count of MCP requests by outcome category"),
	)
	if err != nil {
		return fmt.Errorf("otelmetrics: request counter: %w", err)
	}

	m.latencyHistogram, err = m.meter.Float64Histogram(
		"mcpstress.request.latency",
		metric.WithDescription("Latency of MCP requests"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("otelmetrics: latency histogram: %w", err)
	}

	m.concurrencyGauge, err = m.meter.Int64ObservableGauge(
		"mcpstress.concurrency",
		metric.WithDescription("Target concurrency the Engine is currently driving"),
	)
	if err != nil {
		return fmt.Errorf("otelmetrics: concurrency gauge: %w", err)
	}

	m.phaseGauge, err = m.meter.Int64ObservableGauge(
		"mcpstress.phase",
		metric.WithDescription("Find-ceiling phase index, -1 when not phased"),
	)
	if err != nil {
		return fmt.Errorf("otelmetrics: phase gauge: %w", err)
	}

	m.gaugeReg, err = m.meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(m.concurrencyGauge, m.currentConcurrency.Load())
			o.ObserveInt64(m.phaseGauge, m.currentPhase.Load())
			return nil
		},
		m.concurrencyGauge, m.phaseGauge,
	)
	if err != nil {
		return fmt.Errorf("otelmetrics: registering gauge callback: %w", err)
	}
	return nil
}

// RecordBatch implements recorder.Instrumenter: it folds a flushed batch
// of records into the counters/histogram, off the hot path the same way
// the Aggregator's Batch call is.
func (m *Meter) RecordBatch(records []recorder.Record) {
	ctx := context.Background()
	for _, r := range records {
		m.currentConcurrency.Store(int64(r.ConcurrencyLevel))
		m.currentPhase.Store(int64(r.Phase))

		attrs := metric.WithAttributes(
			attribute.String("category", categoryName(r)),
		)
		m.requestCounter.Add(ctx, 1, attrs)
		m.latencyHistogram.Record(ctx, r.LatencyMs, attrs)
	}
}

func categoryName(r recorder.Record) string {
	if r.OK {
		return "success"
	}
	switch r.ErrorCategoryInt {
	case 1:
		return "timeout"
	case 2:
		return "protocol"
	case 3:
		return "server"
	case 4:
		return "network"
	case 5:
		return "client"
	default:
		return "unknown"
	}
}

// Shutdown flushes and releases the meter provider.
func (m *Meter) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gaugeReg != nil {
		if err := m.gaugeReg.Unregister(); err != nil {
			return fmt.Errorf("otelmetrics: unregistering gauge callback: %w", err)
		}
	}
	if m.shutdown != nil {
		return m.shutdown(ctx)
	}
	return nil
}

// Enabled reports whether this Meter actually exports anywhere.
func (m *Meter) Enabled() bool {
	return m.cfg.Enabled && m.cfg.ExporterType != ExporterNone
}
