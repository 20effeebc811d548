package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
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
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	recomputes       metric.Int64Counter
	payments         metric.Int64Counter
	ledgerFailures   metric.Int64Counter
	occupancyReads   metric.Int64Counter
	occupancyRows    metric.Int64Histogram
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "ecclesia"
	}
	meter := provider.Meter(name)

	recomputes, err := meter.Int64Counter("ecclesia_grave_recompute_total")
	if err != nil {
		return nil, err
	}
	payments, err := meter.Int64Counter("ecclesia_concession_payments_total")
	if err != nil {
		return nil, err
	}
	ledgerFailures, err := meter.Int64Counter("ecclesia_ledger_posting_failures_total")
	if err != nil {
		return nil, err
	}
	occupancyReads, err := meter.Int64Counter("ecclesia_occupancy_reads_total")
	if err != nil {
		return nil, err
	}
	occupancyRows, err := meter.Int64Histogram("ecclesia_occupancy_rows")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("ecclesia_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("ecclesia_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		recomputes:       recomputes,
		payments:         payments,
		ledgerFailures:   ledgerFailures,
		occupancyReads:   occupancyReads,
		occupancyRows:    occupancyRows,
		rateLimitAllowed: rateLimitAllowed,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// RecordRecompute counts occupancy recomputations by trigger and outcome.
func (m *Metrics) RecordRecompute(ctx context.Context, cause, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("cause", strings.TrimSpace(cause)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.recomputes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPayment(ctx context.Context, ledgerStatus string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("ledger_status", strings.TrimSpace(ledgerStatus)))
	m.payments.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordLedgerFailure(ctx context.Context, sourceType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source_type", strings.TrimSpace(sourceType)))
	m.ledgerFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOccupancyRead counts occupancy listings and the number of graves returned.
func (m *Metrics) RecordOccupancyRead(ctx context.Context, filtered bool, rows int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.Bool("filtered", filtered))...)
	m.occupancyReads.Add(ctx, 1, attrs)
	m.occupancyRows.Record(ctx, int64(rows), attrs)
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, parishID, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("parish_id", strings.TrimSpace(parishID)),
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
	)
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, parishID, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("parish_id", strings.TrimSpace(parishID)),
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"parish_id":     {},
	"endpoint":      {},
	"method":        {},
	"status_code":   {},
	"cause":         {},
	"outcome":       {},
	"ledger_status": {},
	"source_type":   {},
	"filtered":      {},
	"reason":        {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
