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

// Metrics exposes course completion instruments.
type Metrics struct {
	progressApplied       metric.Int64Counter
	certificatesRequested metric.Int64Counter
	certificatesIssued    metric.Int64Counter
	certificatesSkipped   metric.Int64Counter
	achievementsRecorded  metric.Int64Counter
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
		name = "academy"
	}
	meter := provider.Meter(name)

	progressApplied, err := meter.Int64Counter("academy_progress_applied_total")
	if err != nil {
		return nil, err
	}
	certificatesRequested, err := meter.Int64Counter("academy_certificates_requested_total")
	if err != nil {
		return nil, err
	}
	certificatesIssued, err := meter.Int64Counter("academy_certificates_issued_total")
	if err != nil {
		return nil, err
	}
	certificatesSkipped, err := meter.Int64Counter("academy_certificates_skipped_total")
	if err != nil {
		return nil, err
	}
	achievementsRecorded, err := meter.Int64Counter("academy_achievements_recorded_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		progressApplied:       progressApplied,
		certificatesRequested: certificatesRequested,
		certificatesIssued:    certificatesIssued,
		certificatesSkipped:   certificatesSkipped,
		achievementsRecorded:  achievementsRecorded,
	}, nil
}

// RecordProgressApplied counts level-pass deltas folded into a progress row.
// The outcome is "updated" or "inserted".
func (m *Metrics) RecordProgressApplied(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.progressApplied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCertificateRequested(ctx context.Context) {
	if m == nil {
		return
	}
	m.certificatesRequested.Add(ctx, 1)
}

func (m *Metrics) RecordCertificateIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.certificatesIssued.Add(ctx, 1)
}

// RecordCertificateSkipped counts requests answered by an existing certificate.
func (m *Metrics) RecordCertificateSkipped(ctx context.Context) {
	if m == nil {
		return
	}
	m.certificatesSkipped.Add(ctx, 1)
}

func (m *Metrics) RecordAchievement(ctx context.Context) {
	if m == nil {
		return
	}
	m.achievementsRecorded.Add(ctx, 1)
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
	"outcome":     {},
	"exchange":    {},
	"routing_key": {},
	"queue":       {},
	"reason":      {},
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
