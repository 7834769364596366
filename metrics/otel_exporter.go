package metrics

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "webhook-ledger"

// throughputWindows labels ThroughputMetrics fields in export order
var throughputWindows = []string{"1m", "5m", "15m"}

// OTelExporter publishes Collector snapshots as OTel gauges in Prometheus format.
// Every scrape runs Collect once and feeds all gauges from that snapshot.
type OTelExporter struct {
	provider     *sdkmetric.MeterProvider
	registry     *promclient.Registry
	collector    Collector
	registration metric.Registration

	total      metric.Int64ObservableGauge
	byStatus   metric.Int64ObservableGauge
	bySource   metric.Int64ObservableGauge
	throughput metric.Int64ObservableGauge
}

// NewOTelExporter registers the ledger gauges on registry, which ServeHTTP exposes
func NewOTelExporter(collector Collector, registry *promclient.Registry) (*OTelExporter, error) {
	reader, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	oe := &OTelExporter{
		provider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		registry:  registry,
		collector: collector,
	}
	if err := oe.register(oe.provider.Meter(meterName)); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}
	return oe, nil
}

func (oe *OTelExporter) register(meter metric.Meter) error {
	gauge := func(name, description string) (metric.Int64ObservableGauge, error) {
		g, err := meter.Int64ObservableGauge(name,
			metric.WithDescription(description),
			metric.WithUnit("{webhooks}"),
		)
		if err != nil {
			return nil, fmt.Errorf("creating %s gauge: %w", name, err)
		}
		return g, nil
	}

	var err error
	if oe.total, err = gauge("webhook.total", "Number of stored webhooks"); err != nil {
		return err
	}
	if oe.byStatus, err = gauge("webhook.status.count", "Number of webhooks by status"); err != nil {
		return err
	}
	if oe.bySource, err = gauge("webhook.source.count", "Number of webhooks by source"); err != nil {
		return err
	}
	if oe.throughput, err = gauge("webhook.throughput", "Number of webhooks settled over a time window"); err != nil {
		return err
	}

	oe.registration, err = meter.RegisterCallback(oe.observe, oe.total, oe.byStatus, oe.bySource, oe.throughput)
	if err != nil {
		return fmt.Errorf("registering callback: %w", err)
	}
	return nil
}

func (oe *OTelExporter) observe(ctx context.Context, o metric.Observer) error {
	m, err := oe.collector.Collect(ctx)
	if err != nil {
		return err
	}

	var total int64
	for status, count := range m.StatusCounts {
		total += count
		o.ObserveInt64(oe.byStatus, count, metric.WithAttributes(attribute.String("webhook.status", status)))
	}
	o.ObserveInt64(oe.total, total)

	for source, count := range m.SourceCounts {
		o.ObserveInt64(oe.bySource, count, metric.WithAttributes(attribute.String("webhook.source", source)))
	}

	settled := []int64{m.Throughput.LastMinute, m.Throughput.LastFiveMinutes, m.Throughput.LastFifteenMinutes}
	for i, window := range throughputWindows {
		o.ObserveInt64(oe.throughput, settled[i], metric.WithAttributes(attribute.String("time.window", window)))
	}
	return nil
}

// ServeHTTP returns the handler serving Prometheus-formatted metrics
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.HandlerFor(oe.registry, promhttp.HandlerOpts{})
}

// Shutdown unregisters the callback and stops the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.registration != nil {
		if err := oe.registration.Unregister(); err != nil {
			return fmt.Errorf("unregistering callback: %w", err)
		}
	}
	return oe.provider.Shutdown(ctx)
}
