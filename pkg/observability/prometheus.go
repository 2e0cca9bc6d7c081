package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Prometheus is a scrape endpoint backed by its own registry and an OTel
// MeterProvider whose instruments it exports.
type Prometheus struct {
	Handler  http.Handler
	Provider *sdkmetric.MeterProvider
}

// Meter returns the carbonstats meter of the scrape-backed provider.
func (p *Prometheus) Meter() metric.Meter {
	return p.Provider.Meter(InstrumentationName)
}

// NewPrometheus creates a Prometheus exporter with an independent registry,
// so repeated calls never collide on collector registration. Go runtime and
// process collectors are registered alongside the OTel instruments.
func NewPrometheus() (*Prometheus, error) {
	registry := prometheus.NewRegistry()

	err := registry.Register(collectors.NewGoCollector())
	if err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	err = registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &Prometheus{
		Handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
	}, nil
}
