package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors, registered against a
// dedicated registry rather than the global default so tests can create
// independent instances.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	ProbeTotal      *prometheus.CounterVec
	RegistryServers prometheus.Gauge
}

// NewMetrics creates and registers the gateway's metric collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of inference requests handled, by model and outcome.",
		}, []string{"model", "outcome"}),
		ProbeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_probe_total",
			Help: "Total number of health probes performed, by result.",
		}, []string{"result"}),
		RegistryServers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_registry_servers",
			Help: "Current number of active servers in the registry.",
		}),
	}

	registry.MustRegister(m.RequestsTotal, m.ProbeTotal, m.RegistryServers)
	return m
}

// Handler returns the HTTP handler serving this Metrics instance's
// collectors in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records the outcome of a proxied inference request.
func (m *Metrics) ObserveRequest(model, outcome string) {
	m.RequestsTotal.WithLabelValues(model, outcome).Inc()
}

// ObserveProbe records the result of a single health probe.
func (m *Metrics) ObserveProbe(result string) {
	m.ProbeTotal.WithLabelValues(result).Inc()
}

// SetRegistryServers sets the current active server count gauge.
func (m *Metrics) SetRegistryServers(count int) {
	m.RegistryServers.Set(float64(count))
}
