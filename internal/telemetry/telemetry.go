// Package telemetry holds the Prometheus collectors of the service. Every
// Metrics value owns its registry so tests never share global state.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	Classified   *prometheus.CounterVec
	RepairStages *prometheus.CounterVec
	Completions  *prometheus.CounterVec
	Upstream     *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "report",
			Name:      "files_classified_total",
			Help:      "Bulk-uploaded files by classification result.",
		}, []string{"result"}),
		RepairStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "report",
			Name:      "repair_stage_total",
			Help:      "Model responses by the repair stage that produced the result.",
		}, []string{"stage"}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "report",
			Name:      "completion_requests_total",
			Help:      "Completion calls made by analysis runs.",
		}, []string{"outcome"}),
		Upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "report",
			Name:      "anthropic_requests_total",
			Help:      "Proxied Messages API calls by status code.",
		}, []string{"code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "report",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP handler latency.",
			Buckets:   []float64{.005, .025, .1, .5, 1, 5, 30, 120},
		}, []string{"method", "route", "status"}),
	}
	m.reg.MustRegister(
		m.Classified, m.RepairStages, m.Completions, m.Upstream, m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) Classification(result string) { m.Classified.WithLabelValues(result).Inc() }
func (m *Metrics) Repair(stage string)          { m.RepairStages.WithLabelValues(stage).Inc() }
func (m *Metrics) Completion(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.Completions.WithLabelValues(outcome).Inc()
}
func (m *Metrics) UpstreamStatus(code int) { m.Upstream.WithLabelValues(strconv.Itoa(code)).Inc() }
