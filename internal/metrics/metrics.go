// Package metrics exposes NetSeek's Prometheus instrumentation: probe and
// scan counters plus scan duration, served on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Probe result label values.
const (
	ResultMatch = "match"
	ResultMiss  = "miss"
)

// Scan outcome label values.
const (
	OutcomeCompleted = "completed"
	OutcomeEmpty     = "empty"
	OutcomeError     = "error"
)

// Metrics bundles all collectors on a private registry so tests can create
// them without global-registration collisions.
type Metrics struct {
	registry *prometheus.Registry

	ProbesTotal    *prometheus.CounterVec
	ScansTotal     *prometheus.CounterVec
	ScanDuration   prometheus.Histogram
	InstancesFound prometheus.Counter
}

// New creates a Metrics set with its own registry, including the standard
// Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netseek",
			Subsystem: "sweep",
			Name:      "probes_total",
			Help:      "Host probes issued, by result.",
		}, []string{"result"}),
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netseek",
			Subsystem: "sweep",
			Name:      "scans_total",
			Help:      "Subnet scans run, by outcome.",
		}, []string{"outcome"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "netseek",
			Subsystem: "sweep",
			Name:      "scan_duration_seconds",
			Help:      "Wall-clock duration of completed scans.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		InstancesFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "netseek",
			Subsystem: "sweep",
			Name:      "instances_found_total",
			Help:      "Instances discovered across all scans.",
		}),
	}
}

// Handler returns the HTTP handler serving this metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
