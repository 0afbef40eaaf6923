package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the intake self-instrumentation surface: frame and record
// tallies plus the malformed-frame counter keyed by exporter and reason.
type Metrics struct {
	Datagrams   *prometheus.CounterVec
	Records     *prometheus.CounterVec
	ParseErrors *prometheus.CounterVec
}

// NewMetrics registers the intake counters on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Datagrams: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fastnetmon_telemetry_datagrams_total",
			Help: "Datagrams received per telemetry listener.",
		}, []string{"listener"}),
		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fastnetmon_telemetry_records_total",
			Help: "Normalised packet records produced per telemetry listener.",
		}, []string{"listener"}),
		ParseErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fastnetmon_telemetry_parse_errors_total",
			Help: "Malformed frames dropped, by exporter source and reason.",
		}, []string{"source", "reason"}),
	}
}
