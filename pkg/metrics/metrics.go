// Package metrics exposes Prometheus counters for processed instructions.
package metrics

import (
	"net/http"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "elysium"

// Metrics holds the instruction metrics of one program instance.
type Metrics struct {
	registry *prometheus.Registry

	InstructionsTotal   *prometheus.CounterVec
	InstructionDuration *prometheus.HistogramVec
	FeesCollected       *prometheus.CounterVec
	RewardsCollected    prometheus.Counter
	LastTimestamp       prometheus.Gauge
}

// New registers every metric on a fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		InstructionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "program",
			Name:      "instructions_total",
			Help:      "Instructions processed by name and result",
		}, []string{"instruction", "result"}),
		InstructionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "program",
			Name:      "instruction_duration_seconds",
			Help:      "Time spent computing and committing an instruction",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"instruction"}),
		FeesCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "program",
			Name:      "fees_collected_total",
			Help:      "Raw token amounts paid out as fees",
		}, []string{"kind", "token"}),
		RewardsCollected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "program",
			Name:      "rewards_collected_total",
			Help:      "Raw reward token amounts paid out",
		}),
		LastTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "program",
			Name:      "last_timestamp_seconds",
			Help:      "Timestamp of the last applied instruction",
		}),
	}
}

// ObserveInstruction records one instruction outcome. Rejections are labelled
// with the error code name.
func (m *Metrics) ObserveInstruction(name string, err error, seconds float64) {
	m.InstructionsTotal.WithLabelValues(name, Result(err)).Inc()
	m.InstructionDuration.WithLabelValues(name).Observe(seconds)
}

// Result maps an instruction error to a metric label.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := errs.Code(err); ok {
		return code.Name()
	}
	return "error"
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
