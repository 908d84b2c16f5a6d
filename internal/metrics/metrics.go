// Package metrics exposes allocation outcomes and bed occupancy to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackgods/carehome-allocation/internal/beds"
	"github.com/hackgods/carehome-allocation/internal/care"
)

const namespace = "carehome"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	bedsTotal  *prometheus.GaugeVec
	bedsUsed   *prometheus.GaugeVec
	violations prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Allocation and scheduling operations by outcome.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent in allocation and scheduling operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		bedsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "beds_total",
			Help:      "Beds per ward.",
		}, []string{"ward"}),
		bedsUsed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "beds_occupied",
			Help:      "Occupied beds per ward.",
		}, []string{"ward"}),
		violations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compliance_violations",
			Help:      "Violations found by the last compliance sweep.",
		}),
	}
	reg.MustRegister(m.operations, m.latency, m.bedsTotal, m.bedsUsed, m.violations)
	return m
}

// ObserveOperation counts one operation under the error kind it ended with.
func (m *Metrics) ObserveOperation(op string, err error, took time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, care.KindOf(err)).Inc()
	m.latency.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) SetCensus(census []beds.WardCensus) {
	if m == nil {
		return
	}
	for _, w := range census {
		m.bedsTotal.WithLabelValues(w.WardID).Set(float64(w.Total))
		m.bedsUsed.WithLabelValues(w.WardID).Set(float64(w.Occupied))
	}
}

func (m *Metrics) SetViolations(n int) {
	if m == nil {
		return
	}
	m.violations.Set(float64(n))
}
