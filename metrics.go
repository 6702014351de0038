package valid

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gate outcomes recorded in the requests counter.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeMalformed = "malformed"
	OutcomeSkipped   = "skipped"
)

// Metrics holds the Prometheus collectors gates report to. A nil *Metrics
// records nothing.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec
	ViolationsTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers all gate metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Subsystem: "gate",
				Name:      "requests_total",
				Help:      "Total number of requests seen by a validation gate",
			},
			[]string{"gate", "outcome"},
		),
		ValidationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "schemagate",
				Subsystem: "gate",
				Name:      "validation_duration_seconds",
				Help:      "Time spent parsing and validating request payloads",
				Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
			},
			[]string{"gate"},
		),
		ViolationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Subsystem: "gate",
				Name:      "violations_total",
				Help:      "Total schema violations reported, by failed constraint",
			},
			[]string{"gate", "constraint"},
		),
	}
}

func (m *Metrics) observe(gate, outcome string, elapsed time.Duration, violations Violations) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(gate, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.ValidationDuration.WithLabelValues(gate).Observe(elapsed.Seconds())
	}
	for _, v := range violations {
		m.ViolationsTotal.WithLabelValues(gate, v.Constraint).Inc()
	}
}
