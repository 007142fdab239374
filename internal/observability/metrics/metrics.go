// Package metrics exposes prometheus instruments for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds application-level instruments.
type Metrics struct {
	ingestTotal    *prometheus.CounterVec
	alertsRaised   *prometheus.CounterVec
	ingestDuration prometheus.Histogram
}

// New registers the ingestion instruments on the given registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridpulse",
			Name:      "ingest_total",
			Help:      "Ingestion attempts by outcome.",
		}, []string{"outcome"}),
		alertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridpulse",
			Name:      "alerts_raised_total",
			Help:      "Alerts raised by type.",
		}, []string{"type"}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridpulse",
			Name:      "ingest_duration_seconds",
			Help:      "Ingestion pipeline latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.ingestTotal, m.alertsRaised, m.ingestDuration} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}
	return m, nil
}

// RecordIngest counts one ingestion attempt with its outcome
// (accepted, duplicate, invalid_timestamp, malformed, error).
func (m *Metrics) RecordIngest(outcome string) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(outcome).Inc()
}

// RecordAlertRaised counts one newly raised alert.
func (m *Metrics) RecordAlertRaised(alertType string) {
	if m == nil {
		return
	}
	m.alertsRaised.WithLabelValues(alertType).Inc()
}

// ObserveIngestDuration records pipeline latency in seconds.
func (m *Metrics) ObserveIngestDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ingestDuration.Observe(seconds)
}
