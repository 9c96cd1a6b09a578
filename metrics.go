package wabisabi

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "wabisabi"

// Metrics are the coordinator side counters of a CredentialIssuer.
// One Metrics value is meant to be shared by the issuers of consecutive rounds.
type Metrics struct {
	Requests             *prometheus.CounterVec
	Balance              prometheus.Gauge
	SerialNumbers        prometheus.Gauge
	VerificationDuration prometheus.Histogram
}

// NewMetrics registers the issuer metrics with reg, a nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "issuer",
			Name:      "requests_total",
			Help:      "Registration requests handled, by request kind and result.",
		}, []string{"kind", "result"}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "issuer",
			Name:      "balance",
			Help:      "Sum of committed delta amounts in the current round.",
		}),
		SerialNumbers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "issuer",
			Name:      "serial_numbers",
			Help:      "Serial numbers spent in the current round.",
		}),
		VerificationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "issuer",
			Name:      "verification_duration_seconds",
			Help:      "Time spent verifying the proofs of one request.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Balance, m.SerialNumbers, m.VerificationDuration)
	}
	return m
}
