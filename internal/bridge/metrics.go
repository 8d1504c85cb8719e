package bridge

import "github.com/prometheus/client_golang/prometheus"

var (
	bridgeCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tjbridge",
			Subsystem: "bridge",
			Name:      "calls_total",
			Help:      "Native calls made through the gateway",
		},
		[]string{"method", "outcome"},
	)

	bridgeCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tjbridge",
			Subsystem: "bridge",
			Name:      "call_duration_seconds",
			Help:      "Duration of native calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	subscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tjbridge",
			Subsystem: "bridge",
			Name:      "subscriptions_active",
			Help:      "Live event subscriptions",
		},
	)

	envelopesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tjbridge",
			Subsystem: "bridge",
			Name:      "envelopes_total",
			Help:      "Native event envelopes by routing result",
		},
		[]string{"channel", "result"},
	)

	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tjbridge",
			Subsystem: "bridge",
			Name:      "operations_total",
			Help:      "Finished asynchronous operations by outcome",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(bridgeCallsTotal, bridgeCallDuration, subscriptionsActive, envelopesTotal, operationsTotal)
}
