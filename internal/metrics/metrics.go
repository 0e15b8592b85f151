package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SplitCreateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splits_create_failures_total",
		Help: "Total number of failed CreateSplit calls",
	})

	SignatureSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splits_signature_submissions_total",
			Help: "Total number of submit-signature attempts by outcome",
		},
		[]string{"outcome"},
	)

	SettlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "splits_settlement_duration_seconds",
			Help:    "Settle() latency, from request to committed post-state",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	RPCFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splits_chain_rpc_failures_total",
			Help: "Total number of chain gateway RPC failures by operation",
		},
		[]string{"operation"},
	)
)

// SettlementTimer measures one Settle() call's duration and records it
// under the outcome label on completion.
type SettlementTimer struct {
	start time.Time
}

// NewSettlementTimer starts a settlement latency measurement.
func NewSettlementTimer() *SettlementTimer {
	return &SettlementTimer{start: time.Now()}
}

// ObserveSuccess records the elapsed duration under outcome="success".
func (t *SettlementTimer) ObserveSuccess() {
	SettlementDuration.WithLabelValues("success").Observe(time.Since(t.start).Seconds())
}

// ObserveFailure records the elapsed duration under outcome="failure".
func (t *SettlementTimer) ObserveFailure() {
	SettlementDuration.WithLabelValues("failure").Observe(time.Since(t.start).Seconds())
}
