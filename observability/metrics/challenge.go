package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ChallengeMetrics tracks ledger activity for the challenge module.
type ChallengeMetrics struct {
	txOutcomes *prometheus.CounterVec
	fees       *prometheus.CounterVec
	payouts    *prometheus.CounterVec
	finalized  prometheus.Counter
	applyTime  *prometheus.HistogramVec

	applied metric.Int64Counter
}

var (
	challengeOnce     sync.Once
	challengeRegistry *ChallengeMetrics
)

// Challenge returns the lazily registered challenge metrics.
func Challenge() *ChallengeMetrics {
	challengeOnce.Do(func() {
		challengeRegistry = &ChallengeMetrics{
			txOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "challenge_tx_total",
				Help: "Applied transactions by type and result code.",
			}, []string{"type", "code"}),
			fees: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "challenge_fees_collected_total",
				Help: "Fees collected by kind, in token units.",
			}, []string{"kind"}),
			payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "challenge_payouts_total",
				Help: "Tokens paid out of escrows by kind.",
			}, []string{"kind"}),
			finalized: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "challenge_finalized_total",
				Help: "Challenges finalized.",
			}),
			applyTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "challenge_apply_duration_seconds",
				Help:    "Time spent applying a transaction.",
				Buckets: prometheus.DefBuckets,
			}, []string{"type"}),
		}
		prometheus.MustRegister(
			challengeRegistry.txOutcomes,
			challengeRegistry.fees,
			challengeRegistry.payouts,
			challengeRegistry.finalized,
			challengeRegistry.applyTime,
		)
		challengeRegistry.initMeter()
	})
	return challengeRegistry
}

func (m *ChallengeMetrics) initMeter() {
	meter := otel.GetMeterProvider().Meter("challengechain/ledger")
	counter, err := meter.Int64Counter("challenge.tx.applied")
	if err != nil {
		fallback := noop.NewMeterProvider().Meter("challengechain/ledger")
		counter, _ = fallback.Int64Counter("challenge.tx.applied")
	}
	m.applied = counter
}

// ObserveTx records the outcome of one transaction. code is "OK" on success.
func (m *ChallengeMetrics) ObserveTx(txType, code string, duration time.Duration) {
	if m == nil {
		return
	}
	if code == "" {
		code = "Unknown"
	}
	m.txOutcomes.WithLabelValues(txType, code).Inc()
	m.applyTime.WithLabelValues(txType).Observe(duration.Seconds())
	if m.applied != nil {
		m.applied.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("type", txType),
			attribute.String("code", code),
		))
	}
}

// RecordFee adds amount to the fee counter for kind.
func (m *ChallengeMetrics) RecordFee(kind string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.fees.WithLabelValues(kind).Add(float64(amount))
}

// RecordPayout adds amount to the payout counter for kind.
func (m *ChallengeMetrics) RecordPayout(kind string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.payouts.WithLabelValues(kind).Add(float64(amount))
}

func (m *ChallengeMetrics) RecordFinalized() {
	if m == nil {
		return
	}
	m.finalized.Inc()
}
