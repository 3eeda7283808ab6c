package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	emitted   *prometheus.CounterVec
	transfers *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking emitted ledger events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "challenge",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of committed events by type.",
			}, []string{"type"}),
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "challenge",
				Subsystem: "events",
				Name:      "transfers_total",
				Help:      "Count of plain transfers segmented by denomination.",
			}, []string{"denom"}),
		}
		prometheus.MustRegister(eventRegistry.emitted, eventRegistry.transfers)
	})
	return eventRegistry
}

// RecordEvent counts one committed event.
func (m *eventMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.emitted.WithLabelValues(eventType).Inc()
}

// RecordTransfer increments the transfer counter for the supplied denomination.
func (m *eventMetrics) RecordTransfer(denom string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(denom))
	if normalized == "" {
		normalized = "unknown"
	}
	m.transfers.WithLabelValues(normalized).Inc()
}
