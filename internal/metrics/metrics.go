// Package metrics exposes the engine's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Completed settlements by payment status.",
	}, []string{"payment_status"})

	SettlementConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_conflicts_total",
		Help: "Settlement attempts retried after an optimistic lock conflict.",
	})

	SettledAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settled_amount_minor_units_total",
		Help: "Sum of net amounts settled, in minor currency units.",
	})
)
