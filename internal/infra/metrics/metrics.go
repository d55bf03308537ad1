// Package metrics holds the prometheus counters incremented by the domain
// services and scraped via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldstock_movements_total",
		Help: "Stock movements written to the ledger, by movement kind.",
	}, []string{"kind"})

	BatchConsumptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldstock_batch_consumptions_total",
		Help: "Committed batch consumption calls.",
	})

	SnapshotsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldstock_snapshots_created_total",
		Help: "Order snapshots persisted.",
	})

	ReconfigurationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldstock_reconfigurations_total",
		Help: "Committed crew reconfigurations.",
	})
)
