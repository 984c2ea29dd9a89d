package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "uniformauction_operations_total",
		Help: "Requests handled, by type and outcome code.",
	},
	[]string{"op", "result"},
)

var auctionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "uniformauction_auctions",
	Help: "Auctions in the registry.",
})

var finalizeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "uniformauction_finalize_seconds",
	Help:    "Time spent settling an auction, including receipt signing.",
	Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
})

var eventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "uniformauction_events_total",
		Help: "Auction events emitted, by kind.",
	},
	[]string{"kind"},
)

var rejectedConnections = promauto.NewCounter(prometheus.CounterOpts{
	Name: "uniformauction_rejected_connections_total",
	Help: "Connections closed because every worker was busy.",
})

func observeOperation(op string, result string) {
	operationsTotal.WithLabelValues(op, result).Inc()
}
