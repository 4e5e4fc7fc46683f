package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the simulation engine.
type Metrics struct {
	// Transaction pipeline
	TxProcessed  *prometheus.CounterVec
	TxFailed     *prometheus.CounterVec
	TxDuration   *prometheus.HistogramVec
	LatencyWait  prometheus.Histogram
	BlockNumber  prometheus.Gauge
	GasUsedTotal *prometheus.CounterVec

	// Store state
	Pools           prometheus.Gauge
	Positions       prometheus.Gauge
	TransactionsLog prometheus.Gauge

	// Swap behavior
	SwapBinsCrossed prometheus.Histogram
	SwapHopBound    prometheus.Counter

	// Persistence
	SnapshotSaves   prometheus.Counter
	SnapshotErrors  prometheus.Counter
	SnapshotSize    prometheus.Gauge
	SnapshotSaveDur prometheus.Histogram
}

// NewMetrics creates and registers all instruments on the default
// registry.
func NewMetrics() *Metrics {
	durationBuckets := []float64{
		0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05,
		0.1, 0.25, 0.5, 1.0, 2.0, 5.0,
	}

	return &Metrics{
		TxProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "binsim_tx_processed_total",
			Help: "Successful simulated transactions",
		}, []string{"kind"}),

		TxFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "binsim_tx_failed_total",
			Help: "Failed simulated transactions by fault kind",
		}, []string{"kind", "fault"}),

		TxDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "binsim_tx_duration_seconds",
			Help:    "End-to-end operation duration including simulated latency",
			Buckets: durationBuckets,
		}, []string{"kind"}),

		LatencyWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "binsim_latency_wait_seconds",
			Help:    "Simulated confirmation delay per operation",
			Buckets: durationBuckets,
		}),

		BlockNumber: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "binsim_block_number",
			Help: "Current simulated block number",
		}),

		GasUsedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "binsim_gas_used_total",
			Help: "Simulated gas consumed",
		}, []string{"kind"}),

		Pools: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "binsim_pools",
			Help: "Pools currently in the store",
		}),

		Positions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "binsim_positions",
			Help: "User positions currently in the store",
		}),

		TransactionsLog: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "binsim_transaction_log_entries",
			Help: "Entries in the transaction log",
		}),

		SwapBinsCrossed: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "binsim_swap_bins_crossed",
			Help:    "Bins touched per swap",
			Buckets: []float64{1, 2, 3, 5, 10, 25, 50, 100},
		}),

		SwapHopBound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "binsim_swap_hop_bound_total",
			Help: "Swaps truncated by the bin hop bound",
		}),

		SnapshotSaves: promauto.NewCounter(prometheus.CounterOpts{
			Name: "binsim_snapshot_saves_total",
			Help: "Snapshots written to Postgres",
		}),

		SnapshotErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "binsim_snapshot_errors_total",
			Help: "Snapshot save failures",
		}),

		SnapshotSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "binsim_snapshot_size_bytes",
			Help: "Size of the last written snapshot",
		}),

		SnapshotSaveDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "binsim_snapshot_save_duration_seconds",
			Help:    "Snapshot save latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
	}
}
