package app

import (
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "guild"

// Registered on the default registry, which the CometBFT instrumentation
// server exposes when prometheus is enabled in config.toml.
var (
	txResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "app",
		Name:      "tx_results_total",
		Help:      "Finalized transactions by type and result code.",
	}, []string{"type", "code"})

	droppedTxs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "app",
		Name:      "dropped_txs_total",
		Help:      "Transactions left out of a block proposal.",
	}, []string{"stage"})

	emittedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "app",
		Name:      "events_total",
		Help:      "Contract events emitted by finalized transactions.",
	}, []string{"event"})

	blockTxs = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "app",
		Name:      "block_txs",
		Help:      "Transactions per finalized block.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	finalizeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "app",
		Name:      "finalize_block_seconds",
		Help:      "Time spent executing a block in FinalizeBlock.",
		Buckets:   prometheus.DefBuckets,
	})

	committedHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "app",
		Name:      "committed_height",
		Help:      "Height of the last committed state.",
	})
)

func codeLabel(code uint32) string {
	if code == 0 {
		return "ok"
	}
	return "rejected"
}

func observeTxResult(txType string, res *abcitypes.ExecTxResult) {
	txResults.WithLabelValues(txType, codeLabel(res.Code)).Inc()
	for _, ev := range res.Events {
		emittedEvents.WithLabelValues(ev.Type).Inc()
	}
}
