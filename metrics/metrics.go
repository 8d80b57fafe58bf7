// Package metrics exposes the node's Prometheus instrumentation: tree
// size and flush activity, consensus outcomes, and peer liveness.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TreeLeaves tracks the current leaf count of a named Merkle store.
	TreeLeaves = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vidasync",
		Subsystem: "tree",
		Name:      "leaves",
		Help:      "Current number of leaves in the Merkle tree.",
	}, []string{"tree"})

	// TreeFlushes counts completed flushes of a named Merkle store.
	TreeFlushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidasync",
		Subsystem: "tree",
		Name:      "flushes_total",
		Help:      "Total number of completed flush operations.",
	}, []string{"tree"})

	// ConsensusCommits counts blocks whose root hash reached quorum.
	ConsensusCommits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vidasync",
		Subsystem: "consensus",
		Name:      "commits_total",
		Help:      "Total number of blocks committed after reaching quorum.",
	})

	// ConsensusReverts counts block boundaries that failed to reach
	// quorum and were reverted.
	ConsensusReverts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vidasync",
		Subsystem: "consensus",
		Name:      "reverts_total",
		Help:      "Total number of block boundaries reverted for lack of quorum.",
	})

	// PeersAlive reports the number of configured peers not classified
	// Dead in the most recent consensus round; peers left unqueried when
	// the round commits early are counted as alive.
	PeersAlive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vidasync",
		Subsystem: "consensus",
		Name:      "peers_alive",
		Help:      "Number of peers considered alive in the most recent round.",
	})

	// PeersDead reports the number of peers classified Dead in the most
	// recent consensus round.
	PeersDead = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vidasync",
		Subsystem: "consensus",
		Name:      "peers_dead",
		Help:      "Number of peers considered dead in the most recent round.",
	})
)

func init() {
	prometheus.MustRegister(TreeLeaves, TreeFlushes, ConsensusCommits, ConsensusReverts, PeersAlive, PeersDead)
}

// Handler returns the HTTP handler serving Prometheus metrics at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
