// Package metrics exposes prometheus counters for the chunked-transfer
// receive path. Each Collector registers against its own Registerer, so
// independent receivers never collide on metric names.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the receive-side transfer counters.
type Collector struct {
	ChunksSent         prometheus.Counter
	ChunksReceived     *prometheus.CounterVec
	TransfersCompleted prometheus.Counter
	TransfersEvicted   prometheus.Counter
	MergeFailures      prometheus.Counter
}

// NewCollector creates and registers the transfer counters. A nil
// registerer uses a private registry, which keeps tests and embedded
// receivers free of global registration conflicts.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		ChunksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "splitfile_chunks_sent_total",
			Help: "Chunks successfully handed to the transport for sending.",
		}),
		ChunksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "splitfile_chunks_received_total",
			Help: "Inbound chunk insertions by outcome.",
		}, []string{"outcome"}),
		TransfersCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "splitfile_transfers_completed_total",
			Help: "Transfers whose full chunk set was consumed from the cache.",
		}),
		TransfersEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "splitfile_transfers_evicted_total",
			Help: "Abandoned transfers removed by the expiry sweep.",
		}),
		MergeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "splitfile_merge_failures_total",
			Help: "Completed transfers whose reassembly reported an error.",
		}),
	}

	reg.MustRegister(
		c.ChunksSent,
		c.ChunksReceived,
		c.TransfersCompleted,
		c.TransfersEvicted,
		c.MergeFailures,
	)
	return c
}

// RecordOutcome increments the received-chunk counter for one insertion
// outcome label.
func (c *Collector) RecordOutcome(outcome string) {
	if c == nil {
		return
	}
	c.ChunksReceived.WithLabelValues(outcome).Inc()
}
