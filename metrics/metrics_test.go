package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollectorRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ChunksSent.Inc()
	c.RecordOutcome("accepted")
	c.RecordOutcome("accepted")
	c.RecordOutcome("rejected")
	c.TransfersCompleted.Inc()

	if got := testutil.ToFloat64(c.ChunksSent); got != 1 {
		t.Errorf("chunks sent = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.ChunksReceived.WithLabelValues("accepted")); got != 2 {
		t.Errorf("accepted chunks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.ChunksReceived.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected chunks = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("no metric families registered")
	}
}

func TestNewCollectorNilRegisterer(t *testing.T) {
	// private registry fallback: two collectors must not panic on
	// duplicate registration
	a := NewCollector(nil)
	b := NewCollector(nil)
	a.ChunksSent.Inc()
	b.ChunksSent.Inc()
}

func TestRecordOutcomeNilCollector(t *testing.T) {
	var c *Collector
	c.RecordOutcome("accepted") // must not panic
}
