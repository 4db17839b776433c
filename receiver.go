package splitfile

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sioaeko/splitfile/assembly"
	"github.com/sioaeko/splitfile/chunk"
	"github.com/sioaeko/splitfile/metrics"
	"github.com/sioaeko/splitfile/transport"
)

// Insertion outcomes, re-exported so hosts driving Deliver do not need
// to import the assembly package for the vocabulary.
const (
	OutcomeAccepted  = assembly.OutcomeAccepted
	OutcomeDuplicate = assembly.OutcomeDuplicate
	OutcomeRejected  = assembly.OutcomeRejected
)

// Receiver drives the receive path: classify incoming messages, insert
// chunk records into the assembly cache, detect completion, and apply
// the delivery policy. It owns the background eviction sweep for
// abandoned transfers.
//
// Each Receiver owns its assembly cache instance; independent channels
// get independent receivers.
type Receiver struct {
	opts      *Options
	cache     *assembly.Cache
	merger    *assembly.Merger
	resolver  transport.Resolver
	collector *metrics.Collector

	mu               sync.Mutex
	objectCallback   func(obj *assembly.Object, err error)
	completeCallback func(records []assembly.Record)

	sweepMu sync.Mutex
	stop    chan struct{}
	done    chan struct{}
}

// NewReceiver creates a receiver resolving payloads through the given
// transport. Nil options use NewOptions defaults.
func NewReceiver(resolver transport.Resolver, opts *Options) (*Receiver, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	collector := opts.Metrics
	if collector == nil {
		collector = metrics.NewCollector(nil)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "NewReceiver",
		"expiry_window":  opts.ExpiryWindow,
		"sweep_interval": opts.SweepInterval,
		"auto_deliver":   opts.AutoDeliver,
	}).Info("Creating receiver")

	return &Receiver{
		opts:      opts,
		cache:     assembly.NewCache(),
		merger:    assembly.NewMerger(resolver),
		resolver:  resolver,
		collector: collector,
	}, nil
}

// OnObject sets the callback receiving reconstructed objects under the
// auto-deliver policy. The error is non-nil for merge failures; for a
// size mismatch both the object and the error are delivered.
func (r *Receiver) OnObject(fn func(obj *assembly.Object, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objectCallback = fn
}

// OnComplete sets the callback receiving the consumed chunk records of a
// completed transfer when auto-deliver is disabled. The records have
// already been removed from the cache; the caller decides whether to
// Assemble them.
func (r *Receiver) OnComplete(fn func(records []assembly.Record)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeCallback = fn
}

// Deliver is the entry point the host transport calls once per incoming
// message. Anything that is not a chunk-shaped record is silently
// ignored; the channel carries unrelated traffic. Cache mutation is
// synchronous with this call.
func (r *Receiver) Deliver(metadata []byte, ref transport.PayloadRef) {
	meta, ok := chunk.Parse(metadata)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "Deliver",
			"size":     len(metadata),
		}).Debug("Ignoring unrelated message")
		// the adapter stored the payload before classification
		r.discard(ref)
		return
	}

	outcome, err := r.cache.Insert(meta, ref)
	r.collector.RecordOutcome(outcome.String())

	switch outcome {
	case OutcomeRejected:
		// structurally valid chunk traffic with conflicting or
		// out-of-range fields: reported, dropped, never raised
		logrus.WithFields(logrus.Fields{
			"function":   "Deliver",
			"object_key": meta.ObjectKey,
			"index":      meta.Index,
			"total":      meta.Total,
			"error":      err.Error(),
		}).Warn("Dropping conflicting chunk")
		r.discard(ref)
		return
	case OutcomeDuplicate:
		logrus.WithFields(logrus.Fields{
			"function":   "Deliver",
			"object_key": meta.ObjectKey,
			"index":      meta.Index,
		}).Debug("Duplicate chunk absorbed")
		r.discard(ref)
		return
	}

	if !r.cache.IsComplete(meta.ObjectKey) {
		return
	}
	records, taken := r.cache.TakeComplete(meta.ObjectKey)
	if !taken {
		// another deliver consumed the completion first
		return
	}
	r.collector.TransfersCompleted.Inc()

	logrus.WithFields(logrus.Fields{
		"function":   "Deliver",
		"object_key": meta.ObjectKey,
		"total":      meta.Total,
	}).Info("Transfer complete")

	if !r.opts.AutoDeliver {
		r.mu.Lock()
		fn := r.completeCallback
		r.mu.Unlock()
		if fn == nil {
			logrus.WithFields(logrus.Fields{
				"function":   "Deliver",
				"object_key": meta.ObjectKey,
			}).Warn("Transfer completed with no completion callback, records dropped")
			r.discardRecords(records)
			return
		}
		fn(records)
		return
	}

	obj, mergeErr := r.Assemble(context.Background(), records)
	r.mu.Lock()
	fn := r.objectCallback
	r.mu.Unlock()
	if fn == nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Deliver",
			"object_key": meta.ObjectKey,
		}).Warn("Transfer completed with no object callback, object dropped")
		return
	}
	fn(obj, mergeErr)
}

// Assemble merges a consumed chunk set into the reconstructed object.
// The records were removed from the cache when the transfer completed,
// so a failed merge cannot be retried from the receive side; the sender
// must restart the transfer. The payload references are released either
// way.
func (r *Receiver) Assemble(ctx context.Context, records []assembly.Record) (*assembly.Object, error) {
	obj, err := r.merger.Merge(ctx, records)
	if err != nil {
		r.collector.MergeFailures.Inc()
	}
	r.discardRecords(records)
	return obj, err
}

// Start launches the background eviction sweep. It runs every
// SweepInterval until Stop is called.
func (r *Receiver) Start() {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()
	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(r.opts.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-stop:
				return
			}
		}
	}(r.stop, r.done)
}

// Stop halts the background eviction sweep and waits for it to exit.
func (r *Receiver) Stop() {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()
	if r.stop == nil {
		return
	}
	close(r.stop)
	<-r.done
	r.stop = nil
	r.done = nil
}

// Sweep evicts every assembly entry whose last accepted chunk is older
// than the expiry window, releasing their payload references. It is
// called periodically by the background sweep and may be called directly
// by hosts that drive their own timer.
func (r *Receiver) Sweep() int {
	evicted := r.cache.EvictExpired(r.opts.ExpiryWindow)
	for _, ev := range evicted {
		r.collector.TransfersEvicted.Inc()
		for _, ref := range ev.Refs {
			r.discard(ref)
		}
	}
	return len(evicted)
}

// PendingTransfers reports how many incomplete transfers the cache holds.
func (r *Receiver) PendingTransfers() int {
	return r.cache.Len()
}

func (r *Receiver) discard(ref transport.PayloadRef) {
	if d, ok := r.resolver.(transport.Discarder); ok {
		d.DiscardPayload(ref)
	}
}

func (r *Receiver) discardRecords(records []assembly.Record) {
	for _, rec := range records {
		r.discard(rec.PayloadRef)
	}
}
