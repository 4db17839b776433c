// Package assembly implements the receive side of chunked transfers: a
// per-object cache of received chunk records with idempotent insertion,
// completeness detection, and age-based eviction, plus the reassembler
// that merges a complete chunk set back into the original object.
package assembly

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sioaeko/splitfile/chunk"
	"github.com/sioaeko/splitfile/transport"
)

// ErrTotalConflict indicates a chunk whose total disagrees with the entry
// already stored for its object key.
var ErrTotalConflict = errors.New("chunk total conflicts with existing entry")

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// Record is one received chunk: its metadata and the reference through
// which the transport resolves the payload bytes. ReceivedAt is the local
// receive clock, never the remote timestamp, so clock skew between peers
// cannot distort cache aging.
type Record struct {
	Meta       chunk.Metadata
	PayloadRef transport.PayloadRef
	ReceivedAt time.Time
}

// Outcome reports how the cache handled an insertion.
type Outcome uint8

const (
	// OutcomeAccepted means the chunk was stored.
	OutcomeAccepted Outcome = iota
	// OutcomeDuplicate means the index was already stored; absorbed as a
	// no-op, not an error.
	OutcomeDuplicate
	// OutcomeRejected means the chunk conflicts with its entry or fails
	// metadata validation.
	OutcomeRejected
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// entry accumulates the chunks of one object key.
type entry struct {
	total       int
	records     map[int]Record
	lastUpdated time.Time
}

// Eviction describes one entry removed by an expiry sweep: the object key
// for logging and metrics, and the payload references the transport can
// now release.
type Eviction struct {
	Key  string
	Refs []transport.PayloadRef
}

// Cache is the assembly cache: per-object-key storage of received chunk
// records. It owns the only shared mutable state in the core; insert,
// completeness checks, removal, and the expiry sweep all run under one
// mutex so an entry can never be evicted mid-completion.
//
// A Cache is an explicitly constructed instance with its own lifetime.
// Independent channels get independent caches.
type Cache struct {
	mu           sync.Mutex
	entries      map[string]*entry
	timeProvider TimeProvider
}

// NewCache creates an empty assembly cache.
func NewCache() *Cache {
	return &Cache{
		entries:      make(map[string]*entry),
		timeProvider: DefaultTimeProvider{},
	}
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (c *Cache) SetTimeProvider(tp TimeProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeProvider = tp
}

// Insert stores one received chunk. The first chunk for an unseen object
// key creates its entry; later chunks must agree with the stored total.
// Redelivery of an already-stored index is absorbed as OutcomeDuplicate
// without refreshing the entry's age.
//
// The returned error is non-nil only for OutcomeRejected.
func (c *Cache) Insert(meta chunk.Metadata, ref transport.PayloadRef) (Outcome, error) {
	if err := meta.Validate(); err != nil {
		return OutcomeRejected, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.timeProvider.Now()

	e, exists := c.entries[meta.ObjectKey]
	if !exists {
		// no capacity hint: the total is remote-controlled, so the map
		// grows with chunks actually received instead
		e = &entry{
			total:   meta.Total,
			records: make(map[int]Record),
		}
		c.entries[meta.ObjectKey] = e
		logrus.WithFields(logrus.Fields{
			"function":   "Insert",
			"object_key": meta.ObjectKey,
			"total":      meta.Total,
		}).Debug("Assembly entry created")
	}

	if meta.Total != e.total {
		logrus.WithFields(logrus.Fields{
			"function":     "Insert",
			"object_key":   meta.ObjectKey,
			"stored_total": e.total,
			"chunk_total":  meta.Total,
		}).Warn("Conflicting chunk total, dropping chunk")
		return OutcomeRejected, fmt.Errorf("%w: stored %d, got %d", ErrTotalConflict, e.total, meta.Total)
	}

	if _, dup := e.records[meta.Index]; dup {
		return OutcomeDuplicate, nil
	}

	e.records[meta.Index] = Record{
		Meta:       meta,
		PayloadRef: ref,
		ReceivedAt: now,
	}
	e.lastUpdated = now

	return OutcomeAccepted, nil
}

// IsComplete reports whether every chunk for the object key has arrived.
func (c *Cache) IsComplete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	return exists && len(e.records) == e.total
}

// TakeComplete atomically removes and returns the full chunk set for the
// object key if it is complete. An incomplete or unknown entry is left
// untouched. Completion is consumed at most once: concurrent callers see
// exactly one success.
func (c *Cache) TakeComplete(key string) ([]Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists || len(e.records) != e.total {
		return nil, false
	}

	delete(c.entries, key)

	records := make([]Record, 0, len(e.records))
	for _, rec := range e.records {
		records = append(records, rec)
	}
	return records, true
}

// EvictExpired removes every entry whose last accepted insertion is older
// than the expiry window, returning the evicted keys and the payload
// references the transport may now release.
func (c *Cache) EvictExpired(window time.Duration) []Eviction {
	c.mu.Lock()
	defer c.mu.Unlock()

	var evicted []Eviction
	for key, e := range c.entries {
		if c.timeProvider.Since(e.lastUpdated) <= window {
			continue
		}

		refs := make([]transport.PayloadRef, 0, len(e.records))
		for _, rec := range e.records {
			refs = append(refs, rec.PayloadRef)
		}
		delete(c.entries, key)
		evicted = append(evicted, Eviction{Key: key, Refs: refs})

		logrus.WithFields(logrus.Fields{
			"function":   "EvictExpired",
			"object_key": key,
			"stored":     len(refs),
			"total":      e.total,
			"age":        c.timeProvider.Since(e.lastUpdated),
		}).Info("Evicted abandoned transfer")
	}
	return evicted
}

// Pending reports how many chunks are stored for the object key and the
// entry's expected total.
func (c *Cache) Pending(key string) (stored, total int, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, 0, false
	}
	return len(e.records), e.total, true
}

// Len reports how many assembly entries the cache holds.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
