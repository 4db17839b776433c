package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sioaeko/splitfile/chunk"
)

// Loopback is an in-process transport adapter that delivers sent chunks
// directly to a registered deliver callback. Payload bytes are held in an
// in-memory store keyed by minted references until resolved or discarded.
//
// It backs the runnable example and end-to-end tests; a real host wires
// its own channel adapter instead.
type Loopback struct {
	mu       sync.Mutex
	payloads map[PayloadRef][]byte
	deliver  DeliverFunc
}

// NewLoopback creates a loopback adapter with an empty payload store.
func NewLoopback() *Loopback {
	return &Loopback{
		payloads: make(map[PayloadRef][]byte),
	}
}

// OnDeliver registers the callback invoked once per sent chunk. Chunks
// sent while no callback is registered are dropped, mirroring a channel
// with no listener.
func (l *Loopback) OnDeliver(fn DeliverFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deliver = fn
}

// SendChunk encodes the metadata, stores a copy of the payload under a
// fresh reference, and invokes the deliver callback synchronously.
func (l *Loopback) SendChunk(ctx context.Context, meta chunk.Metadata, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := chunk.Encode(meta)
	if err != nil {
		return err
	}

	ref := PayloadRef(uuid.NewString())
	stored := make([]byte, len(payload))
	copy(stored, payload)

	l.mu.Lock()
	l.payloads[ref] = stored
	deliver := l.deliver
	l.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "SendChunk",
		"object_key": meta.ObjectKey,
		"index":      meta.Index,
		"total":      meta.Total,
		"attachment": chunk.PartName(meta.Name, meta.Index, meta.Total),
		"size":       len(payload),
	}).Debug("Loopback chunk delivered")

	if deliver != nil {
		deliver(data, ref)
	}
	return nil
}

// ResolvePayload returns the stored payload bytes for ref. The reference
// stays valid until discarded, so a failed merge can be diagnosed without
// the payloads disappearing underneath it.
func (l *Loopback) ResolvePayload(ctx context.Context, ref PayloadRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	payload, exists := l.payloads[ref]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPayloadExpired, ref)
	}

	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// DiscardPayload releases the storage behind ref.
func (l *Loopback) DiscardPayload(ref PayloadRef) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.payloads, ref)
}

// PendingPayloads reports how many unresolved payloads the store holds.
func (l *Loopback) PendingPayloads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.payloads)
}
