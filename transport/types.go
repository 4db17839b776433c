package transport

import (
	"context"
	"errors"

	"github.com/sioaeko/splitfile/chunk"
)

// PayloadRef is an opaque receiver-side handle for a chunk payload. The
// adapter that produced it can resolve it to raw bytes on demand, so the
// core never holds large buffers before assembly is certain to proceed.
type PayloadRef string

// ErrPayloadExpired indicates a payload reference that is unknown to the
// adapter or has already been consumed.
var ErrPayloadExpired = errors.New("payload reference expired or unknown")

// Sender transmits one chunk over the host messaging channel. Sends are
// awaited one at a time by the orchestrator; implementations do not need
// to support concurrent calls for a single transfer.
type Sender interface {
	// SendChunk transmits one chunk's metadata and payload bytes.
	SendChunk(ctx context.Context, meta chunk.Metadata, payload []byte) error
}

// Resolver fetches the raw bytes behind a payload reference obtained from
// an incoming chunk.
type Resolver interface {
	// ResolvePayload returns the payload bytes for ref. It may fail with
	// ErrPayloadExpired or a network error from the underlying channel.
	ResolvePayload(ctx context.Context, ref PayloadRef) ([]byte, error)
}

// Discarder is an optional interface adapters implement when payload
// storage should be released for references the receiver will never
// resolve, such as chunks of an evicted transfer.
type Discarder interface {
	// DiscardPayload releases any storage behind ref. Unknown references
	// are ignored.
	DiscardPayload(ref PayloadRef)
}

// DeliverFunc is the receive-side entry point an adapter invokes once per
// incoming chunk-shaped message: the raw metadata record and a reference
// to the accompanying payload.
type DeliverFunc func(metadata []byte, ref PayloadRef)
