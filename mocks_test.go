package splitfile

import (
	"context"
	"errors"
	"sync"

	"github.com/sioaeko/splitfile/chunk"
	"github.com/sioaeko/splitfile/transport"
)

var errQuotaExceeded = errors.New("quota exceeded")

// sentChunk records one chunk handed to the mock transport.
type sentChunk struct {
	meta    chunk.Metadata
	payload []byte
}

// mockChunkSender implements transport.Sender, recording every send and
// optionally failing at a fixed index.
type mockChunkSender struct {
	mu       sync.Mutex
	sent     []sentChunk
	failAt   int // index to fail at, -1 for never
	failWith error

	// afterSend runs after each successful send.
	afterSend func(meta chunk.Metadata)
}

func newMockChunkSender() *mockChunkSender {
	return &mockChunkSender{failAt: -1}
}

func (m *mockChunkSender) SendChunk(ctx context.Context, meta chunk.Metadata, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if meta.Index == m.failAt {
		err := m.failWith
		if err == nil {
			err = errQuotaExceeded
		}
		return err
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)
	m.mu.Lock()
	m.sent = append(m.sent, sentChunk{meta: meta, payload: stored})
	m.mu.Unlock()

	if m.afterSend != nil {
		m.afterSend(meta)
	}
	return nil
}

func (m *mockChunkSender) sentChunks() []sentChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentChunk, len(m.sent))
	copy(out, m.sent)
	return out
}

// mockDiscardResolver implements transport.Resolver and transport.Discarder,
// recording every released payload reference.
type mockDiscardResolver struct {
	mu        sync.Mutex
	discarded []transport.PayloadRef
}

func (m *mockDiscardResolver) ResolvePayload(_ context.Context, ref transport.PayloadRef) ([]byte, error) {
	return nil, transport.ErrPayloadExpired
}

func (m *mockDiscardResolver) DiscardPayload(ref transport.PayloadRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded = append(m.discarded, ref)
}

func (m *mockDiscardResolver) discardedRefs() []transport.PayloadRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]transport.PayloadRef, len(m.discarded))
	copy(out, m.discarded)
	return out
}

// testOptions returns options sized for small in-memory test objects.
func testOptions() *Options {
	opts := NewOptions()
	opts.ChunkSize = 10
	opts.MaxAttachmentSize = 64
	return opts
}
