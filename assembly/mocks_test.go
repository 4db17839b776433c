package assembly

import (
	"context"
	"errors"
	"time"

	"github.com/sioaeko/splitfile/chunk"
	"github.com/sioaeko/splitfile/transport"
)

// mockTimeProvider provides deterministic time for testing.
type mockTimeProvider struct {
	currentTime time.Time
}

func newMockTimeProvider() *mockTimeProvider {
	return &mockTimeProvider{
		currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockTimeProvider) Now() time.Time {
	return m.currentTime
}

func (m *mockTimeProvider) Since(t time.Time) time.Duration {
	return m.currentTime.Sub(t)
}

func (m *mockTimeProvider) advance(d time.Duration) {
	m.currentTime = m.currentTime.Add(d)
}

// mockResolver implements transport.Resolver over a fixed ref->payload map,
// with optional per-ref failures.
type mockResolver struct {
	payloads map[transport.PayloadRef][]byte
	failRefs map[transport.PayloadRef]error
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		payloads: make(map[transport.PayloadRef][]byte),
		failRefs: make(map[transport.PayloadRef]error),
	}
}

func (m *mockResolver) ResolvePayload(_ context.Context, ref transport.PayloadRef) ([]byte, error) {
	if err, ok := m.failRefs[ref]; ok {
		return nil, err
	}
	payload, ok := m.payloads[ref]
	if !ok {
		return nil, transport.ErrPayloadExpired
	}
	return payload, nil
}

var errNetworkDown = errors.New("network down")

// metaFor builds chunk metadata for tests sharing one object key.
func metaFor(key string, index, total int, size int64) chunk.Metadata {
	return chunk.Metadata{
		Kind:       chunk.Kind,
		Index:      index,
		Total:      total,
		ObjectKey:  key,
		ObjectSize: size,
		Timestamp:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		Name:       "object.bin",
	}
}
