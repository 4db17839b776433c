package assembly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/sioaeko/splitfile/transport"
)

var (
	// ErrIncompleteSet indicates the chunk set does not form the exact
	// contiguous index range [0, total). The cache guarantees this never
	// happens; seeing it means a defect, not a transfer failure.
	ErrIncompleteSet = errors.New("chunk set is not a contiguous range")

	// ErrPayloadUnavailable indicates a chunk payload could not be
	// resolved through the transport.
	ErrPayloadUnavailable = errors.New("chunk payload unavailable")

	// ErrSizeMismatch indicates the reassembled size differs from the
	// declared object size. The assembled object is still returned.
	ErrSizeMismatch = errors.New("reassembled size differs from declared size")
)

// Object is a reconstructed transfer result.
type Object struct {
	Name string
	Key  string
	Size int64
	Data []byte
}

// Merger reassembles a complete chunk set into the original object,
// resolving each payload through the transport in index order.
type Merger struct {
	resolver transport.Resolver
}

// NewMerger creates a merger backed by the given payload resolver.
func NewMerger(resolver transport.Resolver) *Merger {
	return &Merger{resolver: resolver}
}

// Merge orders the records by index, re-checks contiguity, resolves each
// payload, and concatenates the bytes.
//
// A payload resolution failure aborts the merge with ErrPayloadUnavailable
// before any partial object escapes. A size mismatch returns the assembled
// object together with ErrSizeMismatch: already-assembled data is not
// destroyed over a sanity-check warning.
func (m *Merger) Merge(ctx context.Context, records []Record) (*Object, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty record set", ErrIncompleteSet)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Meta.Index < records[j].Meta.Index
	})

	total := records[0].Meta.Total
	if len(records) != total {
		return nil, fmt.Errorf("%w: %d records, total %d", ErrIncompleteSet, len(records), total)
	}
	for i, rec := range records {
		if rec.Meta.Index != i {
			return nil, fmt.Errorf("%w: gap at index %d", ErrIncompleteSet, i)
		}
	}

	meta := records[0].Meta

	var buf bytes.Buffer
	if meta.ObjectSize > 0 {
		buf.Grow(int(meta.ObjectSize))
	}
	for _, rec := range records {
		payload, err := m.resolver.ResolvePayload(ctx, rec.PayloadRef)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %w", ErrPayloadUnavailable, rec.Meta.Index, err)
		}
		buf.Write(payload)
	}

	name := meta.Name
	if name == "" {
		name = meta.ObjectKey
	}
	obj := &Object{
		Name: name,
		Key:  meta.ObjectKey,
		Size: int64(buf.Len()),
		Data: buf.Bytes(),
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Merge",
		"object_key": obj.Key,
		"name":       obj.Name,
		"total":      total,
		"size":       obj.Size,
	}).Info("Chunk set reassembled")

	if obj.Size != meta.ObjectSize {
		logrus.WithFields(logrus.Fields{
			"function":      "Merge",
			"object_key":    obj.Key,
			"assembled":     obj.Size,
			"declared_size": meta.ObjectSize,
		}).Warn("Reassembled size differs from declared size")
		return obj, fmt.Errorf("%w: assembled %d, declared %d", ErrSizeMismatch, obj.Size, meta.ObjectSize)
	}

	return obj, nil
}
