// Package chunk implements the chunked-transfer codec: partitioning an
// oversized object into ordered, size-bounded byte ranges and the metadata
// schema that accompanies each range on the wire.
package chunk

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sioaeko/splitfile/limits"
)

// Kind is the wire discriminator identifying a chunk-transfer message.
// Messages without this tag are unrelated traffic on the shared channel.
const Kind = "split-file-chunk"

var (
	// ErrIndexOutOfRange indicates a chunk index outside [0, total).
	ErrIndexOutOfRange = errors.New("chunk index out of range")

	// ErrTotalInvalid indicates a non-positive chunk total.
	ErrTotalInvalid = errors.New("chunk total must be positive")

	// ErrObjectSizeInvalid indicates a negative object size.
	ErrObjectSizeInvalid = errors.New("object size must be non-negative")

	// ErrObjectKeyEmpty indicates a missing object key.
	ErrObjectKeyEmpty = errors.New("object key is empty")
)

// Metadata is the descriptive record transmitted alongside each chunk
// payload. It is small, text-encodable, and carries everything a receiver
// needs to group, order, and sanity-check the chunks of one object.
//
// Timestamp is the sender's clock at metadata creation in milliseconds
// since the Unix epoch. It feeds cache aging only, never ordering.
type Metadata struct {
	Kind       string `json:"kind"`
	Index      int    `json:"index"`
	Total      int    `json:"total"`
	ObjectKey  string `json:"objectKey"`
	ObjectSize int64  `json:"objectSize"`
	Timestamp  int64  `json:"timestamp"`

	// Name is the original object name, used to name the reconstructed
	// object and the payload attachments. Optional on the wire.
	Name string `json:"name,omitempty"`
}

// Validate checks the metadata's internal consistency, including the
// limits.MaxChunkCount ceiling on the claimed total. It does not check
// the discriminator; Parse already classified the record as chunk traffic.
func (m Metadata) Validate() error {
	if m.Total < 1 {
		return fmt.Errorf("%w: got %d", ErrTotalInvalid, m.Total)
	}
	if err := limits.ValidateChunkCount(int64(m.Total)); err != nil {
		return err
	}
	if m.Index < 0 || m.Index >= m.Total {
		return fmt.Errorf("%w: index %d, total %d", ErrIndexOutOfRange, m.Index, m.Total)
	}
	if m.ObjectKey == "" {
		return ErrObjectKeyEmpty
	}
	if m.ObjectSize < 0 {
		return fmt.Errorf("%w: got %d", ErrObjectSizeInvalid, m.ObjectSize)
	}
	return nil
}

// Encode serializes metadata to its JSON wire form.
func Encode(m Metadata) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chunk metadata: %w", err)
	}
	return data, nil
}

// rawMetadata mirrors Metadata with pointer fields so Parse can tell a
// missing field from a zero value.
type rawMetadata struct {
	Kind       *string `json:"kind"`
	Index      *int    `json:"index"`
	Total      *int    `json:"total"`
	ObjectKey  *string `json:"objectKey"`
	ObjectSize *int64  `json:"objectSize"`
	Timestamp  *int64  `json:"timestamp"`
	Name       string  `json:"name"`
}

// Parse attempts to read data as chunk metadata. The boolean reports
// whether the record is chunk-shaped: well-formed JSON carrying every
// mandatory field with the right type and the Kind discriminator.
//
// A false return is not an error condition. The channel carries unrelated
// traffic at high frequency, and anything that is not chunk-shaped is
// simply not ours.
func Parse(data []byte) (Metadata, bool) {
	var raw rawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return Metadata{}, false
	}
	if raw.Kind == nil || raw.Index == nil || raw.Total == nil ||
		raw.ObjectKey == nil || raw.ObjectSize == nil || raw.Timestamp == nil {
		return Metadata{}, false
	}
	if *raw.Kind != Kind {
		return Metadata{}, false
	}
	return Metadata{
		Kind:       *raw.Kind,
		Index:      *raw.Index,
		Total:      *raw.Total,
		ObjectKey:  *raw.ObjectKey,
		ObjectSize: *raw.ObjectSize,
		Timestamp:  *raw.Timestamp,
		Name:       raw.Name,
	}, true
}
