package chunk

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/sioaeko/splitfile/limits"
)

// ErrNotOversized indicates the object fits in a single message and must
// be sent unsplit by the caller.
var ErrNotOversized = errors.New("object fits in a single message")

// Descriptor describes one chunk of an object: its metadata record and
// the byte range it covers. The splitter never reads object bytes; the
// sender extracts the range at send time so peak memory stays at one
// chunk regardless of object size.
type Descriptor struct {
	Meta   Metadata
	Offset int64
	Length int64
}

// Split partitions an object of the given size into total = ceil(size /
// chunkSize) descriptors with ranges [i*chunkSize, min((i+1)*chunkSize,
// size)). All descriptors share one object key derived from name, size,
// and the supplied clock reading.
//
// Empty objects are rejected, as are objects no larger than a single
// chunk: the caller is expected to send those unsplit.
func Split(name string, size, chunkSize int64, now time.Time) ([]Descriptor, error) {
	if err := limits.ValidateObjectSize(size, 0); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", limits.ErrChunkSizeInvalid, chunkSize)
	}
	if size <= chunkSize {
		return nil, fmt.Errorf("%w: size %d, chunk size %d", ErrNotOversized, size, chunkSize)
	}

	total := (size + chunkSize - 1) / chunkSize
	if err := limits.ValidateChunkCount(total); err != nil {
		return nil, err
	}

	key := NewObjectKey(name, size, now)
	timestamp := now.UnixMilli()

	descriptors := make([]Descriptor, 0, total)
	for i := int64(0); i < total; i++ {
		offset := i * chunkSize
		end := offset + chunkSize
		if end > size {
			end = size
		}
		descriptors = append(descriptors, Descriptor{
			Meta: Metadata{
				Kind:       Kind,
				Index:      int(i),
				Total:      int(total),
				ObjectKey:  key,
				ObjectSize: size,
				Timestamp:  timestamp,
				Name:       name,
			},
			Offset: offset,
			Length: end - offset,
		})
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Split",
		"name":       name,
		"size":       size,
		"chunk_size": chunkSize,
		"total":      total,
		"object_key": key,
	}).Debug("Object partitioned into chunks")

	return descriptors, nil
}

// NewObjectKey derives the identifier grouping all chunks of one logical
// transfer. The key hashes name, size, and the transfer start time so two
// concurrent transfers of same-named objects never collide in the
// receiver's assembly cache, and its length is fixed regardless of how
// long the object name is.
func NewObjectKey(name string, size int64, start time.Time) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s|%d|%d", name, size, start.UnixMilli())))
	return hex.EncodeToString(sum[:16])
}

// PartName returns the attachment name for one chunk payload:
// "<name>.part<index>" with the index zero-padded to the width of the
// highest index. Channel adapters derive it from the metadata's Name,
// Index, and Total when the host channel attaches payloads as named
// files; the receive path never depends on it. The padding keeps
// directory listings lexically sorted; authoritative order always comes
// from the metadata index.
func PartName(name string, index, total int) string {
	width := len(strconv.Itoa(total - 1))
	return fmt.Sprintf("%s.part%0*d", name, width, index)
}
