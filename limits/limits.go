// Package limits provides centralized size limits for chunked transfers.
// This ensures consistent validation across the splitter, the orchestrator,
// and the transport adapters.
package limits

import (
	"errors"
	"fmt"
)

const (
	// DefaultMaxAttachment is the assumed hard per-message attachment
	// ceiling of the host messaging channel (10 MiB). Hosts with a
	// different ceiling configure their own value.
	DefaultMaxAttachment = 10 * 1024 * 1024

	// DefaultChunkSize is the default chunk payload size (9 MiB).
	// It stays under DefaultMaxAttachment to leave margin for metadata
	// and frame encoding overhead.
	DefaultChunkSize = 9 * 1024 * 1024

	// MaxChunkCount bounds the number of chunks for a single object.
	// This prevents memory exhaustion on the receive side from a
	// metadata record claiming an absurd total.
	MaxChunkCount = 100000
)

var (
	// ErrObjectEmpty indicates an empty object was offered for transfer.
	ErrObjectEmpty = errors.New("empty object")

	// ErrObjectTooLarge indicates the object exceeds the configured cap.
	ErrObjectTooLarge = errors.New("object too large")

	// ErrChunkSizeInvalid indicates a non-positive chunk size.
	ErrChunkSizeInvalid = errors.New("chunk size must be positive")

	// ErrChunkSizeTooLarge indicates the chunk size does not stay under
	// the transport's attachment ceiling.
	ErrChunkSizeTooLarge = errors.New("chunk size exceeds attachment ceiling")

	// ErrChunkCountTooLarge indicates the object would split into more
	// chunks than MaxChunkCount.
	ErrChunkCountTooLarge = errors.New("chunk count exceeds limit")
)

// ValidateChunkSize validates a configured chunk size against the
// transport's hard attachment ceiling. The chunk size must be strictly
// smaller than the ceiling so encoded chunk messages still fit.
func ValidateChunkSize(chunkSize, ceiling int64) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrChunkSizeInvalid, chunkSize)
	}
	if chunkSize >= ceiling {
		return fmt.Errorf("%w: chunk size %d, ceiling %d", ErrChunkSizeTooLarge, chunkSize, ceiling)
	}
	return nil
}

// ValidateObjectSize validates an object size against an optional cap.
// A cap of 0 means no cap. Returns an error with context including the
// actual and maximum sizes.
func ValidateObjectSize(size, maxSize int64) error {
	if size == 0 {
		return ErrObjectEmpty
	}
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrObjectTooLarge, size, maxSize)
	}
	return nil
}

// ValidateChunkCount validates the chunk count an object would split into.
func ValidateChunkCount(total int64) error {
	if total > MaxChunkCount {
		return fmt.Errorf("%w: %d chunks, limit %d", ErrChunkCountTooLarge, total, MaxChunkCount)
	}
	return nil
}
