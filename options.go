package splitfile

import (
	"errors"
	"time"

	"github.com/sioaeko/splitfile/limits"
	"github.com/sioaeko/splitfile/metrics"
)

var (
	// ErrExpiryWindowInvalid indicates a non-positive expiry window.
	ErrExpiryWindowInvalid = errors.New("expiry window must be positive")

	// ErrSweepIntervalInvalid indicates a non-positive sweep interval.
	ErrSweepIntervalInvalid = errors.New("sweep interval must be positive")
)

// Options configures a Sender or Receiver.
type Options struct {
	// ChunkSize is the payload size per chunk in bytes. It must stay
	// strictly under MaxAttachmentSize.
	ChunkSize int64

	// MaxAttachmentSize is the host channel's hard per-message
	// attachment ceiling.
	MaxAttachmentSize int64

	// MaxObjectSize caps the size of objects accepted for sending.
	// Zero means no cap.
	MaxObjectSize int64

	// ExpiryWindow is how long an assembly entry may go without an
	// accepted chunk before the eviction sweep removes it.
	ExpiryWindow time.Duration

	// SweepInterval is how often the receiver's background sweep runs.
	SweepInterval time.Duration

	// AutoDeliver controls the completion policy. When true the
	// receiver merges a completed transfer immediately and hands the
	// object to the OnObject callback. When false it hands the consumed
	// chunk records to OnComplete and the caller decides whether to
	// Assemble them.
	AutoDeliver bool

	// Metrics receives transfer counters. Nil creates a collector
	// backed by a private registry.
	Metrics *metrics.Collector
}

// NewOptions creates options with default values.
func NewOptions() *Options {
	return &Options{
		ChunkSize:         limits.DefaultChunkSize,
		MaxAttachmentSize: limits.DefaultMaxAttachment,
		ExpiryWindow:      5 * time.Minute,
		SweepInterval:     30 * time.Second,
		AutoDeliver:       true,
	}
}

// Validate checks the options for internal consistency.
func (o *Options) Validate() error {
	if err := limits.ValidateChunkSize(o.ChunkSize, o.MaxAttachmentSize); err != nil {
		return err
	}
	if o.ExpiryWindow <= 0 {
		return ErrExpiryWindowInvalid
	}
	if o.SweepInterval <= 0 {
		return ErrSweepIntervalInvalid
	}
	return nil
}
