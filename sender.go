package splitfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sioaeko/splitfile/chunk"
	"github.com/sioaeko/splitfile/limits"
	"github.com/sioaeko/splitfile/transport"
)

// TransferState represents the current state of an outgoing transfer.
type TransferState uint8

const (
	// TransferStatePending indicates the transfer has not started.
	TransferStatePending TransferState = iota
	// TransferStateSplitting indicates the object is being partitioned.
	TransferStateSplitting
	// TransferStateSending indicates chunks are being sent sequentially.
	TransferStateSending
	// TransferStateCompleted indicates every chunk was sent.
	TransferStateCompleted
	// TransferStateFailed indicates a chunk send failed and the
	// remaining sequence was aborted.
	TransferStateFailed
	// TransferStateCancelled indicates the send loop was cancelled
	// between chunks.
	TransferStateCancelled
)

// String returns a human-readable state name.
func (s TransferState) String() string {
	switch s {
	case TransferStatePending:
		return "pending"
	case TransferStateSplitting:
		return "splitting"
	case TransferStateSending:
		return "sending"
	case TransferStateCompleted:
		return "completed"
	case TransferStateFailed:
		return "failed"
	case TransferStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// SendError reports which chunk aborted an outgoing transfer. Chunks
// already on the channel stay there; the receiver's eviction sweep
// reclaims the permanently incomplete entry.
type SendError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *SendError) Error() string {
	return fmt.Sprintf("sending chunk %d failed: %v", e.Index, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *SendError) Unwrap() error { return e.Err }

// Outbound is the handle for one outgoing transfer. Its state and
// progress are updated by the send loop and safe to read concurrently.
type Outbound struct {
	Name string
	Key  string
	Size int64

	mu    sync.Mutex
	total int
	sent  int
	state TransferState
	err   error
}

// State returns the transfer's current state.
func (o *Outbound) State() TransferState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Progress returns how many chunks have been sent and the chunk total.
func (o *Outbound) Progress() (sent, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent, o.total
}

// Err returns the error that terminated the transfer, if any.
func (o *Outbound) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *Outbound) setState(s TransferState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
}

func (o *Outbound) fail(s TransferState, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
	o.err = err
}

func (o *Outbound) advance() (sent, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent++
	return o.sent, o.total
}

// Sender drives the send path: split an oversized object into chunks and
// transmit them one at a time, awaiting each send. Sends are never
// parallel for one object, which bounds peak memory to a single chunk
// and keeps wire order aligned with index order.
type Sender struct {
	opts      *Options
	transport transport.Sender

	mu               sync.Mutex
	progressCallback func(sent, total int)
}

// NewSender creates a sender over the given transport. Nil options use
// NewOptions defaults.
func NewSender(t transport.Sender, opts *Options) (*Sender, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":        "NewSender",
		"chunk_size":      opts.ChunkSize,
		"max_object_size": opts.MaxObjectSize,
	}).Info("Creating sender")

	return &Sender{opts: opts, transport: t}, nil
}

// OnProgress sets a callback invoked after each successful chunk send
// with the number of chunks sent so far and the chunk total.
func (s *Sender) OnProgress(fn func(sent, total int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressCallback = fn
}

func (s *Sender) progress(sent, total int) {
	s.mu.Lock()
	fn := s.progressCallback
	s.mu.Unlock()
	if fn != nil {
		fn(sent, total)
	}
}

// Send transmits the object read from r as a sequence of chunks. It
// blocks until every chunk is sent, a send fails, or ctx is cancelled
// between chunks. The returned handle carries the final state; on
// failure the error is a *SendError naming the chunk that aborted the
// sequence. No retries are attempted.
//
// Objects that fit in a single chunk are rejected with
// chunk.ErrNotOversized; the caller sends those unsplit through the host
// channel directly.
func (s *Sender) Send(ctx context.Context, name string, r io.ReaderAt, size int64) (*Outbound, error) {
	if err := limits.ValidateObjectSize(size, s.opts.MaxObjectSize); err != nil {
		return nil, err
	}

	out := &Outbound{Name: name, Size: size, state: TransferStatePending}

	out.setState(TransferStateSplitting)
	descriptors, err := chunk.Split(name, size, s.opts.ChunkSize, time.Now())
	if err != nil {
		out.fail(TransferStateFailed, err)
		return nil, err
	}

	out.mu.Lock()
	out.Key = descriptors[0].Meta.ObjectKey
	out.total = len(descriptors)
	out.state = TransferStateSending
	out.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "Send",
		"name":       name,
		"size":       size,
		"total":      len(descriptors),
		"object_key": out.Key,
	}).Info("Starting chunked send")

	buf := make([]byte, s.opts.ChunkSize)
	for _, d := range descriptors {
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.fail(TransferStateCancelled, ctxErr)
			logrus.WithFields(logrus.Fields{
				"function":   "Send",
				"object_key": out.Key,
				"next_index": d.Meta.Index,
			}).Info("Send cancelled between chunks")
			return out, ctxErr
		}

		payload := buf[:d.Length]
		n, readErr := r.ReadAt(payload, d.Offset)
		if readErr == io.EOF && n == len(payload) {
			// a full read of the final range may legally report EOF
			readErr = nil
		}
		if readErr != nil {
			sendErr := &SendError{Index: d.Meta.Index, Err: readErr}
			out.fail(TransferStateFailed, sendErr)
			return out, sendErr
		}

		if err := s.transport.SendChunk(ctx, d.Meta, payload); err != nil {
			sendErr := &SendError{Index: d.Meta.Index, Err: err}
			out.fail(TransferStateFailed, sendErr)
			logrus.WithFields(logrus.Fields{
				"function":   "Send",
				"object_key": out.Key,
				"index":      d.Meta.Index,
				"error":      err.Error(),
			}).Error("Chunk send failed, aborting remaining sequence")
			return out, sendErr
		}

		if s.opts.Metrics != nil {
			s.opts.Metrics.ChunksSent.Inc()
		}
		s.progress(out.advance())
	}

	out.setState(TransferStateCompleted)
	logrus.WithFields(logrus.Fields{
		"function":   "Send",
		"object_key": out.Key,
		"total":      len(descriptors),
	}).Info("Chunked send completed")

	return out, nil
}

// SendFile transmits the file at path, using its base name as the object
// name.
func (s *Sender) SendFile(ctx context.Context, path string) (*Outbound, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	return s.Send(ctx, filepath.Base(path), f, info.Size())
}
