package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sioaeko/splitfile/chunk"
)

// Chunk frame format: [meta_len (2 bytes, big endian)][metadata JSON][payload]
const frameHeaderLen = 2

// maxFrameMetaLen bounds the metadata portion of a frame. Chunk metadata
// is small; anything larger is not ours.
const maxFrameMetaLen = 16 * 1024

var errFrameMalformed = errors.New("malformed chunk frame")

// WSSender transmits chunks as binary frames over a websocket connection,
// for hosts whose messaging channel is socket-shaped. Writes are
// serialized; gorilla/websocket permits one concurrent writer.
type WSSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSSender wraps an established websocket connection.
func NewWSSender(conn *websocket.Conn) *WSSender {
	return &WSSender{conn: conn}
}

// SendChunk writes one binary frame carrying the metadata record and the
// payload bytes.
func (s *WSSender) SendChunk(ctx context.Context, meta chunk.Metadata, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := chunk.Encode(meta)
	if err != nil {
		return err
	}

	frame, err := marshalFrame(data, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to write chunk frame: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "SendChunk",
		"object_key": meta.ObjectKey,
		"index":      meta.Index,
		"total":      meta.Total,
		"frame_size": len(frame),
	}).Debug("Chunk frame written")

	return nil
}

// WSReceiver reads chunk frames from a websocket connection, stores each
// payload under a freshly minted reference, and invokes the deliver
// callback with the raw metadata. Frames that do not parse as chunk
// frames are ignored as unrelated traffic.
type WSReceiver struct {
	conn    *websocket.Conn
	deliver DeliverFunc

	mu       sync.Mutex
	payloads map[PayloadRef][]byte
}

// NewWSReceiver wraps an established websocket connection with a deliver
// callback.
func NewWSReceiver(conn *websocket.Conn, deliver DeliverFunc) *WSReceiver {
	return &WSReceiver{
		conn:     conn,
		deliver:  deliver,
		payloads: make(map[PayloadRef][]byte),
	}
}

// ReadLoop consumes frames until the connection fails or ctx is
// cancelled. It returns the read error that terminated the loop.
func (r *WSReceiver) ReadLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		messageType, data, err := r.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read failed: %w", err)
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		meta, payload, err := parseFrame(data)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "ReadLoop",
				"frame_size": len(data),
			}).Debug("Ignoring non-chunk frame")
			continue
		}

		ref := PayloadRef(uuid.NewString())
		r.mu.Lock()
		r.payloads[ref] = payload
		r.mu.Unlock()

		r.deliver(meta, ref)
	}
}

// ResolvePayload returns and consumes the payload bytes for ref. Each
// reference resolves at most once; a second resolution reports
// ErrPayloadExpired.
func (r *WSReceiver) ResolvePayload(ctx context.Context, ref PayloadRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	payload, exists := r.payloads[ref]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPayloadExpired, ref)
	}
	delete(r.payloads, ref)
	return payload, nil
}

// DiscardPayload releases the storage behind ref without resolving it.
func (r *WSReceiver) DiscardPayload(ref PayloadRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.payloads, ref)
}

// marshalFrame builds a chunk frame from encoded metadata and payload.
func marshalFrame(meta, payload []byte) ([]byte, error) {
	if len(meta) > maxFrameMetaLen {
		return nil, fmt.Errorf("%w: metadata %d bytes exceeds %d", errFrameMalformed, len(meta), maxFrameMetaLen)
	}

	frame := make([]byte, frameHeaderLen+len(meta)+len(payload))
	binary.BigEndian.PutUint16(frame[0:frameHeaderLen], uint16(len(meta)))
	copy(frame[frameHeaderLen:], meta)
	copy(frame[frameHeaderLen+len(meta):], payload)
	return frame, nil
}

// parseFrame splits a chunk frame into its metadata and payload parts.
func parseFrame(data []byte) (meta, payload []byte, err error) {
	if len(data) < frameHeaderLen {
		return nil, nil, fmt.Errorf("%w: %d bytes", errFrameMalformed, len(data))
	}

	metaLen := int(binary.BigEndian.Uint16(data[0:frameHeaderLen]))
	if metaLen == 0 || metaLen > maxFrameMetaLen || frameHeaderLen+metaLen > len(data) {
		return nil, nil, fmt.Errorf("%w: metadata length %d, frame %d", errFrameMalformed, metaLen, len(data))
	}

	meta = make([]byte, metaLen)
	copy(meta, data[frameHeaderLen:frameHeaderLen+metaLen])
	payload = make([]byte, len(data)-frameHeaderLen-metaLen)
	copy(payload, data[frameHeaderLen+metaLen:])
	return meta, payload, nil
}
