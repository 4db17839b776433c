// Package transport defines the adapter surface between the chunked-transfer
// core and the host messaging channel, plus two concrete adapters.
//
// The core depends on two capabilities, kept as separate small interfaces:
//
//	type Sender interface {
//	    SendChunk(ctx context.Context, meta chunk.Metadata, payload []byte) error
//	}
//
//	type Resolver interface {
//	    ResolvePayload(ctx context.Context, ref PayloadRef) ([]byte, error)
//	}
//
// On the receive side the adapter calls a DeliverFunc once per incoming
// chunk-shaped message, handing over the raw metadata record and an opaque
// PayloadRef. The core never polls the channel and never holds payload
// bytes before reassembly resolves them.
//
// Adapters that can release payload storage early additionally implement
// Discarder; the receiver uses it to free payloads of evicted transfers.
//
// # Implementations
//
// Loopback:
//
//	lb := transport.NewLoopback()
//	lb.OnDeliver(receiver.Deliver)
//	// in-process pairing for tests and examples
//
// WebSocket (one binary frame per chunk, length-prefixed metadata):
//
//	sender := transport.NewWSSender(conn)
//	receiver := transport.NewWSReceiver(conn, deliver)
//	go receiver.ReadLoop(ctx)
package transport
