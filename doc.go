// Package splitfile implements chunked transfer of oversized objects over a
// messaging channel that enforces a hard per-message attachment size limit.
//
// A sender splits an object into ordered, size-bounded chunks and transmits
// them sequentially, each alongside a small metadata record. A receiver
// groups incoming chunks by object key in an assembly cache, absorbs
// duplicates, rejects conflicts, and reassembles the original bytes once
// every chunk has arrived. Abandoned transfers are evicted by a periodic
// expiry sweep so receiver memory stays bounded over unbounded uptime.
//
// The host messaging channel stays external: the core only depends on the
// transport.Sender and transport.Resolver adapter interfaces and exposes
// Receiver.Deliver for the host to call once per incoming message.
//
// # Sending
//
//	sender, err := splitfile.NewSender(adapter, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sender.OnProgress(func(sent, total int) {
//	    fmt.Printf("%d/%d chunks\n", sent, total)
//	})
//	out, err := sender.SendFile(ctx, "video.mp4")
//
// Chunk sends are sequential and awaited; a failed send aborts the rest of
// the sequence with a *SendError naming the failed chunk. There are no
// automatic retries: the receiver's eviction sweep reclaims the permanently
// incomplete transfer.
//
// # Receiving
//
//	receiver, err := splitfile.NewReceiver(adapter, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	receiver.OnObject(func(obj *assembly.Object, err error) {
//	    // reconstructed object, or a merge failure
//	})
//	receiver.Start() // background eviction sweep
//	defer receiver.Stop()
//	adapter.OnDeliver(receiver.Deliver)
//
// Hosts that want to confirm delivery before paying reassembly cost disable
// Options.AutoDeliver and use OnComplete plus Assemble instead.
package splitfile
