// Package limits provides centralized size constants and validation functions
// for the chunked-transfer system. This package ensures consistent size
// enforcement across the chunk codec, the transfer orchestrator, and the
// transport adapters.
//
// # Size Hierarchy
//
//   - DefaultMaxAttachment (10 MiB): A stand-in for the host messaging
//     channel's hard per-message attachment ceiling. Hosts with a different
//     ceiling supply their own value through the orchestrator options.
//
//   - DefaultChunkSize (9 MiB): The default payload size per chunk. It stays
//     strictly under the attachment ceiling to leave margin for metadata and
//     frame encoding overhead.
//
//   - MaxChunkCount (100000): The maximum number of chunks for one object.
//     Inbound metadata claiming a larger total is rejected before any cache
//     entry is created, preventing memory exhaustion from a single record.
//
// # Validation Functions
//
// Each validation function returns a sentinel error wrapped with context:
//
//	err := limits.ValidateChunkSize(chunkSize, ceiling)
//	if errors.Is(err, limits.ErrChunkSizeTooLarge) {
//	    // chunk size does not fit under the attachment ceiling
//	}
//
// ValidateObjectSize treats a cap of zero as "no cap" but always rejects
// empty objects, since there is nothing to transfer.
package limits
