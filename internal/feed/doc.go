// Package feed implements logpipe's persistent append-only feed.
//
// # Overview
//
// A feed is a named, ordered sequence of opaque entries addressed by
// zero-based contiguous indices, persisted through a storage.Backend. Keys
// are lexicographically ordered for efficient range scans:
//   - feed/{name}/m           (metadata: length)
//   - feed/{name}/e/{idx_be8} (entries)
//
// Entry values are framed as payload | crc32c(payload); the checksum is
// verified on every read.
//
// API surface (internal)
//
//	f, _ := feed.Open(db, "events", logger)
//
//	// Append payloads atomically; returns the first assigned index
//	start, _ := f.Append(ctx, []byte("a"), []byte("b"))
//
//	// Random-access reads, single or ranged
//	raw, _ := f.Get(ctx, start, streams.GetOptions{})
//	raws, _ := f.GetBatch(ctx, 0, f.Length(), streams.GetOptions{})
//
//	// New-append broadcast for live tailing
//	<-f.AppendSignal()
//
// The feed is shared and never exclusively owned: many readers and writers
// may operate against it concurrently. Append assigns the next contiguous
// indices under the feed's own lock; reads rely on the backend's atomic
// batch commit. Close fails all waiters deterministically and makes every
// subsequent operation return streams.ErrClosed.
package feed
