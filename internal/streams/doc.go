// Package streams adapts an append-only feed into stream endpoints: an
// ordered, optionally live Reader and a coalescing, chunking Writer.
//
// # Overview
//
// Both endpoints consume the same narrow Feed contract and never own the
// feed: many readers and writers may operate against one feed concurrently,
// and all serialization is delegated to the feed's own per-operation
// atomicity. Entries are addressed by zero-based contiguous indices.
//
// API surface (internal)
//
//	r := streams.NewReader(feed, streams.ReaderOptions{Batch: 64})
//	for {
//		ent, err := r.Next(ctx)
//		if errors.Is(err, streams.Done) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		_ = ent.Index
//	}
//
//	w := streams.NewWriter(feed, streams.WriterOptions{MaxBlockSize: 1 << 16})
//	_ = w.Write([]byte("payload"))
//	_ = w.Close(ctx) // drains queued and in-flight appends
//
// A Reader with Live set follows new appends indefinitely and only stops on
// Close, context cancellation, or feed closure. A Reader with Tail set
// resolves its start index to the feed length at open time. Snapshot (the
// default) pins the upper bound of the range at open time; disabling it lets
// the effective end grow with the feed without going live.
//
// All errors are terminal for the affected stream instance: nothing is
// retried internally, and after a failure no further feed calls are issued
// by that instance.
package streams
