package streams

import (
	"context"
	"sync"
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	// MaxBlockSize is the maximum payload size in bytes per appended entry.
	// Writes larger than this are split into consecutive chunks. Zero means
	// unbounded.
	MaxBlockSize int
	// Encoding is used by WriteValue to encode values. Defaults to Binary.
	Encoding Encoding
}

// Writer accepts payloads and appends them to a feed in order. Writes do not
// block and do not append immediately: payloads enqueued between flushes are
// coalesced into a single feed append. Callers that need backpressure await
// Flush. Writer is safe for concurrent use.
type Writer struct {
	feed     Feed
	maxBlock int
	enc      Encoding

	mu       sync.Mutex
	cond     *sync.Cond
	pending  [][]byte
	flushing bool
	closed   bool
	err      error

	lastIndex uint64
	hasLast   bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWriter builds a Writer over feed.
func NewWriter(feed Feed, opts WriterOptions) *Writer {
	enc := opts.Encoding
	if enc == nil {
		enc = Binary{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		feed:     feed,
		maxBlock: opts.MaxBlockSize,
		enc:      enc,
		ctx:      ctx,
		cancel:   cancel,
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Write enqueues one payload. It returns immediately; the payload is
// appended on the next flush together with everything else enqueued since
// the previous one. Payloads larger than MaxBlockSize are split into
// consecutive chunks in byte order, each appended as its own entry.
func (w *Writer) Write(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return &StreamError{Op: "append", Index: w.feed.Length(), Err: ErrClosed}
	}
	w.enqueueLocked(p)
	w.scheduleLocked()
	return nil
}

// WriteValue encodes v with the writer's encoding and enqueues the result.
func (w *Writer) WriteValue(v any) error {
	b, err := w.enc.Encode(v)
	if err != nil {
		return &StreamError{Op: "append", Index: w.feed.Length(), Err: err}
	}
	return w.Write(b)
}

// Flush blocks until every queued and in-flight append has been acknowledged
// by the feed, or until a flush fails or ctx is cancelled.
func (w *Writer) Flush(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		w.mu.Lock()
		w.cond.Broadcast()
		w.mu.Unlock()
	})
	defer stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	for w.err == nil && (w.flushing || len(w.pending) > 0) {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.cond.Wait()
	}
	return w.err
}

// Close stops accepting writes and drains the queue. It only returns nil
// once every pending append has been acknowledged.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	err := w.Flush(ctx)
	w.cancel()
	return err
}

// Abort destroys the writer immediately, dropping queued payloads. An
// in-flight append is cancelled and no further feed calls are issued;
// subsequent operations fail with ErrClosed.
func (w *Writer) Abort() {
	w.mu.Lock()
	w.closed = true
	if w.err == nil {
		w.err = &StreamError{Op: "append", Index: w.feed.Length(), Err: ErrClosed}
	}
	w.pending = nil
	w.cond.Broadcast()
	w.mu.Unlock()
	w.cancel()
}

// LastIndex reports the index assigned to the first entry of the most recent
// acknowledged append. The second return is false until the first append
// completes.
func (w *Writer) LastIndex() (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastIndex, w.hasLast
}

// Err returns the sticky terminal error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// enqueueLocked splits p by MaxBlockSize and buffers the chunks.
func (w *Writer) enqueueLocked(p []byte) {
	if w.maxBlock <= 0 || len(p) <= w.maxBlock {
		w.pending = append(w.pending, p)
		return
	}
	for len(p) > 0 {
		n := w.maxBlock
		if n > len(p) {
			n = len(p)
		}
		w.pending = append(w.pending, p[:n])
		p = p[n:]
	}
}

// scheduleLocked starts the deferred drain when none is running. Writes that
// land before the drain goroutine wakes join the same batch.
func (w *Writer) scheduleLocked() {
	if w.flushing || len(w.pending) == 0 {
		return
	}
	w.flushing = true
	go w.drain()
}

// drain appends batches until the queue is empty or a flush fails. Each pass
// takes everything buffered so far as one feed append.
func (w *Writer) drain() {
	w.mu.Lock()
	for {
		if w.err != nil || len(w.pending) == 0 {
			w.flushing = false
			w.cond.Broadcast()
			w.mu.Unlock()
			return
		}
		batch := w.pending
		w.pending = nil
		at := w.feed.Length()
		w.mu.Unlock()

		start, err := w.feed.Append(w.ctx, batch...)

		w.mu.Lock()
		if err != nil {
			if w.err == nil {
				w.err = &StreamError{Op: "append", Index: at, Err: err}
			}
		} else {
			w.lastIndex = start
			w.hasLast = true
		}
		w.cond.Broadcast()
	}
}
