package streams

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ReaderOptions configures a Reader. Pointer fields distinguish "unset" from
// an explicit zero value.
type ReaderOptions struct {
	// Start is the first index to emit (inclusive). Defaults to 0. Ignored
	// when Tail is set.
	Start *uint64
	// End bounds the range (exclusive). When nil the end is resolved from
	// the feed length according to Snapshot.
	End *uint64
	// Snapshot pins the default end to the feed length at resolution time.
	// Defaults to true. When false and End is nil, the effective end is
	// re-read from the feed before every fetch.
	Snapshot *bool
	// Tail resolves Start to the feed length once the feed is ready.
	Tail bool
	// Live makes the reader follow new appends indefinitely, overriding any
	// computed or explicit end. A live reader never terminates with Done.
	Live bool
	// Timeout fails the reader with ErrTimeout when no entry has been
	// produced within the window since the last successful emission.
	// Zero disables the timeout.
	Timeout time.Duration
	// Wait is forwarded to feed reads. Defaults to true.
	Wait *bool
	// IfAvailable is forwarded to feed reads.
	IfAvailable bool
	// Batch is the maximum number of entries fetched per underlying feed
	// read. Defaults to 1; values above 1 go through GetBatch.
	Batch int
	// Encoding overrides the value encoding used to decode entries.
	Encoding Encoding
}

// Reader produces a lazy, ordered sequence of entries from a feed. It is a
// pull stream: the next batch is not fetched until the consumer asks for
// more, so downstream pacing is the backpressure. Next is not safe for
// concurrent use; Close may be called from any goroutine.
type Reader struct {
	feed Feed

	start    uint64
	position uint64
	end      uint64
	fixedEnd bool

	tail     bool
	live     bool
	snapshot bool
	batch    int
	timeout  time.Duration
	gopts    GetOptions
	enc      Encoding

	optStart *uint64
	optEnd   *uint64

	resolved bool
	buf      []Entry
	err      error

	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewReader builds a Reader over feed. The range is resolved lazily on the
// first call to Next, after the feed reports ready.
func NewReader(feed Feed, opts ReaderOptions) *Reader {
	batch := opts.Batch
	if batch <= 0 {
		batch = 1
	}
	wait := true
	if opts.Wait != nil {
		wait = *opts.Wait
	}
	snapshot := true
	if opts.Snapshot != nil {
		snapshot = *opts.Snapshot
	}
	return &Reader{
		feed:     feed,
		tail:     opts.Tail,
		live:     opts.Live,
		snapshot: snapshot,
		batch:    batch,
		timeout:  opts.Timeout,
		gopts:    GetOptions{Wait: wait, IfAvailable: opts.IfAvailable},
		enc:      opts.Encoding,
		optStart: opts.Start,
		optEnd:   opts.End,
		done:     make(chan struct{}),
	}
}

// Next returns the next entry in index order. It returns Done once a bounded
// range is exhausted, and a terminal error on read failure, timeout, close,
// or feed closure. After any non-nil return the reader issues no further
// feed calls.
func (r *Reader) Next(ctx context.Context) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return Entry{}, r.err
	}
	select {
	case <-r.done:
		return Entry{}, r.fail("read", ErrClosed)
	default:
	}

	if !r.resolved {
		if err := r.resolve(ctx); err != nil {
			return Entry{}, err
		}
	}

	var timeoutC <-chan time.Time
	var deadline time.Time
	if r.timeout > 0 {
		deadline = time.Now().Add(r.timeout)
		timer := time.NewTimer(r.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	for {
		if len(r.buf) > 0 {
			ent := r.buf[0]
			r.buf = r.buf[1:]
			return ent, nil
		}

		limit := r.effectiveEnd()
		if r.position >= limit {
			if !r.live {
				r.err = Done
				r.destroy()
				return Entry{}, Done
			}
			if err := r.waitAppend(ctx, timeoutC); err != nil {
				return Entry{}, r.fail("read", err)
			}
			continue
		}

		hi := r.position + uint64(r.batch)
		if hi > limit {
			hi = limit
		}
		if err := r.fetch(ctx, r.position, hi, deadline); err != nil {
			return Entry{}, err
		}
	}
}

// Position reports the next index the reader will emit.
func (r *Reader) Position() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.position
}

// Close destroys the reader. Pending and subsequent calls to Next fail with
// ErrClosed; no further feed calls are issued.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	return nil
}

// resolve awaits feed readiness and fixes the range bounds. Called with
// r.mu held.
func (r *Reader) resolve(ctx context.Context) error {
	if err := r.feed.Ready(ctx); err != nil {
		r.fail("read", err)
		return r.err
	}
	if r.tail {
		r.start = r.feed.Length()
	} else if r.optStart != nil {
		r.start = *r.optStart
	}
	r.position = r.start
	switch {
	case r.optEnd != nil:
		r.end = *r.optEnd
		r.fixedEnd = true
	case r.snapshot:
		r.end = r.feed.Length()
		r.fixedEnd = true
	default:
		r.end = r.feed.Length()
		r.fixedEnd = false
	}
	r.resolved = true
	return nil
}

// effectiveEnd computes the current upper bound. For live readers the bound
// tracks the feed length; for snapshot=false it grows monotonically and
// never regresses below what was already observed.
func (r *Reader) effectiveEnd() uint64 {
	if r.live {
		return r.feed.Length()
	}
	if r.fixedEnd {
		return r.end
	}
	if l := r.feed.Length(); l > r.end {
		r.end = l
	}
	return r.end
}

// waitAppend suspends until the feed signals a new append. Called with
// r.mu held.
func (r *Reader) waitAppend(ctx context.Context, timeoutC <-chan time.Time) error {
	sig := r.feed.AppendSignal()
	// Re-check after grabbing the signal channel so an append racing with
	// the length check cannot be missed.
	if r.feed.Length() > r.position {
		return nil
	}
	select {
	case <-sig:
		return nil
	case <-r.feed.Closed():
		return ErrClosed
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timeoutC:
		return ErrTimeout
	}
}

// fetch reads [lo, hi) from the feed, decodes, and buffers the entries. The
// feed call runs under a context that carries the timeout deadline and is
// cancelled when the reader closes, so a blocking read cannot outlive either.
// Called with r.mu held.
func (r *Reader) fetch(ctx context.Context, lo, hi uint64, deadline time.Time) error {
	fctx, cancel := r.fetchContext(ctx, deadline)
	defer cancel()

	var raws [][]byte
	if r.batch > 1 {
		batch, err := r.feed.GetBatch(fctx, lo, hi, r.gopts)
		if err != nil {
			r.fail("read", r.mapFetchErr(ctx, err))
			return r.err
		}
		raws = batch
	} else {
		raw, err := r.feed.Get(fctx, lo, r.gopts)
		if err != nil {
			r.fail("read", r.mapFetchErr(ctx, err))
			return r.err
		}
		raws = [][]byte{raw}
	}

	for i, raw := range raws {
		value := any(raw)
		if r.enc != nil {
			decoded, err := r.enc.Decode(raw)
			if err != nil {
				r.fail("decode", err)
				return r.err
			}
			value = decoded
		}
		r.buf = append(r.buf, Entry{Index: lo + uint64(i), Value: value})
	}
	r.position += uint64(len(raws))
	return nil
}

// fetchContext derives the context a feed read runs under: the caller's ctx,
// bounded by the timeout deadline when one is set, cancelled when the reader
// closes.
func (r *Reader) fetchContext(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	var fctx context.Context
	var cancel context.CancelFunc
	if deadline.IsZero() {
		fctx, cancel = context.WithCancel(ctx)
	} else {
		fctx, cancel = context.WithDeadline(ctx, deadline)
	}
	stop := make(chan struct{})
	go func() {
		select {
		case <-r.done:
			cancel()
		case <-stop:
		}
	}()
	return fctx, func() {
		close(stop)
		cancel()
	}
}

// mapFetchErr rewrites fetch-context failures into the reader's own terminal
// errors: a close during the read becomes ErrClosed, the timeout deadline
// becomes ErrTimeout. The caller's own ctx errors pass through untouched.
func (r *Reader) mapFetchErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	if errors.Is(err, context.Canceled) {
		select {
		case <-r.done:
			return ErrClosed
		default:
		}
	}
	if r.timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// fail records a terminal error at the current position and destroys the
// reader. Called with r.mu held.
func (r *Reader) fail(op string, err error) error {
	r.err = &StreamError{Op: op, Index: r.position, Err: err}
	r.destroy()
	return r.err
}

func (r *Reader) destroy() {
	r.buf = nil
	r.closeOnce.Do(func() { close(r.done) })
}
