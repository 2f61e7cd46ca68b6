package streams

import (
	"context"
	"sync"
)

// feedCall records one underlying read issued by a stream, for asserting
// batching behavior.
type feedCall struct {
	op         string // "get" or "getBatch"
	start, end uint64
}

// stubFeed is an in-memory, scriptable Feed for stream tests.
type stubFeed struct {
	mu      sync.Mutex
	entries [][]byte
	notify  chan struct{}
	closed  chan struct{}

	calls   []feedCall
	appends [][][]byte

	readErr   error
	appendErr error

	// When gated, Append signals appendStarted and blocks until a value is
	// received on release.
	gated         bool
	appendStarted chan struct{}
	release       chan struct{}
}

func newStubFeed(entries ...[]byte) *stubFeed {
	return &stubFeed{
		entries: entries,
		notify:  make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func newGatedStubFeed() *stubFeed {
	f := newStubFeed()
	f.gated = true
	f.appendStarted = make(chan struct{}, 16)
	f.release = make(chan struct{}, 16)
	return f
}

func (f *stubFeed) Ready(ctx context.Context) error {
	select {
	case <-f.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (f *stubFeed) Length() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.entries))
}

func (f *stubFeed) Get(ctx context.Context, index uint64, opts GetOptions) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, feedCall{op: "get", start: index, end: index + 1})
	err := f.readErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for {
		f.mu.Lock()
		length := uint64(len(f.entries))
		sig := f.notify
		var val []byte
		found := index < length
		if found {
			val = f.entries[index]
		}
		f.mu.Unlock()
		if found {
			return val, nil
		}
		if opts.IfAvailable || !opts.Wait {
			return nil, ErrNotAvailable
		}
		select {
		case <-sig:
		case <-f.closed:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (f *stubFeed) GetBatch(ctx context.Context, start, end uint64, opts GetOptions) ([][]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, feedCall{op: "getBatch", start: start, end: end})
	if f.readErr != nil {
		err := f.readErr
		f.mu.Unlock()
		return nil, err
	}
	length := uint64(len(f.entries))
	hi := end
	if hi > length {
		hi = length
	}
	out := make([][]byte, 0, hi-start)
	for i := start; i < hi; i++ {
		out = append(out, f.entries[i])
	}
	f.mu.Unlock()
	return out, nil
}

func (f *stubFeed) Append(ctx context.Context, payloads ...[]byte) (uint64, error) {
	if f.gated {
		f.appendStarted <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	start := uint64(len(f.entries))
	batch := make([][]byte, len(payloads))
	for i, p := range payloads {
		batch[i] = append([]byte(nil), p...)
	}
	f.entries = append(f.entries, batch...)
	f.appends = append(f.appends, batch)
	close(f.notify)
	f.notify = make(chan struct{})
	return start, nil
}

func (f *stubFeed) AppendSignal() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notify
}

func (f *stubFeed) Closed() <-chan struct{} { return f.closed }

func (f *stubFeed) close() { close(f.closed) }

func (f *stubFeed) callLog() []feedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]feedCall(nil), f.calls...)
}

func (f *stubFeed) appendLog() [][][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][][]byte(nil), f.appends...)
}

func (f *stubFeed) allBytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []byte
	for _, e := range f.entries {
		out = append(out, e...)
	}
	return out
}
