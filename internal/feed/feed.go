package feed

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rzbill/logpipe/internal/storage"
	"github.com/rzbill/logpipe/internal/streams"
)

// ErrCorrupt indicates a stored entry failed its checksum.
var ErrCorrupt = errors.New("feed: corrupt entry")

// Feed is a persistent append-only log for a single name. It implements
// streams.Feed. The feed borrows its storage backend; the caller owns and
// closes it.
type Feed struct {
	be     storage.Backend
	name   string
	logger *zap.Logger

	mu     sync.Mutex
	length uint64
	notify chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

var _ streams.Feed = (*Feed)(nil)

// Open initializes a Feed and loads its length from metadata (if any).
func Open(be storage.Backend, name string, logger *zap.Logger) (*Feed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Feed{
		be:     be,
		name:   name,
		logger: logger.With(zap.String("feed", name)),
		notify: make(chan struct{}),
		closed: make(chan struct{}),
	}
	meta, err := be.Get(KeyMeta(name))
	switch {
	case err == nil && len(meta) >= 8:
		f.length = binary.BigEndian.Uint64(meta[:8])
	case errors.Is(err, storage.ErrKeyNotFound):
		// fresh feed
	case err != nil:
		return nil, err
	}
	return f, nil
}

// Ready resolves once metadata is available. Open loads it eagerly, so this
// only guards against a closed feed or cancelled context.
func (f *Feed) Ready(ctx context.Context) error {
	select {
	case <-f.closed:
		return streams.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Length reports the current number of entries.
func (f *Feed) Length() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.length
}

// Append atomically appends the payloads as consecutive entries, updates
// metadata, and wakes all append waiters. Returns the first assigned index.
func (f *Feed) Append(ctx context.Context, payloads ...[]byte) (uint64, error) {
	if err := f.alive(ctx); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	start := f.length
	if len(payloads) == 0 {
		return start, nil
	}

	ops := make([]storage.Op, 0, len(payloads)+1)
	for i, p := range payloads {
		ops = append(ops, storage.Op{Key: KeyEntry(f.name, start+uint64(i)), Value: EncodeRecord(p)})
	}
	newLen := start + uint64(len(payloads))
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], newLen)
	ops = append(ops, storage.Op{Key: KeyMeta(f.name), Value: meta[:]})

	if err := f.be.ApplyBatch(ops); err != nil {
		return 0, err
	}
	f.length = newLen
	// wake waiters
	close(f.notify)
	f.notify = make(chan struct{})
	f.logger.Debug("appended", zap.Uint64("start", start), zap.Int("count", len(payloads)))
	return start, nil
}

// Get reads the entry at index. With Wait set it blocks until the index
// exists; with IfAvailable set it fails immediately instead.
func (f *Feed) Get(ctx context.Context, index uint64, opts streams.GetOptions) ([]byte, error) {
	for {
		if err := f.alive(ctx); err != nil {
			return nil, err
		}
		f.mu.Lock()
		length := f.length
		sig := f.notify
		f.mu.Unlock()

		if index < length {
			return f.readOne(index)
		}
		if opts.IfAvailable || !opts.Wait {
			return nil, streams.ErrNotAvailable
		}
		select {
		case <-sig:
		case <-f.closed:
			return nil, streams.ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// GetBatch reads the entries in [start, end) in index order. When the tail
// of the range is not yet written it returns the available prefix; with Wait
// set it first blocks until at least the entry at start exists.
func (f *Feed) GetBatch(ctx context.Context, start, end uint64, opts streams.GetOptions) ([][]byte, error) {
	if start >= end {
		return nil, nil
	}
	for {
		if err := f.alive(ctx); err != nil {
			return nil, err
		}
		f.mu.Lock()
		length := f.length
		sig := f.notify
		f.mu.Unlock()

		if start < length {
			hi := end
			if hi > length {
				hi = length
			}
			return f.readRange(start, hi)
		}
		if opts.IfAvailable || !opts.Wait {
			return nil, streams.ErrNotAvailable
		}
		select {
		case <-sig:
		case <-f.closed:
			return nil, streams.ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// AppendSignal returns the current new-append broadcast channel. The channel
// is closed on the next append; callers re-fetch it after each wake.
func (f *Feed) AppendSignal() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notify
}

// Closed returns a channel closed when the feed closes.
func (f *Feed) Closed() <-chan struct{} { return f.closed }

// Close marks the feed closed and fails all waiters. The storage backend is
// left to its owner.
func (f *Feed) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		f.logger.Debug("closed")
	})
	return nil
}

func (f *Feed) alive(ctx context.Context) error {
	select {
	case <-f.closed:
		return streams.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (f *Feed) readOne(index uint64) ([]byte, error) {
	val, err := f.be.Get(KeyEntry(f.name, index))
	if err != nil {
		return nil, fmt.Errorf("feed: read index %d: %w", index, err)
	}
	payload, ok := DecodeRecord(val)
	if !ok {
		return nil, fmt.Errorf("%w at index %d", ErrCorrupt, index)
	}
	return payload, nil
}

func (f *Feed) readRange(start, end uint64) ([][]byte, error) {
	out := make([][]byte, 0, end-start)
	err := f.be.Scan(KeyEntry(f.name, start), KeyEntry(f.name, end), func(k, v []byte) error {
		payload, ok := DecodeRecord(v)
		if !ok {
			return fmt.Errorf("%w at index %d", ErrCorrupt, start+uint64(len(out)))
		}
		out = append(out, payload)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != end-start {
		return nil, fmt.Errorf("feed: gap in range [%d, %d): got %d entries", start, end, len(out))
	}
	return out, nil
}
