package streams

import "context"

// GetOptions carries read-readiness flags forwarded to the feed.
type GetOptions struct {
	// Wait blocks the read until the requested index exists.
	Wait bool
	// IfAvailable fails immediately with ErrNotAvailable when the requested
	// index is absent instead of waiting.
	IfAvailable bool
}

// Feed is the append-only log consumed by Reader and Writer. Implementations
// must provide per-operation atomicity; streams hold no locks of their own.
//
// AppendSignal returns a channel that is closed on the next append. Callers
// re-fetch the channel after each wake (close-and-replace broadcast).
type Feed interface {
	// Ready resolves once feed metadata, including the current length, is
	// available. It must be awaited before Length is meaningful.
	Ready(ctx context.Context) error

	// Length reports the current number of entries. It may grow at any time
	// due to concurrent appends.
	Length() uint64

	// Get reads the entry at index.
	Get(ctx context.Context, index uint64, opts GetOptions) ([]byte, error)

	// GetBatch reads the entries in [start, end) in index order.
	GetBatch(ctx context.Context, start, end uint64, opts GetOptions) ([][]byte, error)

	// Append atomically appends the payloads as consecutive entries and
	// returns the index assigned to the first of them.
	Append(ctx context.Context, payloads ...[]byte) (uint64, error)

	// AppendSignal returns the current new-append broadcast channel.
	AppendSignal() <-chan struct{}

	// Closed returns a channel that is closed when the feed closes.
	Closed() <-chan struct{}
}

// Entry is one decoded unit of the feed. Value holds raw bytes unless the
// reader was given a value encoding, in which case it holds the decoded
// value (string for UTF8, any for JSON).
type Entry struct {
	Index uint64
	Value any
}

// Bytes returns the raw payload when Value is a byte slice.
func (e Entry) Bytes() ([]byte, bool) {
	b, ok := e.Value.([]byte)
	return b, ok
}
